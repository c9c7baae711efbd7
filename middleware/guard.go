package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chainAuth "github.com/MrEthical07/chainAuth"
)

type sessionContextKey struct{}

// SessionFromContext returns the session injected by [Guard].
func SessionFromContext(ctx context.Context) (*chainAuth.SessionInfo, bool) {
	info, ok := ctx.Value(sessionContextKey{}).(*chainAuth.SessionInfo)
	return info, ok
}

// Guard rejects requests without a valid session token. Temporary login
// tokens never pass. On success the session is available through
// [SessionFromContext].
func Guard(engine *chainAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, chainAuth.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, chainAuth.ErrMissingSessionToken)
				return
			}

			ctx := chainAuth.WithClientIP(r.Context(), clientIP(r))
			ctx = chainAuth.WithUserAgent(ctx, r.UserAgent())

			info, err := engine.ValidateSession(ctx, token)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx = context.WithValue(r.Context(), sessionContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StatusCode maps an engine error to the HTTP status the API answers with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, chainAuth.ErrRegistrationIncomplete),
		errors.Is(err, chainAuth.ErrWalletMismatch):
		return http.StatusForbidden
	case errors.Is(err, chainAuth.ErrUserNotFound):
		return http.StatusNotFound
	}

	switch chainAuth.KindOf(err) {
	case chainAuth.KindValidation, chainAuth.KindState:
		return http.StatusBadRequest
	case chainAuth.KindConflict:
		return http.StatusConflict
	case chainAuth.KindAuth:
		return http.StatusUnauthorized
	case chainAuth.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the JSON envelope for failed requests.
type ErrorBody struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	RegistrationStep int    `json:"registrationStep,omitempty"`
	UserID           string `json:"userId,omitempty"`
}

// NewErrorBody builds the envelope for err.
func NewErrorBody(err error) ErrorBody {
	body := ErrorBody{Message: chainAuth.MessageOf(err)}
	if step, ok := chainAuth.StepOf(err); ok {
		body.RegistrationStep = step
	}
	var e *chainAuth.Error
	if errors.As(err, &e) {
		body.UserID = e.UserID
	}
	return body
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(NewErrorBody(err))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
