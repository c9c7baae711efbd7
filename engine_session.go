package chainAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/chainAuth/jwt"
)

// ValidateSession authenticates a session token for protected resources.
// Temporary login tokens are rejected, as are tokens whose user no longer
// exists or has not completed registration.
func (e *Engine) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrMissingSessionToken
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		var out *Error
		if errors.Is(err, jwt.ErrExpired) {
			out = ErrTokenExpired.withCause(err)
		} else {
			out = ErrTokenInvalid.withCause(err)
		}
		e.sessionRejected(ctx, "", out)
		return nil, out
	}
	if claims.Temp {
		e.sessionRejected(ctx, claims.UserID, ErrTempTokenRejected)
		return nil, ErrTempTokenRejected
	}

	user, err := e.store.FindUserByID(ctx, claims.UserID)
	if err != nil {
		err = mapStoreError(err)
		if errors.Is(err, ErrUserNotFound) {
			out := ErrTokenInvalid.withMessage(ErrUserNotFound.Message)
			e.sessionRejected(ctx, claims.UserID, out)
			return nil, out
		}
		return nil, err
	}
	if !user.RegistrationComplete {
		out := ErrRegistrationIncomplete.withStep(user.RegistrationStep).withUser(user.ID)
		e.sessionRejected(ctx, user.ID, out)
		return nil, out
	}

	e.metricInc(MetricSessionValidated)

	info := &SessionInfo{
		TokenID: claims.ID,
		User:    sessionUser(user),
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

func (e *Engine) sessionRejected(ctx context.Context, userID string, err error) {
	e.metricInc(MetricSessionRejected)
	e.emitAudit(ctx, auditEventSessionRejected, false, userID, "", err, nil)
}
