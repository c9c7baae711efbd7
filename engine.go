package chainAuth

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/chainAuth/internal/audit"
	"github.com/MrEthical07/chainAuth/internal/limiters"
	"github.com/MrEthical07/chainAuth/internal/otp"
	"github.com/MrEthical07/chainAuth/internal/rate"
	"github.com/MrEthical07/chainAuth/internal/stores"
	"github.com/MrEthical07/chainAuth/jwt"
	"github.com/MrEthical07/chainAuth/mail"
	"github.com/MrEthical07/chainAuth/password"
	"github.com/MrEthical07/chainAuth/store"
	"github.com/MrEthical07/chainAuth/wallet"
	"github.com/sirupsen/logrus"
)

// Engine defines a public type used by chainAuth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config              Config
	store               store.Store
	otp                 *otp.Lifecycle
	mailer              mail.Sender
	jwtManager          *jwt.Manager
	passwordHash        *password.Bcrypt
	rateLimiter         *rate.Limiter
	registrationLimiter *limiters.RegistrationLimiter
	pendingLogins       *stores.PendingLoginStore
	audit               *internalaudit.Dispatcher
	metrics             *Metrics
	logger              logrus.FieldLogger
	now                 func() time.Time

	// dummyHash is compared against when the login identifier matches no
	// user so both paths cost one bcrypt evaluation.
	dummyHash string
}

// Close stops the audit dispatcher after flushing buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

// verifySignature runs the family check and records its latency.
func (e *Engine) verifySignature(family wallet.Family, message, signature, address string) bool {
	if !e.metrics.LatencyEnabled() {
		return family.VerifySignature(message, signature, address)
	}
	start := time.Now()
	ok := family.VerifySignature(message, signature, address)
	e.metrics.Observe(MetricSignatureVerifyLatency, time.Since(start))
	return ok
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.jwtManager == nil || e.otp == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) loadUser(ctx context.Context, userID string) (*store.User, error) {
	u, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return u, nil
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}

	var dup *store.DuplicateError
	switch {
	case errors.As(err, &dup):
		switch dup.Field {
		case store.FieldUsername:
			return ErrUsernameTaken.withCause(err)
		case store.FieldEmail:
			return ErrEmailTaken.withCause(err)
		case store.FieldWallet:
			return ErrWalletTaken.withCause(err)
		}
		return ErrInternal.withCause(err)
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound.withCause(err)
	case errors.Is(err, store.ErrUnavailable):
		return ErrUnavailable.withCause(err)
	default:
		return ErrInternal.withCause(err)
	}
}

var outcomeNone otp.Outcome

func mapOTPError(err error, outcome otp.Outcome) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, otp.ErrInvalidCode):
		return invalidOTPError(outcome.Remaining).withCause(err)
	case errors.Is(err, otp.ErrExhausted):
		return ErrOTPExhausted.withCause(err)
	case errors.Is(err, otp.ErrNotFound):
		return ErrOTPNotFound.withCause(err)
	case errors.Is(err, otp.ErrRateLimited):
		return ErrOTPRateLimited.withCause(err)
	default:
		return ErrUnavailable.withCause(err)
	}
}

func mapLimiterError(err error, limited *Error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited),
		errors.Is(err, limiters.ErrRegistrationRateLimited):
		return limited.withCause(err)
	default:
		return ErrUnavailable.withCause(err)
	}
}

func mapPendingLoginError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, stores.ErrPendingLoginNotFound),
		errors.Is(err, stores.ErrPendingLoginExpired):
		return ErrTokenExpired.withCause(err)
	default:
		return ErrUnavailable.withCause(err)
	}
}
