package chainAuth

import (
	"errors"
	"io"
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
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// dummyPassword is hashed once per engine to equalize unknown-user login cost.
const dummyPassword = "chainauth-dummy-password"

// Builder defines a public type used by chainAuth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  store.Store
	mailer mail.Sender
	logger logrus.FieldLogger

	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing rate limiters and pending logins.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore sets the user and OTP persistence backend.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithMailer sets the passcode email sender. Without one, codes are logged
// through the engine logger.
func (b *Builder) WithMailer(sender mail.Sender) *Builder {
	b.mailer = sender
	return b
}

// WithLogger sets the structured logger used for flow outcomes.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms enables the signature verification latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides the time source used for user timestamps, cleanup
// cutoffs, passcode windows and expiry, and token lifetimes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and wires every component. A Builder can
// be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.store == nil {
		return nil, errors.New("store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		logger = silent
	}

	now := b.clock
	if now == nil {
		now = time.Now
	}

	engine := &Engine{
		config: cloneConfig(cfg),
		store:  b.store,
		logger: logger,
		now:    now,
	}

	engine.mailer = b.mailer
	if engine.mailer == nil {
		engine.mailer = mail.NewLogSender(logger)
	}

	engine.otp = otp.New(b.store, otp.Config{
		Digits:      cfg.OTP.Digits,
		TTL:         cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
		IssueWindow: cfg.OTP.IssueWindow,
		IssueLimit:  cfg.OTP.IssueLimit,
		Now:         now,
	})
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.Login.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Login.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Login.LoginCooldownDuration,
	})
	engine.registrationLimiter = limiters.NewRegistrationLimiter(b.redis, limiters.RegistrationConfig{
		EnableIPThrottle: cfg.Registration.EnableIPThrottle,
		MaxAttempts:      cfg.Registration.MaxPerIP,
		Cooldown:         cfg.Registration.IPWindow,
	})
	engine.pendingLogins = stores.NewPendingLoginStore(b.redis, cfg.Login.PendingRedisPrefix)
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	ph, err := password.NewBcrypt(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	dummy, err := ph.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummy

	jm, err := jwt.NewManager(jwt.Config{
		SessionTTL:    cfg.JWT.SessionTTL,
		TempTTL:       cfg.JWT.TempTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
