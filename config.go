package chainAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/chainAuth/password"
	"github.com/MrEthical07/chainAuth/wallet"
)

// Config defines a public type used by chainAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT          JWTConfig
	OTP          OTPConfig
	Registration RegistrationConfig
	Login        LoginConfig
	Password     PasswordConfig
	Wallet       WalletConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Cleanup      CleanupConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by chainAuth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	SessionTTL    time.Duration
	TempTTL       time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls email passcodes issued during registration.
type OTPConfig struct {
	Digits      int
	TTL         time.Duration
	MaxAttempts int
	// IssueLimit codes may be issued per email inside IssueWindow.
	IssueWindow time.Duration
	IssueLimit  int
}

/*
====================================
REGISTRATION / LOGIN CONFIG
====================================
*/

// RegistrationConfig throttles step one per client IP.
type RegistrationConfig struct {
	EnableIPThrottle bool
	MaxPerIP         int
	IPWindow         time.Duration
}

// LoginConfig defines a public type used by chainAuth APIs.
//
// LoginConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginConfig struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	// MaxSignatureAttempts bounds failed wallet signatures per temp token.
	MaxSignatureAttempts int
	PendingRedisPrefix   string
}

/*
====================================
PASSWORD / WALLET CONFIG
====================================
*/

type PasswordConfig struct {
	Cost           int
	UpgradeOnLogin bool
}

// WalletConfig defines a public type used by chainAuth APIs.
//
// WalletConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type WalletConfig struct {
	// AllowedTypes restricts which wallet families may be bound. Empty allows all.
	AllowedTypes []wallet.Type
	// AppName prefixes generated signature challenges.
	AppName string
}

/*
====================================
AUDIT / METRICS / CLEANUP CONFIG
====================================
*/

// AuditConfig defines a public type used by chainAuth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by chainAuth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// CleanupConfig drives the incomplete-registration sweeper.
type CleanupConfig struct {
	IncompleteAfter time.Duration
	Interval        time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when Builder.WithConfig is not
// called. JWT.PrivateKey must still be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SessionTTL:    time.Hour,
			TempTTL:       5 * time.Minute,
			SigningMethod: "hs256",
		},
		OTP: OTPConfig{
			Digits:      6,
			TTL:         10 * time.Minute,
			MaxAttempts: 3,
			IssueWindow: 15 * time.Minute,
			IssueLimit:  3,
		},
		Registration: RegistrationConfig{
			EnableIPThrottle: true,
			MaxPerIP:         10,
			IPWindow:         time.Hour,
		},
		Login: LoginConfig{
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			MaxSignatureAttempts:  3,
			PendingRedisPrefix:    "cpl",
		},
		Password: PasswordConfig{
			Cost:           password.DefaultCost,
			UpgradeOnLogin: true,
		},
		Wallet: WalletConfig{
			AppName: "BlockQuest",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Cleanup: CleanupConfig{
			IncompleteAfter: 24 * time.Hour,
			Interval:        time.Hour,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if len(cfg.Wallet.AllowedTypes) > 0 {
		out.Wallet.AllowedTypes = append([]wallet.Type(nil), cfg.Wallet.AllowedTypes...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.SessionTTL <= 0 {
		return errors.New("JWT SessionTTL must be > 0")
	}
	if c.JWT.TempTTL <= 0 {
		return errors.New("JWT TempTTL must be > 0")
	}
	if c.JWT.TempTTL > c.JWT.SessionTTL {
		return errors.New("JWT TempTTL must be <= SessionTTL")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New("JWT PrivateKey is required")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// OTP
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be between 4 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.IssueWindow <= 0 || c.OTP.IssueLimit <= 0 {
		return errors.New("OTP IssueWindow and IssueLimit must be > 0")
	}

	// Registration
	if c.Registration.EnableIPThrottle {
		if c.Registration.MaxPerIP <= 0 {
			return errors.New("Registration MaxPerIP must be > 0")
		}
		if c.Registration.IPWindow <= 0 {
			return errors.New("Registration IPWindow must be > 0")
		}
	}

	// Login
	if c.Login.MaxLoginAttempts <= 0 {
		return errors.New("Login MaxLoginAttempts must be > 0")
	}
	if c.Login.LoginCooldownDuration <= 0 {
		return errors.New("Login LoginCooldownDuration must be > 0")
	}
	if c.Login.MaxSignatureAttempts <= 0 || c.Login.MaxSignatureAttempts > 0xffff {
		return errors.New("Login MaxSignatureAttempts must be within [1, 65535]")
	}

	// Password
	if c.Password.Cost < password.MinCost {
		return errors.New("Password Cost must be >= 10")
	}

	// Wallet
	for _, t := range c.Wallet.AllowedTypes {
		if _, err := wallet.Lookup(t); err != nil {
			return errors.New("Wallet AllowedTypes contains an unsupported type")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Cleanup
	if c.Cleanup.IncompleteAfter < 0 || c.Cleanup.Interval < 0 {
		return errors.New("Cleanup durations must be >= 0")
	}

	return nil
}

func (c *Config) walletAllowed(t wallet.Type) bool {
	if len(c.Wallet.AllowedTypes) == 0 {
		return true
	}
	for _, allowed := range c.Wallet.AllowedTypes {
		if allowed == t {
			return true
		}
	}
	return false
}
