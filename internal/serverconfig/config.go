// Package serverconfig loads the chainauth-server settings from the
// environment and an optional config file.
package serverconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	chainAuth "github.com/MrEthical07/chainAuth"
	"github.com/MrEthical07/chainAuth/mail"
	"github.com/MrEthical07/chainAuth/store/gormstore"
)

// Config holds the server configuration aggregated from env and config files.
type Config struct {
	Server struct {
		Port           int
		Environment    string
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	}
	JWT struct {
		Secret     string
		Expire     time.Duration
		TempExpire time.Duration `mapstructure:"temp_expire"`
		Issuer     string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Database struct {
		Driver string
		DSN    string
	}
	Email struct {
		Host     string
		Port     int
		User     string
		Password string
		From     string
		Brand    string
	}
	Log struct {
		Level  string
		Format string
	}
	Cleanup struct {
		Interval        time.Duration
		IncompleteAfter time.Duration `mapstructure:"incomplete_after"`
	}
	Metrics struct {
		Enabled bool
	}
	Audit struct {
		Enabled bool
	}
}

// Unprefixed names accepted next to the CHAINAUTH_ ones.
var legacyEnv = map[string]string{
	"server.port":            "PORT",
	"server.environment":     "NODE_ENV",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"jwt.secret":             "JWT_SECRET",
	"jwt.expire":             "JWT_EXPIRE",
	"jwt.temp_expire":        "TEMP_TOKEN_EXPIRE",
	"email.host":             "EMAIL_HOST",
	"email.port":             "EMAIL_PORT",
	"email.user":             "EMAIL_USER",
	"email.password":         "EMAIL_PASSWORD",
	"email.from":             "EMAIL_FROM",
	"redis.addr":             "REDIS_ADDR",
}

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory or any of dirs.
func Load(dirs ...string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHAINAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 5001)
	v.SetDefault("server.environment", "production")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire", time.Hour)
	v.SetDefault("jwt.temp_expire", 5*time.Minute)
	v.SetDefault("jwt.issuer", "chainauth")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.driver", string(gormstore.DriverSQLite))
	v.SetDefault("database.dsn", "data/chainauth.db")
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.user", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.brand", "BlockQuest")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cleanup.interval", time.Hour)
	v.SetDefault("cleanup.incomplete_after", 24*time.Hour)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("audit.enabled", false)

	for key, legacy := range legacyEnv {
		envKey := "CHAINAUTH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret is required (JWT_SECRET)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch gormstore.Driver(c.Database.Driver) {
	case gormstore.DriverSQLite, gormstore.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// Development reports whether the server runs in development mode. It
// relaxes CORS to any origin.
func (c Config) Development() bool {
	return strings.EqualFold(c.Server.Environment, "development")
}

// Origins returns the CORS origins the HTTP layer should accept.
func (c Config) Origins() []string {
	if c.Development() {
		return []string{"*"}
	}
	return c.Server.AllowedOrigins
}

// EngineConfig maps the server settings onto the engine configuration.
func (c Config) EngineConfig() chainAuth.Config {
	cfg := chainAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(c.JWT.Secret)
	cfg.JWT.SessionTTL = c.JWT.Expire
	cfg.JWT.TempTTL = c.JWT.TempExpire
	cfg.JWT.Issuer = c.JWT.Issuer
	cfg.Wallet.AppName = c.Email.Brand
	cfg.Metrics.Enabled = c.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = c.Metrics.Enabled
	cfg.Cleanup.Interval = c.Cleanup.Interval
	cfg.Cleanup.IncompleteAfter = c.Cleanup.IncompleteAfter
	cfg.Audit.Enabled = c.Audit.Enabled
	return cfg
}

// SMTP returns the relay settings, or false when no relay is configured.
func (c Config) SMTP(validity time.Duration) (mail.SMTPConfig, bool) {
	if c.Email.Host == "" {
		return mail.SMTPConfig{}, false
	}
	from := c.Email.From
	if from == "" {
		from = c.Email.User
	}
	return mail.SMTPConfig{
		Host:     c.Email.Host,
		Port:     c.Email.Port,
		Username: c.Email.User,
		Password: c.Email.Password,
		From:     from,
		Brand:    c.Email.Brand,
		Validity: validity,
	}, true
}

// splitOrigins accepts both list values and a single comma separated string.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
