package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// Limiter counts failed password logins per identifier and, optionally, per
// client IP in fixed Redis windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// hitScript increments a window counter and starts the window on the first
// hit, so a crash between INCR and PEXPIRE cannot leave an immortal key.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin returns ErrRateLimited when the identifier, or the IP when IP
// throttling is on, already used its budget of failures.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	keys := l.keys(identifier, ip)

	cmds := make([]*redis.StringCmd, len(keys))
	_, err := l.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = p.Get(ctx, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, cmd := range cmds {
		count, err := cmd.Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count >= int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records a failed login. It returns ErrRateLimited when this
// failure went over the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, identifier, ip string) error {
	limited := false
	for _, key := range l.keys(identifier, ip) {
		count, err := hitScript.Run(ctx, l.redis, []string{key}, l.config.LoginCooldownDuration.Milliseconds()).Int64()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count > int64(l.config.MaxLoginAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the counters after a successful password check.
func (l *Limiter) ResetLogin(ctx context.Context, identifier, ip string) error {
	if err := l.redis.Del(ctx, l.keys(identifier, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// GetLoginAttempts returns the failures recorded for identifier in the
// current window. Unknown identifiers report zero.
func (l *Limiter) GetLoginAttempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, loginUserKey(identifier)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return max(count, 0), nil
}

func (l *Limiter) keys(identifier, ip string) []string {
	keys := []string{loginUserKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	return keys
}

// Identifiers are case-folded so "Alice" and "alice" share a budget.
func loginUserKey(identifier string) string {
	return "crl:u:" + strings.ToLower(identifier)
}

func loginIPKey(ip string) string {
	return "crl:ip:" + ip
}
