package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRegistrationRateLimited      = errors.New("registration rate limited")
	ErrRegistrationRedisUnavailable = errors.New("registration redis unavailable")
)

// windowScript counts a hit in a fixed window that starts with the first hit.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

type RegistrationConfig struct {
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// RegistrationLimiter throttles step-one registrations per client IP.
type RegistrationLimiter struct {
	redis  redis.UniversalClient
	config RegistrationConfig
}

func NewRegistrationLimiter(redisClient redis.UniversalClient, cfg RegistrationConfig) *RegistrationLimiter {
	return &RegistrationLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Enforce counts one registration attempt from ip and fails once the window
// budget is spent. Empty IPs are not counted.
func (l *RegistrationLimiter) Enforce(ctx context.Context, ip string) error {
	if l == nil || !l.config.EnableIPThrottle || ip == "" {
		return nil
	}

	count, err := windowScript.Run(ctx, l.redis, []string{registrationIPKey(ip)}, l.config.Cooldown.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistrationRedisUnavailable, err)
	}

	if count > int64(l.config.MaxAttempts) {
		return ErrRegistrationRateLimited
	}

	return nil
}

func registrationIPKey(ip string) string {
	return "creg:ip:" + ip
}
