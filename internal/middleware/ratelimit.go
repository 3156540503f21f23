package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// LimitingEnabled reports whether request limits apply in env. Development
// and test run unlimited; an empty env counts as development.
func LimitingEnabled(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "test":
		return false
	}
	return true
}

// CheckRateLimit reports whether id may spend one more request on resource
// within window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// RateLimiter builds per-route limit middleware backed by Redis. A limiter
// built for a development or test environment lets every request through.
type RateLimiter struct {
	rdb     *redis.Client
	enabled bool
}

// NewRateLimiter returns a limiter for the configured environment.
func NewRateLimiter(rdb *redis.Client, env string) *RateLimiter {
	return &RateLimiter{rdb: rdb, enabled: LimitingEnabled(env)}
}

// Enabled reports whether the limiter counts requests.
func (l *RateLimiter) Enabled() bool { return l.enabled }

// Limit returns a Fiber middleware enforcing `limit` requests per `window`.
// It keys by authenticated userID when set, otherwise by remote IP, and fails open.
func (l *RateLimiter) Limit(limit int, window time.Duration, name ...string) fiber.Handler {
	return l.LimitWithPolicy(limit, window, FailOpen, name...)
}

// LimitWithPolicy returns a Fiber middleware enforcing `limit` requests per `window` with a specific failure policy.
func (l *RateLimiter) LimitWithPolicy(limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.enabled {
			return c.Next()
		}

		var id string
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			id = "user:" + uid
		} else {
			id = "ip:" + c.IP()
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), l.rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					slog.String("resource", resource),
					slog.String("error", err.Error()),
				)
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
