package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what a limiter does when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoLimiterStore = errors.New("rate limiter: redis client is nil")

// limitingDisabled is true outside staging and production so local runs
// and the test suite are never throttled.
func limitingDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test":
		return true
	}
	return false
}

// CheckRateLimit counts one hit for id against resource and reports
// whether it is still within limit for the current window.
func CheckRateLimit(ctx context.Context, client *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if limitingDisabled() {
		return true, nil
	}
	return checkRateLimit(ctx, client, resource, id, limit, window)
}

// checkRateLimit is a fixed window counter. The TTL is read back in the
// same round trip and only set when missing, so a failed EXPIRE on the
// first hit is repaired by the next one.
func checkRateLimit(ctx context.Context, client *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if client == nil {
		return false, errNoLimiterStore
	}

	key := "rl:" + resource + ":" + id
	var hits *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return false, err
	}
	if ttl.Val() < 0 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return hits.Val() <= int64(limit), nil
}

// RateLimit allows limit requests per window for each caller, falling
// open when Redis is down. See RateLimitWithPolicy.
func RateLimit(client *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(client, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy allows limit requests per window for each caller.
// Callers are keyed by user ID when authenticated and by IP otherwise.
// The optional name groups routes under one budget; without it the
// request path is the budget.
func RateLimitWithPolicy(client *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))

	return func(c *fiber.Ctx) error {
		resource := c.Path()
		if len(name) > 0 && name[0] != "" {
			resource = name[0]
		}

		caller := "ip:" + c.IP()
		if uid, ok := CurrentUserID(c); ok {
			caller = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		allowed, err := CheckRateLimit(c.UserContext(), client, resource, caller, limit, window)
		switch {
		case err != nil && policy == FailClosed:
			Logger.WarnContext(c.UserContext(), "rate limiter unavailable, rejecting",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "rate limit unavailable",
			})
		case err != nil:
			Logger.DebugContext(c.UserContext(), "rate limiter unavailable, allowing",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return c.Next()
		case !allowed:
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
