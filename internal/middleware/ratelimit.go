package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	"github.com/mgsgtaprohd-gif/nb-plowed/pkg/hash"
)

// RequestLimitConfig defines a fixed-window request budget.
type RequestLimitConfig struct {
	Max    int                      // Maximum requests allowed in the window
	Window time.Duration            // Time window for the limit
	KeyFn  func(c fiber.Ctx) string // Returns the key to rate limit on
	Prefix string                   // Redis key namespace
}

// RequestLimiter is a coarse per-address request throttle in front of the
// API. Counters live in Redis so no request state is held in process; with a
// nil client every request is allowed. Vote throttling proper is enforced by
// the vote service against the vote log.
type RequestLimiter struct {
	rdb    *redis.Client
	config RequestLimitConfig
}

// NewRequestLimiter creates a limiter backed by rdb, which may be nil.
func NewRequestLimiter(rdb *redis.Client, cfg RequestLimitConfig) *RequestLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	return &RequestLimiter{rdb: rdb, config: cfg}
}

// Enabled reports whether the limiter has a Redis backend.
func (rl *RequestLimiter) Enabled() bool {
	return rl.rdb != nil && rl.config.Max > 0
}

// Allow counts one request for key and reports whether it fits the budget,
// the remaining budget and when the window resets.
func (rl *RequestLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	if !rl.Enabled() {
		return true, rl.config.Max, time.Time{}, nil
	}

	rkey := rl.config.Prefix + ":" + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, rkey)
		ttl = pipe.PTTL(ctx, rkey)
		return nil
	})
	if err != nil {
		return true, rl.config.Max, time.Time{}, err
	}

	count := int(incr.Val())
	resetIn := ttl.Val()
	if count == 1 || resetIn < 0 {
		if err := rl.rdb.PExpire(ctx, rkey, rl.config.Window).Err(); err != nil {
			return true, rl.config.Max, time.Time{}, err
		}
		resetIn = rl.config.Window
	}

	remaining := rl.config.Max - count
	return remaining >= 0, max(remaining, 0), time.Now().Add(resetIn), nil
}

// Handler returns a Fiber middleware handler that enforces the limit. Redis
// errors let the request through.
func (rl *RequestLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !rl.Enabled() {
			return c.Next()
		}

		allowed, remaining, resetAt, err := rl.Allow(c.Context(), rl.config.KeyFn(c))
		if err != nil {
			Logger.Warn().Err(err).Msg("request limiter unavailable, allowing request")
			return c.Next()
		}

		setRateLimitHeaders(c, rl.config.Max, remaining, resetAt)

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return ErrorResponse(c, fiber.StatusTooManyRequests,
				fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter))
		}

		return c.Next()
	}
}

func setRateLimitHeaders(c fiber.Ctx, limit, remaining int, resetAt time.Time) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// KeyByAddress returns a rate limit key derived from the trusted client
// address. The address is hashed so Redis never stores it in the clear.
func KeyByAddress(headers []string) func(c fiber.Ctx) string {
	return func(c fiber.Ctx) string {
		return "addr:" + hash.SHA256Hex(ClientAddress(c, headers))
	}
}

// NewAPIRequestLimiter: perMinute requests per address on the API.
func NewAPIRequestLimiter(rdb *redis.Client, perMinute int, headers []string) *RequestLimiter {
	return NewRequestLimiter(rdb, RequestLimitConfig{
		Max:    perMinute,
		Window: time.Minute,
		KeyFn:  KeyByAddress(headers),
		Prefix: "plowed:ratelimit",
	})
}
