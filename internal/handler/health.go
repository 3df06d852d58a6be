package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
)

// Pinger is a store that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   Pinger
	rdb     *redis.Client
	streets int
	startAt time.Time
}

// NewHealthHandler creates the health handler. rdb may be nil when Redis is
// not configured; streets is the size of the loaded street catalog.
func NewHealthHandler(store Pinger, rdb *redis.Client, streets int) *HealthHandler {
	return &HealthHandler{
		store:   store,
		rdb:     rdb,
		streets: streets,
		startAt: time.Now(),
	}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready and reports each dependency.
// Only the vote store gates readiness; Redis backs an optional throttle.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	store := checkStore(ctx, h.store)
	checks := fiber.Map{
		"database": store,
		"redis":    checkRedis(ctx, h.rdb),
		"streets":  fiber.Map{"loaded": h.streets},
	}

	overallStatus := "healthy"
	if store["status"] != "up" {
		overallStatus = "degraded"
	}

	status := fiber.StatusOK
	if overallStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         overallStatus,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        "1.0.0",
	})
}

func checkStore(ctx context.Context, store Pinger) fiber.Map {
	start := time.Now()
	err := store.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}

func checkRedis(ctx context.Context, rdb *redis.Client) fiber.Map {
	if rdb == nil {
		return fiber.Map{
			"status": "disabled",
		}
	}

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return fiber.Map{
			"status":     "down",
			"latency_ms": latency,
			"error":      "connection failed",
		}
	}
	return fiber.Map{
		"status":     "up",
		"latency_ms": latency,
	}
}
