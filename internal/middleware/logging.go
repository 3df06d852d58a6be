package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/mgsgtaprohd-gif/nb-plowed/pkg/hash"
)

// Logger is the package-level zerolog logger used throughout the application.
var Logger = zerolog.Nop()

// InitLogger sets up the global zerolog logger with structured JSON output.
// Level is parsed from the given string (e.g. "debug", "info", "warn", "error").
func InitLogger(level, service string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// IsKnownRoute reports whether path is one of the routes the server
// registers outside the static file tree.
func IsKnownRoute(path string) bool {
	switch path {
	case "/api/status", "/api/vote", "/api/streets", "/health/live", "/health/ready", "/metrics":
		return true
	}
	return false
}

// sanitizePath keeps registered routes as-is and collapses everything else
// into a bucket so arbitrary URLs never reach the logs.
func sanitizePath(path string) string {
	switch {
	case IsKnownRoute(path):
		return path
	case strings.HasPrefix(path, "/api/"):
		return "/api/other"
	default:
		return "/static"
	}
}

// NewRequestLogger returns a Fiber middleware that logs each request as
// structured JSON. Raw client addresses are never logged, only a hash prefix.
func NewRequestLogger(proxyHeaders []string) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		evt := Logger.Info()
		if status >= 500 {
			evt = Logger.Error()
		} else if status >= 400 {
			evt = Logger.Warn()
		}

		evt.
			Str("request_id", requestid.FromContext(c)).
			Str("method", c.Method()).
			Str("path", sanitizePath(c.Path())).
			Int("status", status).
			Dur("duration_ms", duration).
			Str("ip_hash", hash.LogPrefix(ClientAddress(c, proxyHeaders))).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}
