package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

// UnknownAddress stands in for the requester address when no trusted proxy
// header is present. All such requests share one throttling identity.
const UnknownAddress = "unknown"

// ErrorResponse writes the standard API error body: {"error": message}.
func ErrorResponse(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// ClientAddress returns the requester address from the first trusted proxy
// header that is present. Forwarded lists are comma separated with the
// original client first.
func ClientAddress(c fiber.Ctx, headers []string) string {
	for _, h := range headers {
		v := c.Get(h)
		if v == "" {
			continue
		}
		first, _, _ := strings.Cut(v, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return UnknownAddress
}
