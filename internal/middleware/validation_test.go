package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestClientAddress(t *testing.T) {
	headers := []string{"CF-Connecting-IP", "X-Forwarded-For"}

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare header wins", map[string]string{"CF-Connecting-IP": "203.0.113.5", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.5"},
		{"forwarded for fallback", map[string]string{"X-Forwarded-For": "198.51.100.1"}, "198.51.100.1"},
		{"first of forwarded list", map[string]string{"X-Forwarded-For": " 198.51.100.1 , 10.0.0.2, 10.0.0.3"}, "198.51.100.1"},
		{"empty first entry skips header", map[string]string{"CF-Connecting-IP": " , 10.0.0.9", "X-Forwarded-For": "198.51.100.2"}, "198.51.100.2"},
		{"no headers", map[string]string{}, UnknownAddress},
		{"untrusted header ignored", map[string]string{"X-Real-IP": "192.0.2.1"}, UnknownAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c fiber.Ctx) error {
				return c.SendString(ClientAddress(c, headers))
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			body, _ := io.ReadAll(resp.Body)
			if got := string(body); got != tt.want {
				t.Errorf("ClientAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c fiber.Ctx) error {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid payload.")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Invalid payload." {
		t.Errorf("error = %q, want %q", body["error"], "Invalid payload.")
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/status", "/api/status"},
		{"/api/vote", "/api/vote"},
		{"/api/streets", "/api/streets"},
		{"/api/votes/203.0.113.9", "/api/other"},
		{"/api/", "/api/other"},
		{"/health/ready", "/health/ready"},
		{"/health/anything", "/static"},
		{"/metrics", "/metrics"},
		{"/streets.geojson", "/static"},
		{"/some/user/typed/path", "/static"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
