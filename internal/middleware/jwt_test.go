package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/auth"
)

func TestJWTAuth(t *testing.T) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: "secret", ExpiresIn: time.Hour, Issuer: "myriad"})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/me", JWTAuth(tokens), func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		return c.SendString(uid)
	})

	token, err := tokens.GenerateToken(auth.Claims{ID: "u1", Username: "alice"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, fiber.StatusOK},
		{"missing", "", fiber.StatusUnauthorized},
		{"garbage", "Bearer nope", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set(fiber.HeaderAuthorization, tc.header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: app.Test: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.status, resp.StatusCode)
		}
		if resp.Header.Get(requestIDHeader) == "" {
			t.Fatalf("%s: missing request id header", tc.name)
		}
	}
}
