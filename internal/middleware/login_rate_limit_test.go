package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/kv"
	"github.com/myriad-social/myriad_api/internal/logging"
)

func TestLoginRateLimitPerSubject(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(kv.NewMemoryStore(nil), 2, logging.Discard()), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func(address string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"publicAddress":"`+address+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for i := 0; i < 2; i++ {
		if status := send("0xAAA"); status != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, status)
		}
	}
	if status := send("0xaaa"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", status)
	}
	if status := send("0xBBB"); status != fiber.StatusOK {
		t.Fatalf("other wallets must not be limited, got %d", status)
	}
}
