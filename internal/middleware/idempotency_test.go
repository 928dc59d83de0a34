package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/myriad-social/myriad_api/internal/kv"
	"github.com/myriad-social/myriad_api/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	calls := 0
	app := fiber.New()
	app.Use(Idempotency(kv.NewRedisStore(cache, ""), time.Minute, logging.Discard()))
	app.Post("/otp/email", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "OTP sent", "call": calls})
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/otp/email", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls := setupTestApp(t)

	post(t, app, "")
	post(t, app, "")
	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status, payload := post(t, app, "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected status %d got %d", fiber.StatusOK, status)
	}

	// Second request should return the cached response without invoking handler again.
	status2, cached := post(t, app, "abc123")
	if status2 != fiber.StatusOK {
		t.Fatalf("expected cached status %d got %d", fiber.StatusOK, status2)
	}
	if cached != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cached)
	}
	if *calls != 1 {
		t.Fatalf("expected a single handler call, got %d", *calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}
