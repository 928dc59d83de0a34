package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/kv"
)

// LoginRateLimit limits login attempts per wallet address or email, falling
// back to the client IP, within a one minute window.
func LoginRateLimit(store kv.Store, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if store == nil {
			return c.Next()
		}
		var req struct {
			PublicAddress string `json:"publicAddress"`
			Email         string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.PublicAddress))
		if subject == "" {
			subject = strings.ToLower(strings.TrimSpace(req.Email))
		}
		if subject == "" {
			subject = c.IP()
		}
		cnt, err := store.Incr(c.UserContext(), "rl:login:"+subject, time.Minute)
		if err != nil {
			if logger != nil {
				logger.Warn("login rate limit unavailable", slog.Any("error", err))
			}
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
