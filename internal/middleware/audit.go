package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/apperr"
)

// Audit emits one structured log line per request. Errors are reported with
// the status the error handler will render for them.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = apperr.Status(err)
		}
		requestID, _ := c.Locals(requestIDHeader).(string)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request completed", append(attrs, slog.Any("error", err))...)
		case err != nil:
			logger.Warn("request completed", append(attrs, slog.String("error", err.Error()))...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}
