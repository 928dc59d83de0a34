package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrValidation marks malformed input (bad email, unexpected payload).
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication marks a rejected proof: bad signature, bad OTP, bad token.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an entity that already exists.
	ErrConflict = errors.New("already exists")
	// ErrConfiguration marks an unusable configuration. Fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")
)

// Validation wraps ErrValidation with a client facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Authentication wraps ErrAuthentication with a client facing message.
func Authentication(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthentication, fmt.Sprintf(format, args...))
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Handler renders errors returned by route handlers as JSON bodies. Internal
// errors are logged and replaced with a generic message.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := Status(err)
		msg := err.Error()
		if status >= http.StatusInternalServerError {
			if logger != nil {
				logger.Error("request failed",
					slog.String("method", c.Method()),
					slog.String("path", c.Path()),
					slog.Any("error", err),
				)
			}
			msg = http.StatusText(status)
		}
		return c.Status(status).JSON(fiber.Map{"error": fiber.Map{"statusCode": status, "message": msg}})
	}
}
