package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/kv"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	inProgressMarker     = "__in_progress__"
)

type storedResponse struct {
	Status  int               `json:"status"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Idempotency replays the stored response of a POST carrying an
// Idempotency-Key seen before, so a retried OTP or signup request does not
// send a second mail. Requests without the header pass through.
func Idempotency(store kv.Store, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch strings.ToUpper(c.Method()) {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}
		cacheKey := idempotencyPrefix + c.Path() + ":" + key

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		reserved, err := store.SetNX(ctx, cacheKey, []byte(inProgressMarker), ttl)
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !reserved {
			return replay(ctx, c, store, cacheKey, key, logger)
		}

		if err := c.Next(); err != nil {
			release(store, cacheKey)
			return err
		}
		if c.Response().StatusCode() >= fiber.StatusBadRequest {
			release(store, cacheKey)
			return nil
		}

		stored := storedResponse{
			Status:  c.Response().StatusCode(),
			Body:    string(c.Response().Body()),
			Headers: map[string]string{},
		}
		c.Response().Header.VisitAll(func(k, v []byte) {
			stored.Headers[string(k)] = string(v)
		})

		payload, err := json.Marshal(stored)
		if err != nil {
			logger.Error("failed to encode idempotent response", slog.String("key", key), slog.Any("error", err))
			release(store, cacheKey)
			return nil
		}

		persistCtx, persistCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer persistCancel()
		if err := store.Set(persistCtx, cacheKey, payload, ttl); err != nil {
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			release(store, cacheKey)
		}
		return nil
	}
}

func replay(ctx context.Context, c *fiber.Ctx, store kv.Store, cacheKey, key string, logger *slog.Logger) error {
	cached, err := store.Get(ctx, cacheKey)
	if errors.Is(err, kv.ErrNotFound) {
		return fiber.NewError(fiber.StatusConflict, "duplicate request, retry")
	}
	if err != nil {
		logger.Error("idempotency lookup failed", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
	}
	if string(cached) == inProgressMarker {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}

	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.String("key", key), slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	for header, value := range stored.Headers {
		if strings.EqualFold(header, fiber.HeaderContentLength) {
			continue
		}
		c.Set(header, value)
	}
	return c.Status(stored.Status).SendString(stored.Body)
}

func release(store kv.Store, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = store.Del(ctx, cacheKey) // best effort cleanup
}
