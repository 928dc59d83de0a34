package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/kv"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps, store kv.Store) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		kvStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if err := store.Ping(ctx); err != nil {
			kvStatus = err.Error()
		}
		status := http.StatusOK
		if dbStatus != "ok" || kvStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "kv": kvStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
