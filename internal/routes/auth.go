package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/auth"
)

// AuthMiddlewares are the optional per-route middlewares of the auth endpoints.
type AuthMiddlewares struct {
	Idempotency fiber.Handler
	RateLimit   fiber.Handler
}

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, guard *auth.Guard, mw AuthMiddlewares) {
	r.Post("/otp/email", chain(mw.Idempotency, h.RequestOTP)...)
	r.Post("/signup", guard.Require(auth.RouteSignup), h.Signup)
	r.Post("/signup/email", chain(mw.Idempotency, guard.Require(auth.RouteSignupEmail), h.SignupByEmail)...)
	r.Post("/login", chain(mw.RateLimit, guard.Require(auth.RouteLogin), h.Login)...)
	r.Post("/login/otp", chain(mw.RateLimit, guard.Require(auth.RouteLoginOTP), h.LoginByOTP)...)
	r.Post("/refresh", h.Refresh)
}

func chain(handlers ...fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
