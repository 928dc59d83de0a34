package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/identity"
)

// RegisterIdentityRoutes wires the nonce lookups and the profile endpoint.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, jwt fiber.Handler) {
	r.Get("/wallets/:id/nonce", h.NonceByWallet)
	r.Get("/users/:id/nonce", h.NonceByUser)
	r.Get("/me", jwt, h.Me)
}
