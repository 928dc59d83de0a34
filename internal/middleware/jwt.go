package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/auth"
)

// JWTAuth returns a middleware that validates bearer access tokens and
// exposes the subject as the "user_id" local and the claims as "claims".
func JWTAuth(tokens *auth.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.ParseToken(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals("user_id", claims.ID)
		c.Locals("claims", claims)
		return c.Next()
	}
}
