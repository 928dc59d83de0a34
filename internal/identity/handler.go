package identity

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the nonce endpoints wallets sign against.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type nonceResponse struct {
	Nonce int64 `json:"nonce"`
}

// NonceByWallet answers GET /wallets/:id/nonce.
func (h *Handler) NonceByWallet(c *fiber.Ctx) error {
	nonce, err := h.service.NonceByWallet(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(nonceResponse{Nonce: nonce})
}

// NonceByUser answers GET /users/:id/nonce?platform=.
func (h *Handler) NonceByUser(c *fiber.Ctx) error {
	nonce, err := h.service.NonceByUser(c.UserContext(), c.Params("id"), c.Query("platform"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(nonceResponse{Nonce: nonce})
}

// Me returns the user whose id the authentication middleware stored under "user_id".
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.service.Get(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"id":          user.ID,
		"name":        user.Name,
		"username":    user.Username,
		"email":       user.Email,
		"nonce":       user.Nonce,
		"permissions": user.Permissions,
		"fullAccess":  user.FullAccess,
		"createdAt":   user.CreatedAt,
	})
}
