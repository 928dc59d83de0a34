package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/identity"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	svc *Service
}

// NewHandler wraps the authentication service.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type userResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	FullAccess  bool       `json:"fullAccess"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

func toUserResponse(u identity.User) userResponse {
	res := userResponse{ID: u.ID, Name: u.Name, Username: u.Username, Email: u.Email, Permissions: u.Permissions, FullAccess: u.FullAccess}
	if !u.CreatedAt.IsZero() {
		res.CreatedAt = &u.CreatedAt
	}
	return res
}

type otpRequest struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callbackURL"`
}

// RequestOTP mails a one-time code.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RequestOTP(c.UserContext(), req.Email, req.CallbackURL); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": fmt.Sprintf("OTP sent to %s", req.Email)})
}

// Signup registers a user by wallet.
func (h *Handler) Signup(c *fiber.Ctx) error {
	v, err := verified(c)
	if err != nil {
		return err
	}
	user, err := h.svc.SignupByWallet(c.UserContext(), *v.Signup)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toUserResponse(user))
}

// SignupByEmail starts an email signup.
func (h *Handler) SignupByEmail(c *fiber.Ctx) error {
	v, err := verified(c)
	if err != nil {
		return err
	}
	user, err := h.svc.SignupByEmail(c.UserContext(), *v.EmailSignup)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toUserResponse(user))
}

// Login exchanges a wallet signature for tokens.
func (h *Handler) Login(c *fiber.Ctx) error {
	v, err := verified(c)
	if err != nil {
		return err
	}
	tokens, err := h.svc.Login(c.UserContext(), v)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(tokens)
}

// LoginByOTP exchanges an emailed code for tokens.
func (h *Handler) LoginByOTP(c *fiber.Ctx) error {
	v, err := verified(c)
	if err != nil {
		return err
	}
	tokens, err := h.svc.LoginByOTP(c.UserContext(), v)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.RefreshToken == "" {
		return fiber.NewError(http.StatusUnprocessableEntity, "refreshToken is required")
	}
	tokens, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(tokens)
}

func verified(c *fiber.Ctx) (*Verified, error) {
	v, ok := VerifiedFrom(c)
	if !ok {
		return nil, fiber.NewError(http.StatusInternalServerError, "route is not guarded")
	}
	return v, nil
}
