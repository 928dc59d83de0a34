package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/myriad-social/myriad_api/internal/apperr"
	"github.com/myriad-social/myriad_api/internal/identity"
	"github.com/myriad-social/myriad_api/internal/otp"
	"github.com/myriad-social/myriad_api/internal/signature"
	"github.com/myriad-social/myriad_api/internal/wallet"
)

// Route names the endpoints protected by the Guard.
type Route string

const (
	RouteSignup      Route = "signup"
	RouteSignupEmail Route = "signup/email"
	RouteLogin       Route = "login"
	RouteLoginOTP    Route = "login/otp"
)

const verifiedKey = "auth.verified"

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Username    string   `json:"username"`
	Permissions []string `json:"permissions"`
	FullAccess  bool     `json:"fullAccess"`
	Address     string   `json:"address"`
	Network     string   `json:"network"`
	Nonce       int64    `json:"nonce"`
	Signature   string   `json:"signature"`
}

// EmailSignupRequest is the body of POST /signup/email.
type EmailSignupRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	CallbackURL string `json:"callbackURL"`
}

// Credential is the body of POST /login. Data is filled in by the Guard.
type Credential struct {
	Nonce         int64  `json:"nonce"`
	PublicAddress string `json:"publicAddress"`
	Signature     string `json:"signature"`
	NetworkType   string `json:"networkType"`
}

// OTPLoginRequest is the body of POST /login/otp.
type OTPLoginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Verified is what the Guard hands to the handler once the proof checked out.
type Verified struct {
	Route       Route
	Signup      *SignupRequest
	EmailSignup *EmailSignupRequest
	// User is the authenticated user, unset for signups and pending email signups.
	User *identity.User
	// Pending is set when an OTP login completes an email signup.
	Pending      *identity.PendingSignup
	PendingToken string
	// Data holds the identity claims for login routes.
	Data Claims
}

// Guard validates the inbound proof (signature or OTP) of the authentication
// routes before their handlers run.
type Guard struct {
	users   *identity.Service
	wallets *wallet.Service
	otp     *otp.Service
	pending *identity.PendingStore
	logger  *slog.Logger
}

// NewGuard builds the guard shared by all authentication routes.
func NewGuard(users *identity.Service, wallets *wallet.Service, otpSvc *otp.Service, pending *identity.PendingStore, logger *slog.Logger) *Guard {
	return &Guard{users: users, wallets: wallets, otp: otpSvc, pending: pending, logger: logger}
}

// Require returns the middleware protecting route. The handler behind it can
// read the outcome with VerifiedFrom.
func (g *Guard) Require(route Route) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := g.verify(c, route)
		if err != nil {
			if g.logger != nil && errors.Is(err, apperr.ErrAuthentication) {
				g.logger.Warn("authentication rejected", slog.String("route", string(route)), slog.String("ip", c.IP()), slog.Any("error", err))
			}
			return err
		}
		c.Locals(verifiedKey, v)
		return c.Next()
	}
}

// VerifiedFrom returns the Guard outcome stored on the request.
func VerifiedFrom(c *fiber.Ctx) (*Verified, bool) {
	v, ok := c.Locals(verifiedKey).(*Verified)
	return v, ok
}

func (g *Guard) verify(c *fiber.Ctx, route Route) (*Verified, error) {
	ctx := c.UserContext()
	v := &Verified{Route: route}

	switch route {
	case RouteSignup:
		var req SignupRequest
		if err := c.BodyParser(&req); err != nil {
			return nil, fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.Address == "" || req.Network == "" || req.Signature == "" {
			return nil, apperr.Validation("address, network and signature are required")
		}
		network, err := g.wallets.Network(ctx, req.Network)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("unknown network %q", req.Network)
		}
		if err != nil {
			return nil, err
		}
		if _, err := g.wallets.Get(ctx, req.Address); err == nil {
			return nil, apperr.Validation("wallet already exists")
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if err := g.users.EnsureAvailable(ctx, req.ID, req.Username, ""); err != nil {
			return nil, err
		}
		// A wallet without a user is at nonce 0.
		if req.Nonce != 0 {
			return nil, apperr.Authentication("invalid nonce")
		}
		if err := signature.Verify(network.Platform, req.Address, signature.NonceMessage(0), req.Signature); err != nil {
			return nil, apperr.Authentication("invalid signature")
		}
		v.Signup = &req

	case RouteSignupEmail:
		var req EmailSignupRequest
		if err := c.BodyParser(&req); err != nil {
			return nil, fiber.NewError(http.StatusBadRequest, err.Error())
		}
		email, err := otp.NormalizeEmail(req.Email)
		if err != nil {
			return nil, err
		}
		req.Email = email
		if req.Name == "" {
			return nil, apperr.Validation("name is required")
		}
		if !identity.ValidUsername(req.Username) {
			return nil, apperr.Validation("invalid username")
		}
		if err := g.users.EnsureAvailable(ctx, req.ID, req.Username, req.Email); err != nil {
			return nil, err
		}
		v.EmailSignup = &req

	case RouteLogin:
		var cred Credential
		if err := c.BodyParser(&cred); err != nil {
			return nil, fiber.NewError(http.StatusBadRequest, err.Error())
		}
		w, err := g.wallets.Get(ctx, cred.PublicAddress)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Authentication("invalid credential")
		}
		if err != nil {
			return nil, err
		}
		if cred.NetworkType != "" && cred.NetworkType != w.NetworkID {
			return nil, apperr.Authentication("invalid credential")
		}
		network, err := g.wallets.Network(ctx, w.NetworkID)
		if err != nil {
			return nil, err
		}
		user, err := g.users.Get(ctx, w.UserID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Authentication("invalid credential")
		}
		if err != nil {
			return nil, err
		}
		if cred.Nonce != user.Nonce {
			return nil, apperr.Authentication("invalid nonce")
		}
		if err := signature.Verify(network.Platform, w.ID, signature.NonceMessage(user.Nonce), cred.Signature); err != nil {
			return nil, apperr.Authentication("invalid signature")
		}
		v.User = &user
		v.Data = claimsOf(user)

	case RouteLoginOTP:
		var req OTPLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return nil, fiber.NewError(http.StatusBadRequest, err.Error())
		}
		claims, err := g.otp.Verify(ctx, req.Email, req.Code)
		if err != nil {
			return nil, err
		}
		user, err := g.users.FindByEmail(ctx, claims.Email)
		switch {
		case err == nil:
			v.User = &user
			v.Data = claimsOf(user)
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		case claims.SignupToken == "":
			return nil, apperr.Authentication("user not registered")
		default:
			pending, err := g.pending.Get(ctx, claims.SignupToken)
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.Authentication("signup request expired")
			}
			if err != nil {
				return nil, err
			}
			v.Pending = &pending
			v.PendingToken = claims.SignupToken
			v.Data = Claims{ID: pending.ID, Name: pending.Name, Username: pending.Username, Email: pending.Email}
		}

	default:
		return nil, fiber.NewError(http.StatusInternalServerError, "unknown authentication route")
	}
	return v, nil
}

func claimsOf(u identity.User) Claims {
	return Claims{ID: u.ID, Name: u.Name, Username: u.Username, Email: u.Email}
}
