package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/myriad-social/myriad_api/internal/identity"
	"github.com/myriad-social/myriad_api/internal/otp"
	"github.com/myriad-social/myriad_api/internal/wallet"
)

// Service runs the authentication flows once the Guard accepted the proof.
type Service struct {
	users   *identity.Service
	wallets *wallet.Service
	otp     *otp.Service
	pending *identity.PendingStore
	tokens  *TokenService
	refresh *RefreshService
	logger  *slog.Logger
}

// NewService wires the authentication orchestrator.
func NewService(users *identity.Service, wallets *wallet.Service, otpSvc *otp.Service, pending *identity.PendingStore, tokens *TokenService, refresh *RefreshService, logger *slog.Logger) *Service {
	return &Service{users: users, wallets: wallets, otp: otpSvc, pending: pending, tokens: tokens, refresh: refresh, logger: logger}
}

// SignupByWallet creates the user and its primary wallet. Only id, name,
// username, permissions and fullAccess are taken from the request. The
// signup consumed nonce 0, so the user starts at 1.
func (s *Service) SignupByWallet(ctx context.Context, req SignupRequest) (identity.User, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.wallets.Register(ctx, wallet.RegisterInput{Address: req.Address, UserID: id, NetworkID: req.Network, Primary: true}); err != nil {
		return identity.User{}, fmt.Errorf("register wallet: %w", err)
	}
	user, err := s.users.Create(ctx, identity.User{
		ID:          id,
		Name:        req.Name,
		Username:    req.Username,
		Permissions: req.Permissions,
		FullAccess:  req.FullAccess,
		Nonce:       1,
	})
	if err != nil {
		if rmErr := s.wallets.Remove(ctx, req.Address); rmErr != nil && s.logger != nil {
			s.logger.Error("undo wallet registration", slog.String("wallet", req.Address), slog.Any("error", rmErr))
		}
		return identity.User{}, err
	}
	if s.logger != nil {
		s.logger.Info("auth.signup completed", slog.String("user_id", user.ID), slog.String("network", req.Network))
	}
	return user, nil
}

// SignupByEmail mails an OTP and parks the partial user for PendingSignupTTL.
// The returned user is provisional: nothing is persisted until the OTP is redeemed.
func (s *Service) SignupByEmail(ctx context.Context, req EmailSignupRequest) (identity.User, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	profile := otp.Profile{ID: id, Name: req.Name, Username: req.Username, Email: req.Email}
	res, err := s.otp.RequestByEmail(ctx, req.Email, req.CallbackURL, &profile)
	if err != nil {
		return identity.User{}, err
	}
	pending := identity.PendingSignup{ID: id, Name: req.Name, Username: req.Username, Email: req.Email}
	if err := s.pending.Put(ctx, res.Token, pending); err != nil {
		return identity.User{}, fmt.Errorf("store pending signup: %w", err)
	}
	return identity.User{ID: id, Name: req.Name, Username: req.Username, Email: req.Email}, nil
}

// Login consumes the verified nonce and issues tokens. Of several requests
// signed over the same nonce only one gets past the nonce advance.
func (s *Service) Login(ctx context.Context, v *Verified) (TokenObject, error) {
	if _, err := s.users.AdvanceNonce(ctx, v.User.ID, v.User.Nonce); err != nil {
		return TokenObject{}, err
	}
	return s.issue(ctx, v.Data)
}

// LoginByOTP completes a pending email signup when there is one, advances
// the user's nonce and issues tokens.
func (s *Service) LoginByOTP(ctx context.Context, v *Verified) (TokenObject, error) {
	user := v.User
	if v.Pending != nil {
		pending, err := s.pending.Consume(ctx, v.PendingToken)
		if err != nil {
			return TokenObject{}, err
		}
		created, err := s.users.Create(ctx, identity.User{
			ID:       pending.ID,
			Name:     pending.Name,
			Username: pending.Username,
			Email:    pending.Email,
		})
		if err != nil {
			// Park the signup again so it survives until its TTL; the OTP is spent.
			if putErr := s.pending.Put(ctx, v.PendingToken, pending); putErr != nil && s.logger != nil {
				s.logger.Warn("restore pending signup", slog.String("user_id", pending.ID), slog.Any("error", putErr))
			}
			return TokenObject{}, fmt.Errorf("create user from pending signup: %w", err)
		}
		if s.logger != nil {
			s.logger.Info("auth.signup_email completed", slog.String("user_id", created.ID))
		}
		user = &created
	}
	if _, err := s.users.AdvanceNonce(ctx, user.ID, user.Nonce); err != nil {
		return TokenObject{}, err
	}
	return s.issue(ctx, claimsOf(*user))
}

// Refresh reissues an access token from a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenObject, error) {
	return s.refresh.RefreshToken(ctx, refreshToken)
}

// RequestOTP mails a login code to email.
func (s *Service) RequestOTP(ctx context.Context, email, callbackURL string) error {
	_, err := s.otp.RequestByEmail(ctx, email, callbackURL, nil)
	return err
}

func (s *Service) issue(ctx context.Context, claims Claims) (TokenObject, error) {
	access, err := s.tokens.GenerateToken(claims)
	if err != nil {
		return TokenObject{}, err
	}
	refresh, err := s.refresh.Issue(ctx, claims)
	if err != nil {
		return TokenObject{}, err
	}
	return TokenObject{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.tokens.ExpiresIn(),
		TokenType:    TokenTypeBearer,
	}, nil
}
