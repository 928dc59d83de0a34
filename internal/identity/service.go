package identity

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/myriad-social/myriad_api/internal/apperr"
	"github.com/myriad-social/myriad_api/internal/wallet"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,16}$`)

// Service manages users and their nonces.
type Service struct {
	repo    Repository
	wallets *wallet.Service
}

// NewService creates a new identity service.
func NewService(repo Repository, wallets *wallet.Service) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// NonceByWallet returns the nonce of the user owning walletID, or 0 when
// the wallet or its user does not exist.
func (s *Service) NonceByWallet(ctx context.Context, walletID string) (int64, error) {
	w, err := s.wallets.Get(ctx, walletID)
	if errors.Is(err, apperr.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return s.nonceOf(ctx, w.UserID)
}

// NonceByUser returns the user's nonce. With a platform, the nonce is only
// reported when the user owns a wallet on that platform; otherwise 0.
func (s *Service) NonceByUser(ctx context.Context, userID, platform string) (int64, error) {
	if platform != "" {
		owned, err := s.wallets.OwnedOnPlatform(ctx, userID, platform)
		if err != nil {
			return 0, err
		}
		if !owned {
			return 0, nil
		}
	}
	return s.nonceOf(ctx, userID)
}

func (s *Service) nonceOf(ctx context.Context, userID string) (int64, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return user.Nonce, nil
}

// Get fetches a user by identifier.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByEmail fetches a user by email address.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// EnsureAvailable rejects an id, username or email that already belongs to a user.
func (s *Service) EnsureAvailable(ctx context.Context, id, username, email string) error {
	checks := []struct {
		value string
		find  func(context.Context, string) (User, error)
		field string
	}{
		{id, s.repo.FindByID, "id"},
		{username, s.repo.FindByUsername, "username"},
		{email, s.repo.FindByEmail, "email"},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		_, err := c.find(ctx, c.value)
		if err == nil {
			return apperr.Validation("%s already exists", c.field)
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Create validates and stores a new user.
func (s *Service) Create(ctx context.Context, user User) (User, error) {
	if user.ID == "" {
		return User{}, apperr.Validation("id is required")
	}
	if user.Name == "" {
		return User{}, apperr.Validation("name is required")
	}
	if !ValidUsername(user.Username) {
		return User{}, apperr.Validation("username must be 3-16 characters of a-z, 0-9, '_' or '.'")
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// AdvanceNonce consumes the user's current nonce. Exactly one of several
// concurrent callers holding the same expected value succeeds.
func (s *Service) AdvanceNonce(ctx context.Context, userID string, expected int64) (int64, error) {
	return s.repo.AdvanceNonce(ctx, userID, expected)
}

// ValidUsername reports whether username matches the allowed pattern.
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}
