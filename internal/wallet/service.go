package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/myriad-social/myriad_api/internal/apperr"
)

// Service exposes wallet and network lookups.
type Service struct {
	repo Repository
}

// NewService builds a wallet service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures data required to attach a wallet to a user.
type RegisterInput struct {
	Address   string
	UserID    string
	NetworkID string
	Primary   bool
}

// Register stores a new wallet for the user. The network must exist.
func (s *Service) Register(ctx context.Context, input RegisterInput) (Wallet, error) {
	if _, err := s.repo.Network(ctx, input.NetworkID); err != nil {
		return Wallet{}, err
	}
	w := Wallet{
		ID:        NormalizeAddress(input.Address),
		UserID:    input.UserID,
		NetworkID: input.NetworkID,
		Primary:   input.Primary,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Remove deletes a wallet. Used to undo a registration whose user insert failed.
func (s *Service) Remove(ctx context.Context, address string) error {
	return s.repo.Delete(ctx, NormalizeAddress(address))
}

// Get retrieves a wallet by address.
func (s *Service) Get(ctx context.Context, address string) (Wallet, error) {
	return s.repo.Get(ctx, NormalizeAddress(address))
}

// Network retrieves a network by identifier.
func (s *Service) Network(ctx context.Context, id string) (Network, error) {
	return s.repo.Network(ctx, id)
}

// OwnedOnPlatform reports whether userID holds a wallet on any network of platform.
func (s *Service) OwnedOnPlatform(ctx context.Context, userID, platform string) (bool, error) {
	networks, err := s.repo.NetworksByPlatform(ctx, platform)
	if err != nil {
		return false, err
	}
	if len(networks) == 0 {
		return false, nil
	}
	ids := make([]string, len(networks))
	for i, n := range networks {
		ids[i] = n.ID
	}
	_, err = s.repo.FindByUser(ctx, userID, ids)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find wallet on %s: %w", platform, err)
	}
	return true, nil
}
