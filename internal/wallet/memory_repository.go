package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/myriad-social/myriad_api/internal/apperr"
)

type memoryRepository struct {
	mu       sync.RWMutex
	storage  map[string]Wallet
	networks map[string]Network
}

// NewMemoryRepository constructs an in-memory repository seeded with DefaultNetworks.
func NewMemoryRepository() Repository {
	r := &memoryRepository{storage: make(map[string]Wallet), networks: make(map[string]Network)}
	for _, n := range DefaultNetworks {
		r.networks[n.ID] = n
	}
	return r
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[wallet.ID]; exists {
		return fmt.Errorf("wallet %s: %w", wallet.ID, apperr.ErrConflict)
	}
	r.storage[wallet.ID] = wallet
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.storage, id)
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, fmt.Errorf("wallet %s: %w", id, apperr.ErrNotFound)
	}
	return wallet, nil
}

func (r *memoryRepository) FindByUser(_ context.Context, userID string, networkIDs []string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	allowed := make(map[string]bool, len(networkIDs))
	for _, id := range networkIDs {
		allowed[id] = true
	}
	var found *Wallet
	for _, w := range r.storage {
		if w.UserID != userID || !allowed[w.NetworkID] {
			continue
		}
		if found == nil || (w.Primary && !found.Primary) {
			w := w
			found = &w
		}
	}
	if found == nil {
		return Wallet{}, fmt.Errorf("wallet of user %s: %w", userID, apperr.ErrNotFound)
	}
	return *found, nil
}

func (r *memoryRepository) Network(_ context.Context, id string) (Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.networks[id]
	if !ok {
		return Network{}, fmt.Errorf("network %s: %w", id, apperr.ErrNotFound)
	}
	return n, nil
}

func (r *memoryRepository) NetworksByPlatform(_ context.Context, platform string) ([]Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Network
	for _, n := range r.networks {
		if n.Platform == platform {
			out = append(out, n)
		}
	}
	return out, nil
}
