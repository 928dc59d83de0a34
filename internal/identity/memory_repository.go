package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/myriad-social/myriad_api/internal/apperr"
)

type memoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.ID]; exists {
		return fmt.Errorf("user %s: %w", user.ID, apperr.ErrConflict)
	}
	for _, u := range r.users {
		if u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
			return fmt.Errorf("user %s: %w", user.Username, apperr.ErrConflict)
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return user, nil
}

func (r *memoryRepository) FindByUsername(_ context.Context, username string) (User, error) {
	return r.findBy(func(u User) bool { return u.Username == username })
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	return r.findBy(func(u User) bool { return email != "" && u.Email == email })
}

func (r *memoryRepository) findBy(match func(User) bool) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user: %w", apperr.ErrNotFound)
}

func (r *memoryRepository) AdvanceNonce(_ context.Context, id string, expected int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return 0, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	if user.Nonce != expected {
		return 0, ErrNonceConflict
	}
	user.Nonce++
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return user.Nonce, nil
}
