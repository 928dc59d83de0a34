package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/myriad-social/myriad_api/internal/apperr"
	"github.com/myriad-social/myriad_api/internal/kv"
)

// PendingSignupTTL bounds how long an email signup waits for its OTP.
const PendingSignupTTL = 30 * time.Minute

const pendingPrefix = "sign-up/"

// PendingStore keeps PendingSignup records keyed by their signup token.
type PendingStore struct {
	kv  kv.Store
	ttl time.Duration
}

// NewPendingStore builds a PendingStore with the standard 30 minute TTL.
func NewPendingStore(store kv.Store) *PendingStore {
	return &PendingStore{kv: store, ttl: PendingSignupTTL}
}

// Put stores the record. A token can only ever hold one record.
func (s *PendingStore) Put(ctx context.Context, token string, signup PendingSignup) error {
	payload, err := json.Marshal(signup)
	if err != nil {
		return err
	}
	ok, err := s.kv.SetNX(ctx, pendingPrefix+token, payload, s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("pending signup %s: %w", token, apperr.ErrConflict)
	}
	return nil
}

// Get reads the record without consuming it.
func (s *PendingStore) Get(ctx context.Context, token string) (PendingSignup, error) {
	return s.read(s.kv.Get(ctx, pendingPrefix+token))
}

// Consume reads and deletes the record in one step.
func (s *PendingStore) Consume(ctx context.Context, token string) (PendingSignup, error) {
	return s.read(s.kv.GetDel(ctx, pendingPrefix+token))
}

func (s *PendingStore) read(payload []byte, err error) (PendingSignup, error) {
	if errors.Is(err, kv.ErrNotFound) {
		return PendingSignup{}, fmt.Errorf("pending signup: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return PendingSignup{}, err
	}
	var signup PendingSignup
	if err := json.Unmarshal(payload, &signup); err != nil {
		return PendingSignup{}, fmt.Errorf("decode pending signup: %w", err)
	}
	return signup, nil
}
