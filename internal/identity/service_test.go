package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/myriad-social/myriad_api/internal/apperr"
	"github.com/myriad-social/myriad_api/internal/kv"
	"github.com/myriad-social/myriad_api/internal/wallet"
)

func newTestService(t *testing.T) (*Service, *wallet.Service) {
	t.Helper()
	wallets := wallet.NewService(wallet.NewMemoryRepository())
	return NewService(NewMemoryRepository(), wallets), wallets
}

func TestNonceLookups(t *testing.T) {
	svc, wallets := newTestService(t)
	ctx := context.Background()

	if n, err := svc.NonceByWallet(ctx, "0xmissing"); err != nil || n != 0 {
		t.Fatalf("expected 0 for unknown wallet, got %d %v", n, err)
	}
	if n, err := svc.NonceByUser(ctx, "nobody", ""); err != nil || n != 0 {
		t.Fatalf("expected 0 for unknown user, got %d %v", n, err)
	}

	if _, err := svc.Create(ctx, User{ID: "u1", Name: "Alice", Username: "alice", Nonce: 7}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := wallets.Register(ctx, wallet.RegisterInput{Address: "0xAA", UserID: "u1", NetworkID: "ethereum", Primary: true}); err != nil {
		t.Fatalf("register wallet: %v", err)
	}

	if n, _ := svc.NonceByWallet(ctx, "0xaa"); n != 7 {
		t.Fatalf("expected nonce 7 by wallet, got %d", n)
	}
	if n, _ := svc.NonceByUser(ctx, "u1", ""); n != 7 {
		t.Fatalf("expected nonce 7 by user, got %d", n)
	}
	if n, _ := svc.NonceByUser(ctx, "u1", wallet.PlatformEthereum); n != 7 {
		t.Fatalf("expected nonce 7 on ethereum, got %d", n)
	}
	if n, _ := svc.NonceByUser(ctx, "u1", wallet.PlatformNear); n != 0 {
		t.Fatalf("expected nonce 0 on near, got %d", n)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, User{ID: "u1", Name: "Bob", Username: "No Spaces"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Create(ctx, User{ID: "u1", Name: "Bob", Username: "bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.EnsureAvailable(ctx, "u2", "bob", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected username taken, got %v", err)
	}
	if err := svc.EnsureAvailable(ctx, "u2", "carol", "bob@example.com"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected email taken, got %v", err)
	}
	if err := svc.EnsureAvailable(ctx, "u2", "carol", "carol@example.com"); err != nil {
		t.Fatalf("expected available, got %v", err)
	}
}

func TestAdvanceNonceConcurrent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, User{ID: "u1", Name: "Alice", Username: "alice", Nonce: 3}); err != nil {
		t.Fatalf("create: %v", err)
	}

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdvanceNonce(ctx, "u1", 3)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNonceConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != attempts-1 {
		t.Fatalf("expected exactly one winner, got ok=%d conflicts=%d", ok, conflicts)
	}
	user, _ := svc.Get(ctx, "u1")
	if user.Nonce != 4 {
		t.Fatalf("expected nonce 4, got %d", user.Nonce)
	}
	if !errors.Is(ErrNonceConflict, apperr.ErrAuthentication) {
		t.Fatalf("nonce conflict must be an authentication error")
	}
}

func TestPendingSignupTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewPendingStore(kv.NewRedisStore(client, ""))
	ctx := context.Background()
	signup := PendingSignup{ID: "u1", Name: "Alice", Username: "alice", Email: "alice@example.com"}
	if err := store.Put(ctx, "tok", signup); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "tok", signup); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected single record per token, got %v", err)
	}
	if !mr.Exists("sign-up/tok") {
		t.Fatalf("expected key sign-up/tok")
	}

	mr.FastForward(29 * time.Minute)
	got, err := store.Get(ctx, "tok")
	if err != nil {
		t.Fatalf("expected record at T+29m: %v", err)
	}
	if got != signup {
		t.Fatalf("unexpected record %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "tok"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected record gone at T+31m, got %v", err)
	}
}

func TestPendingSignupConsumeOnce(t *testing.T) {
	store := NewPendingStore(kv.NewMemoryStore(nil))
	ctx := context.Background()
	if err := store.Put(ctx, "tok", PendingSignup{ID: "u1"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Consume(ctx, "tok"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := store.Consume(ctx, "tok"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected second consume to fail, got %v", err)
	}
}
