package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/myriad-social/myriad_api/internal/apperr"
)

func TestRegisterAndLookup(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	w, err := svc.Register(ctx, RegisterInput{Address: "0xABCdef", UserID: "user-1", NetworkID: "ethereum", Primary: true})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if w.ID != "0xabcdef" {
		t.Fatalf("expected normalized address, got %s", w.ID)
	}

	fetched, err := svc.Get(ctx, "0xAbCdEf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.UserID != "user-1" {
		t.Fatalf("expected owner user-1, got %s", fetched.UserID)
	}

	if _, err := svc.Register(ctx, RegisterInput{Address: "0xabcdef", UserID: "user-2", NetworkID: "ethereum"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterUnknownNetwork(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	if _, err := svc.Register(context.Background(), RegisterInput{Address: "0x1", UserID: "u", NetworkID: "solana"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOwnedOnPlatform(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Address: "0x1", UserID: "u", NetworkID: "polygon"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	ok, err := svc.OwnedOnPlatform(ctx, "u", PlatformEthereum)
	if err != nil || !ok {
		t.Fatalf("expected ethereum wallet, got %v %v", ok, err)
	}
	ok, err = svc.OwnedOnPlatform(ctx, "u", PlatformNear)
	if err != nil || ok {
		t.Fatalf("expected no near wallet, got %v %v", ok, err)
	}
	ok, err = svc.OwnedOnPlatform(ctx, "u", "cosmos")
	if err != nil || ok {
		t.Fatalf("expected unknown platform to be false, got %v %v", ok, err)
	}
}
