package infra

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil || len(names) == 0 {
		t.Fatalf("expected embedded migrations, got %v %v", names, err)
	}
	script, err := migrations.ReadFile(names[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, table := range []string{"users", "wallets", "networks"} {
		if !strings.Contains(string(script), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("schema is missing table %s", table)
		}
	}
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0", "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	client.Close()

	if _, err := NewRedisClient(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
