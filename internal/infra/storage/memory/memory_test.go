package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/walletview/internal/infra/storage"
)

func TestPreferenceRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewPreferenceRepo(NewMemoryStorage())

	if _, err := repo.Get(ctx, storage.NetworkKey); !errors.Is(err, storage.ErrPreferenceNotFound) {
		t.Fatalf("expected ErrPreferenceNotFound, got %v", err)
	}
	_ = repo.Set(ctx, storage.NetworkKey, "mainnet")
	_ = repo.Set(ctx, storage.NetworkKey, "testnet")

	got, err := repo.Get(ctx, storage.NetworkKey)
	if err != nil || got != "testnet" {
		t.Fatalf("expected testnet, got %q (%v)", got, err)
	}
}
