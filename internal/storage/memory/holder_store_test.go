package memory

import (
	"context"
	"errors"
	"testing"

	"pump-sentinel/internal/storage"
)

func TestHolderStore_UpsertAccumulates(t *testing.T) {
	store := NewHolderStore()
	ctx := context.Background()

	store.UpsertBalance(ctx, "mint1", "w1", 100, 1000)
	store.UpsertBalance(ctx, "mint1", "w1", 50, 1010)
	store.UpsertBalance(ctx, "mint1", "w1", -30, 1020)

	balance, err := store.CreatorBalance(ctx, "mint1", "w1")
	if err != nil {
		t.Fatalf("CreatorBalance failed: %v", err)
	}
	if balance != 120 {
		t.Errorf("balance = %v, want 120", balance)
	}
}

func TestHolderStore_BalanceFloorsAtZero(t *testing.T) {
	store := NewHolderStore()
	ctx := context.Background()

	store.UpsertBalance(ctx, "mint1", "w1", 10, 1000)
	store.UpsertBalance(ctx, "mint1", "w1", -50, 1010)

	balance, _ := store.CreatorBalance(ctx, "mint1", "w1")
	if balance != 0 {
		t.Errorf("balance = %v, want 0 after overdraw", balance)
	}
}

func TestHolderStore_TopHolders(t *testing.T) {
	store := NewHolderStore()
	ctx := context.Background()

	store.UpsertBalance(ctx, "mint1", "w1", 100, 1000)
	store.UpsertBalance(ctx, "mint1", "w2", 500, 1000)
	store.UpsertBalance(ctx, "mint1", "w3", 250, 1000)
	store.UpsertBalance(ctx, "mint1", "w4", 10, 1000)
	store.UpsertBalance(ctx, "mint2", "w9", 999, 1000)

	top, err := store.TopHolders(ctx, "mint1", 3)
	if err != nil {
		t.Fatalf("TopHolders failed: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("Expected 3 holders, got %d", len(top))
	}
	if top[0].Holder != "w2" || top[1].Holder != "w3" || top[2].Holder != "w1" {
		t.Errorf("wrong ordering: %v %v %v", top[0].Holder, top[1].Holder, top[2].Holder)
	}
}

func TestHolderStore_CountSkipsEmptied(t *testing.T) {
	store := NewHolderStore()
	ctx := context.Background()

	store.UpsertBalance(ctx, "mint1", "w1", 100, 1000)
	store.UpsertBalance(ctx, "mint1", "w2", 50, 1000)
	store.UpsertBalance(ctx, "mint1", "w2", -50, 1010)

	count, err := store.Count(ctx, "mint1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (emptied position excluded)", count)
	}
}

func TestHolderStore_CreatorBalance_Unknown(t *testing.T) {
	store := NewHolderStore()

	balance, err := store.CreatorBalance(context.Background(), "mint1", "never")
	if err != nil {
		t.Fatalf("CreatorBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %v, want 0", balance)
	}
}

func TestHolderStore_InvalidInput(t *testing.T) {
	store := NewHolderStore()

	err := store.UpsertBalance(context.Background(), "", "w1", 1, 1000)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
