package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

func TestCreateEventStore_InsertAndGetByMint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCreateEventStore(pool)

	e := &domain.CreateEvent{
		Mint:         "TestMint1",
		Name:         "Test Token",
		Symbol:       "TEST",
		URI:          "https://example.com/meta.json",
		BondingCurve: "TestCurve1",
		Creator:      "TestCreator1",
		Timestamp:    1700000000,
		Signature:    "TestSig1",
		Slot:         100,
	}

	err := store.Insert(ctx, e)
	require.NoError(t, err)

	got, err := store.GetByMint(ctx, "TestMint1")
	require.NoError(t, err)

	assert.Equal(t, e.Mint, got.Mint)
	assert.Equal(t, e.Name, got.Name)
	assert.Equal(t, e.Symbol, got.Symbol)
	assert.Equal(t, e.URI, got.URI)
	assert.Equal(t, e.BondingCurve, got.BondingCurve)
	assert.Equal(t, e.Creator, got.Creator)
	assert.Equal(t, e.Timestamp, got.Timestamp)
	assert.Equal(t, e.Signature, got.Signature)
	assert.Equal(t, e.Slot, got.Slot)
}

func TestCreateEventStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCreateEventStore(pool)

	e := &domain.CreateEvent{Mint: "TestMint1", Symbol: "ONE", Timestamp: 1700000000}
	require.NoError(t, store.Insert(ctx, e))

	err := store.Insert(ctx, &domain.CreateEvent{Mint: "TestMint1", Symbol: "TWO"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestCreateEventStore_GetByMint_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCreateEventStore(pool)

	_, err := store.GetByMint(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
