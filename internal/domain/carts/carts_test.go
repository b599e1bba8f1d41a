package carts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func variant(id int64) *int64 { return &id }

func TestAddItemMergesSamePair(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := GuestOwner("guest-1")

	require.NoError(t, store.AddItem(ctx, owner, 10, variant(3), 1, 1000))
	require.NoError(t, store.AddItem(ctx, owner, 10, variant(3), 2, 900))

	view, err := store.GetView(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	// display price refreshed on re-add
	assert.Equal(t, int64(900), view.Items[0].DisplayPriceCents)
}

func TestAddItemDistinctVariantsAreSeparateLines(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := GuestOwner("guest-1")

	require.NoError(t, store.AddItem(ctx, owner, 10, variant(3), 1, 1000))
	require.NoError(t, store.AddItem(ctx, owner, 10, variant(4), 1, 1200))
	require.NoError(t, store.AddItem(ctx, owner, 10, nil, 1, 800))

	view, err := store.GetView(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, view.Items, 3)
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := UserOwner(7)

	assert.ErrorIs(t, store.AddItem(ctx, owner, 10, nil, 0, 1000), ErrInvalidQuantity)
	assert.ErrorIs(t, store.AddItem(ctx, owner, 10, nil, -2, 1000), ErrInvalidQuantity)
}

func TestUpdateQtyZeroRemovesLine(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := UserOwner(7)

	require.NoError(t, store.AddItem(ctx, owner, 10, nil, 2, 1000))
	view, err := store.GetView(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	require.NoError(t, store.UpdateItemQty(ctx, owner, view.Items[0].ItemID, 0))

	view, err = store.GetView(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := UserOwner(7)

	require.NoError(t, store.RemoveItem(ctx, owner, 99))
	require.NoError(t, store.RemoveItem(ctx, owner, 99))
}

func TestSubtotalIsIdempotentAndLive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := GuestOwner("guest-2")

	require.NoError(t, store.AddItem(ctx, owner, 1, nil, 2, 800))
	require.NoError(t, store.AddItem(ctx, owner, 2, nil, 1, 250))

	first, err := store.GetView(ctx, owner)
	require.NoError(t, err)
	second, err := store.GetView(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, int64(1850), first.SubtotalCents)
	assert.Equal(t, first.SubtotalCents, second.SubtotalCents)
}

func TestClearEmptiesCart(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	owner := UserOwner(3)

	require.NoError(t, store.AddItem(ctx, owner, 1, nil, 5, 100))
	require.NoError(t, store.Clear(ctx, owner))

	view, err := store.GetView(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.SubtotalCents)
}

func TestOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.AddItem(ctx, GuestOwner("a"), 1, nil, 1, 100))
	require.NoError(t, store.AddItem(ctx, UserOwner(1), 2, nil, 1, 200))

	guest, err := store.GetView(ctx, GuestOwner("a"))
	require.NoError(t, err)
	user, err := store.GetView(ctx, UserOwner(1))
	require.NoError(t, err)

	require.Len(t, guest.Items, 1)
	require.Len(t, user.Items, 1)
	assert.Equal(t, int64(1), guest.Items[0].ProductID)
	assert.Equal(t, int64(2), user.Items[0].ProductID)
}

// failingStore simulates an unreachable primary backend.
type failingStore struct{}

var errDown = errors.New("connection refused")

func (failingStore) EnsureActive(context.Context, Owner) (int64, error) { return 0, errDown }
func (failingStore) AddItem(context.Context, Owner, int64, *int64, int, int64) error {
	return errDown
}
func (failingStore) UpdateItemQty(context.Context, Owner, int64, int) error { return errDown }
func (failingStore) RemoveItem(context.Context, Owner, int64) error         { return errDown }
func (failingStore) Clear(context.Context, Owner) error                     { return errDown }
func (failingStore) GetView(context.Context, Owner) (*CartView, error)      { return nil, errDown }

func TestResilientFallsBackWithoutSurfacingErrors(t *testing.T) {
	ctx := context.Background()
	store := NewResilient(failingStore{}, NewMemoryStore(), zap.NewNop().Sugar())
	owner := GuestOwner("degraded")

	// Mutations must not propagate persistence failures.
	require.NoError(t, store.AddItem(ctx, owner, 1, nil, 2, 500))

	view, err := store.GetView(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(1000), view.SubtotalCents)
}

func TestResilientStillValidatesQuantity(t *testing.T) {
	store := NewResilient(failingStore{}, NewMemoryStore(), zap.NewNop().Sugar())
	err := store.AddItem(context.Background(), UserOwner(1), 1, nil, 0, 500)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

// notFoundStore wraps the sentinel the way a repository layer might.
type notFoundStore struct{ failingStore }

func (notFoundStore) UpdateItemQty(context.Context, Owner, int64, int) error {
	return fmt.Errorf("update item qty: %w", ErrItemNotFound)
}

func TestResilientSurfacesWrappedNotFound(t *testing.T) {
	store := NewResilient(notFoundStore{}, failingStore{}, zap.NewNop().Sugar())
	err := store.UpdateItemQty(context.Background(), UserOwner(1), 5, 2)

	assert.ErrorIs(t, err, ErrItemNotFound)
	// A fallback reroute would have returned the connection error instead.
	assert.NotErrorIs(t, err, errDown)
}
