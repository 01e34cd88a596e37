package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAddIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedEntry(t, db, "A1", "Widget")

	require.NoError(t, db.AddToCart(ctx, "alice", "A1"))
	require.NoError(t, db.AddToCart(ctx, "alice", "A1"))

	entries, err := db.GetCart(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCartRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedEntry(t, db, "A1", "Widget")

	require.NoError(t, db.AddToCart(ctx, "alice", "A1"))

	removed, err := db.RemoveFromCart(ctx, "alice", "A1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = db.RemoveFromCart(ctx, "alice", "A1")
	require.NoError(t, err)
	assert.False(t, removed, "removing an absent pair reports false")
}

func TestCartOrderedByName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedEntry(t, db, "A1", "Widget")
	seedEntry(t, db, "B2", "Gadget")

	require.NoError(t, db.AddToCart(ctx, "alice", "A1"))
	require.NoError(t, db.AddToCart(ctx, "alice", "B2"))

	entries, err := db.GetCart(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Gadget", entries[0].Name)
	assert.Equal(t, "Widget", entries[1].Name)
}

func TestCartToleratesUnknownEntry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// No validation at add time; the ghost id simply doesn't join.
	require.NoError(t, db.AddToCart(ctx, "alice", "ghost"))

	ids, err := db.CartEntryIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, ids)

	entries, err := db.GetCart(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCartIsPerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedEntry(t, db, "A1", "Widget")

	require.NoError(t, db.AddToCart(ctx, "alice", "A1"))

	entries, err := db.GetCart(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClearCart(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedEntry(t, db, "A1", "Widget")
	seedEntry(t, db, "B2", "Gadget")

	require.NoError(t, db.AddToCart(ctx, "alice", "A1"))
	require.NoError(t, db.AddToCart(ctx, "alice", "B2"))
	require.NoError(t, db.ClearCart(ctx, "alice"))

	ids, err := db.CartEntryIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
