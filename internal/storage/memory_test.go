package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbook/internal/core"
	"spendbook/internal/identity"
	"spendbook/internal/records"
)

var (
	_ records.Store  = (*MemoryStore)(nil)
	_ identity.Store = (*MemoryStore)(nil)
)

func TestMemoryStoreRecordLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.CreateRecord(ctx, testRecord("alice"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	created.Text = "market"
	updated, err := store.UpdateRecord(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "market", updated.Text)

	newer := testRecord("alice")
	newer.Date = core.NewDate(2024, 3, 10)
	_, err = store.CreateRecord(ctx, newer)
	require.NoError(t, err)

	list, err := store.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Date.After(list[1].Date.Time))

	require.NoError(t, store.DeleteRecord(ctx, created.ID))
	assert.ErrorIs(t, store.DeleteRecord(ctx, created.ID), core.ErrNotFound)
}

func TestMemoryStoreUsersAndSessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, identity.ErrUserExists)

	got, hash, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", hash)
}
