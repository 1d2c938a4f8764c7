package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_SetGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, ok, err := db.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Set(ctx, "a", "1"))
	v, ok, err := db.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, db.Set(ctx, "a", "2"))
	v, _, err = db.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestDB_Remove(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "a", "1"))
	require.NoError(t, db.Remove(ctx, "a"))
	require.NoError(t, db.Remove(ctx, "never-there"))

	_, ok, err := db.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDB_Keys(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, k := range []string{"day:2026-01-02", "day:2026-01-01", "settings", "dayz"} {
		require.NoError(t, db.Set(ctx, k, "x"))
	}

	keys, err := db.Keys(ctx, "day:")
	require.NoError(t, err)
	assert.Equal(t, []string{"day:2026-01-01", "day:2026-01-02"}, keys)
}

func TestDB_UpdateCommits(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	err := db.Update(ctx, func(ctx context.Context) error {
		if err := db.Set(ctx, "a", "1"); err != nil {
			return err
		}
		v, ok, err := db.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "1", v)
		return db.Set(ctx, "b", "2")
	})
	require.NoError(t, err)

	keys, err := db.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestDB_UpdateRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Set(ctx, "a", "old"))

	boom := errors.New("boom")
	err := db.Update(ctx, func(ctx context.Context) error {
		require.NoError(t, db.Set(ctx, "a", "new"))
		require.NoError(t, db.Remove(ctx, "a"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	v, ok, err := db.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "old", v)
}

func TestDB_ClosedFails(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.Error(t, db.Set(context.Background(), "a", "1"))
}
