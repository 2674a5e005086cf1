package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "local.db"))

	_, err := s.Get(ctx, "dev_user")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "dev_user", `{"id":"dev-a"}`))
	require.NoError(t, s.Set(ctx, "dev_user", `{"id":"dev-b"}`))

	v, err := s.Get(ctx, "dev_user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"dev-b"}`, v)

	require.NoError(t, s.Remove(ctx, "dev_user"))
	require.NoError(t, s.Remove(ctx, "dev_user"))
	_, err = s.Get(ctx, "dev_user")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	first, err := OpenSQLite(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "k", "v"))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	v, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
