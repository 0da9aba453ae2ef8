package sqlite

import (
	"codeberg.org/miketth/keylamp/pkg/palette"
	"codeberg.org/miketth/keylamp/pkg/palette/sqlite/migrations"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "palette.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStoreSeeded(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, uint(1), store.SchemaVersion())

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []palette.Entry{
		{Layout: "ru", Color: palette.Red},
		{Layout: "us", Color: palette.Blue},
	}, entries)
}

func TestStoreSetAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "de", palette.Green))
	require.NoError(t, store.Set(ctx, "us", palette.White))
	require.NoError(t, store.Delete(ctx, "ru"))

	mem, err := store.Load(ctx)
	require.NoError(t, err)

	c, ok := mem.Lookup("de")
	assert.True(t, ok)
	assert.Equal(t, palette.Green, c)

	c, ok = mem.Lookup("us")
	assert.True(t, ok)
	assert.Equal(t, palette.White, c)

	_, ok = mem.Lookup("ru")
	assert.False(t, ok)
}

func TestStoreRejectsInvalidColor(t *testing.T) {
	store := newTestStore(t)
	err := store.Set(context.Background(), "de", palette.Color('7'))
	assert.ErrorIs(t, err, palette.ErrUnknownColor)
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "palette.db")
	log := zap.NewNop().Sugar()

	store, err := NewStore(path, log)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "de", palette.Green))
	require.NoError(t, store.Close())

	store, err = NewStore(path, log)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, uint(1), store.SchemaVersion())

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestStoreRefusesDirtySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.db")
	log := zap.NewNop().Sugar()

	store, err := NewStore(path, log)
	require.NoError(t, err)
	_, err = store.db.Exec("update schema_migrations set dirty = 1")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewStore(path, log)
	assert.ErrorIs(t, err, migrations.ErrDirty)
}
