package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/selecta/internal/item"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "recents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, []item.Item{
		{Identity: "a", Display: "git status", Kind: "command"},
		{Identity: "b", Display: "git push"},
	}))

	items, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "command", itemByID(items, "a").Kind)
}

func TestStoreRepeatPicksRankHigher(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	one := []item.Item{{Identity: "once", Display: "rare"}}
	twice := []item.Item{{Identity: "twice", Display: "frequent"}}
	require.NoError(t, store.Record(ctx, one))
	require.NoError(t, store.Record(ctx, twice))
	require.NoError(t, store.Record(ctx, twice))

	items, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "twice", items[0].Identity)
}

func TestStoreRecentFiltersBySubstring(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, []item.Item{
		{Identity: "a", Display: "git status"},
		{Identity: "b", Display: "make test"},
	}))

	items, err := store.Recent(ctx, "git", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "git status", items[0].Display)
}

func TestStoreSkipsItemsWithoutIdentity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, []item.Item{{Display: "anonymous"}}))

	items, err := store.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRecentsProducer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, []item.Item{
		{Identity: "a", Display: "alpha"},
		{Identity: "b", Display: "beta"},
	}))

	p := NewRecentsProducer(store, 10)
	items, err := p.Produce(ctx, "alp")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alpha", items[0].Display)
}

func itemByID(items []item.Item, id string) item.Item {
	for _, it := range items {
		if it.Identity == id {
			return it
		}
	}
	return item.Item{}
}
