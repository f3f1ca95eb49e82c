package p2p_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribpub/p2p-go/pkg/p2p"
)

func newTestStore() *p2p.Store {
	return p2p.NewStore(p2p.NewMemoryCache(100))
}

func TestStore_SaveAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	collection := p2p.Record{"code": "chi_news", "name": "News"}

	require.NoError(t, store.Save(ctx, p2p.EntityCollection, "chi_news", "filter=live", collection))

	got, hit := store.Get(ctx, p2p.EntityCollection, "chi_news", "filter=live")
	require.True(t, hit)
	assert.Equal(t, "chi_news", got.Code())
	assert.Equal(t, "News", got.Str("name"))

	// A different query signature is a different entry.
	_, hit = store.Get(ctx, p2p.EntityCollection, "chi_news", "filter=all")
	assert.False(t, hit)

	_, hit = store.Get(ctx, p2p.EntityCollection, "other", "filter=live")
	assert.False(t, hit)
}

func TestStore_Get_NormalizesCachedTimestamps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	modified := time.Date(2011, 6, 22, 9, 0, 0, 0, time.UTC)
	item := p2p.Record{"slug": "chi-test", "last_modified_time": modified}

	require.NoError(t, store.SaveContentItem(ctx, item, ""))

	got, hit := store.GetContentItem(ctx, "chi-test", "")
	require.True(t, hit)

	// JSON round trip turns the time into a string; the read normalizes it
	// back.
	gotModified, ok := got.LastModified()
	require.True(t, ok)
	assert.Equal(t, modified, gotModified)
}

func TestStore_Remove_EvictsAllQueryVariants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	layout := p2p.Record{"code": "chi_news"}

	require.NoError(t, store.Save(ctx, p2p.EntityCollectionLayout, "chi_news", "include=items", layout))
	require.NoError(t, store.Save(ctx, p2p.EntityCollectionLayout, "chi_news", "include=items&limit=5", layout))

	require.NoError(t, store.Remove(ctx, p2p.EntityCollectionLayout, "chi_news"))

	_, hit := store.Get(ctx, p2p.EntityCollectionLayout, "chi_news", "include=items")
	assert.False(t, hit)

	_, hit = store.Get(ctx, p2p.EntityCollectionLayout, "chi_news", "include=items&limit=5")
	assert.False(t, hit)
}

func TestStore_ContentItemIDLookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	item := p2p.Record{"slug": "chi-test", "id": float64(1234), "title": "Test"}

	require.NoError(t, store.SaveContentItem(ctx, item, "sig"))

	bySlug, hit := store.GetContentItem(ctx, "chi-test", "sig")
	require.True(t, hit)
	assert.Equal(t, int64(1234), bySlug.ID())

	byID, hit := store.GetContentItemByID(ctx, 1234, "sig")
	require.True(t, hit)
	assert.Equal(t, "chi-test", byID.Slug())

	_, hit = store.GetContentItemByID(ctx, 9999, "sig")
	assert.False(t, hit)
}

func TestStore_SaveContentItem_RequiresSlug(t *testing.T) {
	t.Parallel()

	store := newTestStore()

	err := store.SaveContentItem(context.Background(), p2p.Record{"id": float64(1)}, "")
	assert.ErrorIs(t, err, p2p.ErrMissingSlug)
}

func TestStore_RemoveContentItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	item := p2p.Record{"slug": "chi-test", "id": float64(1234)}

	require.NoError(t, store.SaveContentItem(ctx, item, "a"))
	require.NoError(t, store.SaveContentItem(ctx, item, "b"))

	require.NoError(t, store.RemoveContentItem(ctx, "chi-test"))

	_, hit := store.GetContentItem(ctx, "chi-test", "a")
	assert.False(t, hit)

	_, hit = store.GetContentItem(ctx, "chi-test", "b")
	assert.False(t, hit)

	// The id lookup entry goes with the item.
	_, hit = store.GetContentItemByID(ctx, 1234, "a")
	assert.False(t, hit)
}

func TestStore_RemoveContentItemByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	item := p2p.Record{"slug": "chi-test", "id": float64(1234)}

	require.NoError(t, store.SaveContentItem(ctx, item, ""))
	require.NoError(t, store.RemoveContentItemByID(ctx, 1234))

	_, hit := store.GetContentItem(ctx, "chi-test", "")
	assert.False(t, hit)

	// Unknown ids are a no-op.
	assert.NoError(t, store.RemoveContentItemByID(ctx, 9999))
}

func TestStore_Stats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	_, hit := store.GetContentItem(ctx, "chi-test", "")
	require.False(t, hit)

	require.NoError(t, store.SaveContentItem(ctx, p2p.Record{"slug": "chi-test"}, ""))

	_, hit = store.GetContentItem(ctx, "chi-test", "")
	require.True(t, hit)

	stats := store.Stats()
	assert.Equal(t, uint64(2), stats[p2p.EntityContentItem].Gets)
	assert.Equal(t, uint64(1), stats[p2p.EntityContentItem].Hits)

	_, ok := stats[p2p.EntityCollection]
	assert.False(t, ok)
}

func TestStore_NilBackendDisablesCaching(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := p2p.NewStore(nil)

	require.NoError(t, store.SaveContentItem(ctx, p2p.Record{"slug": "chi-test"}, ""))

	_, hit := store.GetContentItem(ctx, "chi-test", "")
	assert.False(t, hit)

	assert.NoError(t, store.RemoveContentItem(ctx, "chi-test"))
	assert.NoError(t, store.Clear(ctx))
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore()

	require.NoError(t, store.Save(ctx, p2p.EntitySection, "/news", "", p2p.Record{"path": "/news"}))
	require.NoError(t, store.Clear(ctx))

	_, hit := store.Get(ctx, p2p.EntitySection, "/news", "")
	assert.False(t, hit)
}
