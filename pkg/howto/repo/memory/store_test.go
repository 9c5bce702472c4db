package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerhub/howto/pkg/howto"
	"github.com/makerhub/howto/pkg/howto/repo/memory"
)

func TestHowtoRoundTrip(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	h := &howto.Howto{
		ID:        uuid.New(),
		Title:     "Phone Holder",
		Slug:      "phone-holder",
		CreatedBy: "maker-anna",
	}
	require.NoError(t, store.SetHowto(ctx, h))

	got, err := store.GetHowto(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Phone Holder", got.Title)

	// The store hands back copies, not shared pointers.
	got.Title = "mutated"
	again, err := store.GetHowto(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Phone Holder", again.Title)
}

func TestGetHowtoNotFound(t *testing.T) {
	store := memory.New()

	_, err := store.GetHowto(context.Background(), uuid.New())
	assert.ErrorIs(t, err, howto.ErrHowtoNotFound)
}

func TestSetHowtoRequiresID(t *testing.T) {
	store := memory.New()

	assert.Error(t, store.SetHowto(context.Background(), &howto.Howto{}))
	assert.Error(t, store.SetHowto(context.Background(), nil))
}

func TestSetHowtoRejectsDuplicateSlug(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first := &howto.Howto{ID: uuid.New(), Slug: "phone-holder", Title: "Phone Holder"}
	require.NoError(t, store.SetHowto(ctx, first))

	// Another record may not take an existing slug.
	err := store.SetHowto(ctx, &howto.Howto{ID: uuid.New(), Slug: "phone-holder"})
	assert.ErrorIs(t, err, howto.ErrDuplicateSlug)

	// Re-writing the owning record keeps its slug.
	first.Title = "Phone Holder, revised"
	assert.NoError(t, store.SetHowto(ctx, first))

	// Empty slugs carry no uniqueness claim.
	require.NoError(t, store.SetHowto(ctx, &howto.Howto{ID: uuid.New()}))
	assert.NoError(t, store.SetHowto(ctx, &howto.Howto{ID: uuid.New()}))
}

func TestQueryEqual(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SetHowto(ctx, &howto.Howto{
		ID: uuid.New(), Slug: "phone-holder", CreatedBy: "maker-anna",
	}))
	require.NoError(t, store.SetHowto(ctx, &howto.Howto{
		ID: uuid.New(), Slug: "bottle-opener", CreatedBy: "maker-anna",
	}))

	t.Run("by slug", func(t *testing.T) {
		matches, err := store.QueryEqual(ctx, "slug", "phone-holder")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "phone-holder", matches[0].Slug)
	})

	t.Run("by author", func(t *testing.T) {
		matches, err := store.QueryEqual(ctx, "created_by", "maker-anna")
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("no match yields empty", func(t *testing.T) {
		matches, err := store.QueryEqual(ctx, "slug", "nope")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("unsupported field errors", func(t *testing.T) {
		_, err := store.QueryEqual(ctx, "title", "Phone Holder")
		assert.Error(t, err)
	})
}

func TestStatsRoundTrip(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	id := uuid.New()

	_, err := store.GetStats(ctx, id)
	assert.ErrorIs(t, err, howto.ErrStatsNotFound)

	require.NoError(t, store.SetStats(ctx, &howto.HowtoStats{HowtoID: id, Views: 7}))

	got, err := store.GetStats(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Views)
}

func TestStreamAll(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, store.SetHowto(ctx, &howto.Howto{ID: uuid.New(), Slug: "first"}))

	sub, err := store.StreamAll(ctx)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// The current state arrives immediately.
	snapshot := <-sub.Snapshots()
	assert.Len(t, snapshot, 1)

	// A later write pushes a fresh snapshot.
	require.NoError(t, store.SetHowto(ctx, &howto.Howto{ID: uuid.New(), Slug: "second"}))
	select {
	case snapshot = <-sub.Snapshots():
		assert.Len(t, snapshot, 2)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after write")
	}
}

func TestStreamAllLatestWins(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	sub, err := store.StreamAll(ctx)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Without a reader draining the channel, only the newest snapshot
	// stays buffered.
	for i := 0; i < 5; i++ {
		require.NoError(t, store.SetHowto(ctx, &howto.Howto{ID: uuid.New()}))
	}

	snapshot := <-sub.Snapshots()
	assert.Len(t, snapshot, 5)
}

func TestSubscribeStats(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	id := uuid.New()
	other := uuid.New()

	require.NoError(t, store.SetStats(ctx, &howto.HowtoStats{HowtoID: id, Views: 1}))

	sub, err := store.SubscribeStats(ctx, id)
	require.NoError(t, err)

	// The current record arrives immediately.
	stats := <-sub.Updates()
	assert.Equal(t, int64(1), stats.Views)

	// Writes to another how-to never reach this stream.
	require.NoError(t, store.SetStats(ctx, &howto.HowtoStats{HowtoID: other, Views: 50}))
	require.NoError(t, store.SetStats(ctx, &howto.HowtoStats{HowtoID: id, Views: 2}))

	select {
	case stats = <-sub.Updates():
		assert.Equal(t, int64(2), stats.Views)
	case <-time.After(time.Second):
		t.Fatal("no update after write")
	}

	assert.Equal(t, 1, store.ActiveStatsSubscriptions(uuid.Nil))
	sub.Unsubscribe()
	assert.Equal(t, 0, store.ActiveStatsSubscriptions(uuid.Nil))

	// The channel closes on unsubscribe.
	_, open := <-sub.Updates()
	assert.False(t, open)
}

func TestUnsubscribeTwiceIsSafe(t *testing.T) {
	store := memory.New()

	sub, err := store.SubscribeStats(context.Background(), uuid.New())
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()
}
