package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsync/internal/model"
	"partsync/internal/store"
)

type failingStore struct {
	*store.MemoryStore
	err error
}

func (f failingStore) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingStore) Set(context.Context, string, string) error   { return f.err }

func TestCatalogRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(store.NewMemoryStore(), "gobilda", nil)

	parts, err := repo.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, parts)

	want := []model.Part{{
		ID:             "1",
		SKU:            "A1",
		Name:           "Widget",
		Specifications: []model.Specification{{Attribute: "Size", Values: []string{"M4"}}},
	}}
	require.NoError(t, repo.SaveCatalog(ctx, want))

	got, err := repo.LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadCatalogCorruptFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.Set(ctx, "gobilda:parts", "{not json"))

	parts, err := NewCatalogRepository(s, "gobilda", nil).LoadCatalog(ctx)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk gone")
	repo := NewCatalogRepository(failingStore{MemoryStore: store.NewMemoryStore(), err: boom}, "gobilda", nil)

	_, err := repo.LoadCatalog(ctx)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, boom)

	err = repo.SaveCatalog(ctx, nil)
	assert.ErrorIs(t, err, ErrPersistence)

	err = repo.SaveLastUpdate(ctx, time.Now())
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestLastUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	repo := NewCatalogRepository(s, "gobilda", nil)

	_, ok, err := repo.LoadLastUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, time.March, 4, 10, 30, 15, 123_000_000, time.UTC)
	require.NoError(t, repo.SaveLastUpdate(ctx, at))

	raw, err := s.Get(ctx, "gobilda:last_update")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04T10:30:15.123Z", raw)

	got, ok, err := repo.LoadLastUpdate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))
}

func TestLoadLastUpdateUnparsable(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.Set(ctx, "gobilda:last_update", "yesterday"))

	_, ok, err := NewCatalogRepository(s, "gobilda", nil).LoadLastUpdate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotificationsCappedMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(store.NewMemoryStore(), "gobilda", nil)

	for i := 0; i < 15; i++ {
		require.NoError(t, repo.PrependNotification(ctx, model.Notification{
			Type:    "parts-update",
			Message: fmt.Sprintf("run %d", i),
		}, 10))
	}

	list, err := repo.LoadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 10)
	assert.Equal(t, "run 14", list[0].Message)
	assert.Equal(t, "run 5", list[9].Message)

	require.NoError(t, repo.ClearNotifications(ctx))
	list, err = repo.LoadNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
