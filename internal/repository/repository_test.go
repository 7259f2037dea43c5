package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	db "github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.Repository {
	repo, err := db.NewRepository(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err, "Failed to create test repository")

	require.NoError(t, repo.RunMigrations(), "Failed to run migrations")
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations())
}

func TestAddEvent_ThenGetUnprocessed(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	id1, err := repo.AddEvent(ctx, "purchase-1", "InventoryInvalidated", []byte(`{"purchase_id":"purchase-1"}`))
	require.NoError(t, err)
	id2, err := repo.AddEvent(ctx, "purchase-2", "InventoryInvalidated", []byte(`{"purchase_id":"purchase-2"}`))
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "purchase-1", events[0].AggregateID)
	assert.Equal(t, "InventoryInvalidated", events[0].EventType)
	assert.JSONEq(t, `{"purchase_id":"purchase-1"}`, string(events[0].Payload))
	assert.WithinDuration(t, time.Now(), events[0].CreatedAt, time.Minute)
}

func TestAddEvent_RejectsInvalidJSON(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.AddEvent(context.Background(), "purchase-1", "InventoryInvalidated", []byte(`{`))
	assert.Error(t, err)
}

func TestGetUnprocessedEvents_RespectsLimit(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := repo.AddEvent(ctx, "agg", "InventoryInvalidated", []byte(`{}`))
		require.NoError(t, err)
	}

	events, err := repo.GetUnprocessedEvents(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestMarkEventAsProcessed(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	id, err := repo.AddEvent(ctx, "purchase-1", "InventoryInvalidated", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, id))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	// second mark finds nothing left to mark
	assert.ErrorIs(t, repo.MarkEventAsProcessed(ctx, id), db.ErrEventNotFound)
}

func TestDeleteProcessedBefore(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	processed, err := repo.AddEvent(ctx, "a", "InventoryInvalidated", []byte(`{}`))
	require.NoError(t, err)
	_, err = repo.AddEvent(ctx, "b", "InventoryInvalidated", []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, repo.MarkEventAsProcessed(ctx, processed))

	n, err := repo.DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "b", events[0].AggregateID)
}
