package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRecorder struct {
	mu         sync.Mutex
	aggregates []string
	types      []string
	payloads   [][]byte
	err        error
}

func (m *mockRecorder) AddEvent(_ context.Context, aggregateID, eventType string, payload []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.aggregates = append(m.aggregates, aggregateID)
	m.types = append(m.types, eventType)
	m.payloads = append(m.payloads, payload)
	return int64(len(m.payloads)), nil
}

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	var a, b []string
	bus.Subscribe(func(inv domain.Invalidation) { a = append(a, inv.ID) })
	bus.Subscribe(func(inv domain.Invalidation) { b = append(b, inv.ID) })

	assert.True(t, bus.Publish(domain.Invalidation{ID: "x"}))

	assert.Equal(t, []string{"x"}, a)
	assert.Equal(t, []string{"x"}, b)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(func(domain.Invalidation) { calls++ })

	bus.Publish(domain.Invalidation{ID: "1"})
	unsubscribe()
	bus.Publish(domain.Invalidation{ID: "2"})

	assert.Equal(t, 1, calls)
}

func TestBus_DropsDuplicateIDs(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(func(domain.Invalidation) { calls++ })

	assert.True(t, bus.Publish(domain.Invalidation{ID: "same"}))
	assert.False(t, bus.Publish(domain.Invalidation{ID: "same"}))
	assert.Equal(t, 1, calls)
}

func TestBus_ForgetsOldIDs(t *testing.T) {
	bus := NewBus()
	for i := 0; i <= recentCap; i++ {
		bus.Publish(domain.Invalidation{ID: fmt.Sprintf("id-%d", i)})
	}
	// id-0 was evicted, so it is delivered again
	assert.True(t, bus.Publish(domain.Invalidation{ID: "id-0"}))
	assert.LessOrEqual(t, len(bus.recent), recentCap)
}

func TestSignal_RecordsAndNotifies(t *testing.T) {
	bus := NewBus()
	rec := &mockRecorder{}
	sig := NewSignal(bus, rec)

	var got []domain.Invalidation
	bus.Subscribe(func(inv domain.Invalidation) { got = append(got, inv) })

	inv, err := sig.Broadcast(context.Background(), domain.Invalidation{
		PurchaseID: "purchase-1",
		ProductIDs: []string{"p1", "p2"},
		Reason:     "purchase_completed",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, inv.ID)
	assert.False(t, inv.At.IsZero())
	require.Len(t, got, 1)
	assert.Equal(t, inv.ID, got[0].ID)

	assert.Equal(t, []string{"purchase-1"}, rec.aggregates)
	assert.Equal(t, []string{EventInventoryInvalidated}, rec.types)
	var stored domain.Invalidation
	require.NoError(t, json.Unmarshal(rec.payloads[0], &stored))
	assert.Equal(t, []string{"p1", "p2"}, stored.ProductIDs)
}

func TestSignal_RecordFailureStillNotifiesLocally(t *testing.T) {
	bus := NewBus()
	sig := NewSignal(bus, &mockRecorder{err: errors.New("disk full")})
	delivered := false
	bus.Subscribe(func(domain.Invalidation) { delivered = true })

	_, err := sig.Broadcast(context.Background(), domain.Invalidation{Reason: "test"})

	assert.ErrorContains(t, err, "disk full")
	assert.True(t, delivered)
}
