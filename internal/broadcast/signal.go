package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
)

const EventInventoryInvalidated = "InventoryInvalidated"

// Recorder stores an event for later publication.
type Recorder interface {
	AddEvent(ctx context.Context, aggregateID, eventType string, payload []byte) (int64, error)
}

// Signal records an invalidation in the outbox and notifies local
// subscribers right away.
type Signal struct {
	bus      *Bus
	recorder Recorder
	now      func() time.Time
}

func NewSignal(bus *Bus, recorder Recorder) *Signal {
	return &Signal{bus: bus, recorder: recorder, now: time.Now}
}

// Broadcast fills in ID and At when missing. Local subscribers are notified
// even if recording fails; the error is returned so callers can log it.
func (s *Signal) Broadcast(ctx context.Context, inv domain.Invalidation) (domain.Invalidation, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.At.IsZero() {
		inv.At = s.now().UTC()
	}

	var recordErr error
	payload, err := json.Marshal(inv)
	if err != nil {
		recordErr = fmt.Errorf("marshal invalidation: %w", err)
	} else if s.recorder != nil {
		aggregate := inv.PurchaseID
		if aggregate == "" {
			aggregate = inv.ID
		}
		if _, err := s.recorder.AddEvent(ctx, aggregate, EventInventoryInvalidated, payload); err != nil {
			recordErr = fmt.Errorf("record invalidation %s: %w", inv.ID, err)
		}
	}

	s.bus.Publish(inv)
	slog.InfoContext(ctx, "inventory invalidation broadcast",
		"id", inv.ID, "purchase_id", inv.PurchaseID, "products", len(inv.ProductIDs), "reason", inv.Reason)
	return inv, recordErr
}
