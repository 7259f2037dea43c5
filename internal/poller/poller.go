package poller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Dispatcher receives every decoded invalidation.
type Dispatcher interface {
	Publish(inv domain.Invalidation) bool
}

// Poller consumes invalidations published by any storefront instance,
// including this one, and hands them to the local bus.
type Poller struct {
	reader  MessageReader
	bus     Dispatcher
	backoff time.Duration
}

// NewReader builds a consumer in its own group so every instance sees every
// invalidation.
func NewReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MaxBytes:    10e6, // 10MB
	})
}

func NewPoller(reader MessageReader, bus Dispatcher) *Poller {
	return &Poller{reader: reader, bus: bus, backoff: time.Second}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.readAndDispatch(ctx); err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "error reading invalidation", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.backoff):
			}
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		slog.Error("error closing reader", "error", err)
	}
}

// readAndDispatch returns an error only for reader failures; malformed
// messages are logged and skipped.
func (p *Poller) readAndDispatch(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}

	var inv domain.Invalidation
	if err := json.Unmarshal(m.Value, &inv); err != nil {
		slog.WarnContext(ctx, "error parsing invalidation", "offset", m.Offset, "error", err)
		return nil
	}
	if inv.ID == "" {
		slog.WarnContext(ctx, "invalidation without id skipped", "offset", m.Offset)
		return nil
	}

	if !p.bus.Publish(inv) {
		slog.DebugContext(ctx, "invalidation already dispatched", "id", inv.ID)
	}
	return nil
}
