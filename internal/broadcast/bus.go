// Package broadcast fans inventory invalidations out to local subscribers
// and records them in the outbox for other processes.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const recentCap = 256

type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(domain.Invalidation)

	// ids already dispatched; our own events come back through the broker
	recent  map[string]struct{}
	recentQ []string
}

func NewBus() *Bus {
	return &Bus{
		subs:   make(map[int]func(domain.Invalidation)),
		recent: make(map[string]struct{}),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(domain.Invalidation)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers inv to every subscriber. An invalidation whose ID was
// dispatched recently is dropped. Returns whether it was delivered.
func (b *Bus) Publish(inv domain.Invalidation) bool {
	b.mu.Lock()
	if inv.ID != "" {
		if _, seen := b.recent[inv.ID]; seen {
			b.mu.Unlock()
			slog.Debug("duplicate invalidation dropped", "id", inv.ID)
			return false
		}
		b.remember(inv.ID)
	}
	subs := make([]func(domain.Invalidation), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(inv)
	}
	return true
}

func (b *Bus) remember(id string) {
	b.recent[id] = struct{}{}
	b.recentQ = append(b.recentQ, id)
	if len(b.recentQ) > recentCap {
		delete(b.recent, b.recentQ[0])
		b.recentQ = b.recentQ[1:]
	}
}
