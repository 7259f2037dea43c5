// Package selection tracks which cart lines the user picked for a partial
// checkout. The set is always a subset of the current cart snapshot.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type Snapshotter interface {
	Snapshot() domain.CartSnapshot
}

type Owner interface {
	Subject() string
}

// Store persists selected identities between sessions.
type Store interface {
	SaveSelection(ctx context.Context, cartKey string, lineIDs []string) error
	LoadSelection(ctx context.Context, cartKey string) ([]string, error)
}

type Tracker struct {
	cart  Snapshotter
	owner Owner
	store Store

	mu       sync.Mutex
	selected map[string]struct{}
	owned    string // subject the in-memory selection belongs to
}

func NewTracker(cart Snapshotter, owner Owner, store Store) *Tracker {
	return &Tracker{
		cart:     cart,
		owner:    owner,
		store:    store,
		selected: make(map[string]struct{}),
	}
}

// Toggle flips lineID and reports whether it is now selected.
// The membership check and the flip happen under one lock so a concurrent
// reload cannot slip a removed line back into the set.
func (t *Tracker) Toggle(ctx context.Context, lineID string) (bool, error) {
	t.mu.Lock()
	t.syncOwnerLocked()
	snap := t.cart.Snapshot()
	if !snap.Has(lineID) {
		t.mu.Unlock()
		return false, fmt.Errorf("toggle %s: %w", lineID, domain.ErrNotFound)
	}
	_, on := t.selected[lineID]
	if on {
		delete(t.selected, lineID)
	} else {
		t.selected[lineID] = struct{}{}
	}
	ids, owner := t.orderedLocked(snap), t.owned
	t.mu.Unlock()

	t.persist(ctx, owner, ids)
	return !on, nil
}

// ToggleAll clears the set when every line of the current snapshot is
// selected and selects all of them otherwise.
func (t *Tracker) ToggleAll(ctx context.Context) []string {
	t.mu.Lock()
	t.syncOwnerLocked()
	snap := t.cart.Snapshot()
	all := true
	for _, id := range snap.IDs() {
		if _, ok := t.selected[id]; !ok {
			all = false
			break
		}
	}
	t.selected = make(map[string]struct{}, snap.Len())
	if !all {
		for _, id := range snap.IDs() {
			t.selected[id] = struct{}{}
		}
	}
	ids, owner := t.orderedLocked(snap), t.owned
	t.mu.Unlock()

	t.persist(ctx, owner, ids)
	return ids
}

// Selected returns the selected identities in cart order.
func (t *Tracker) Selected() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncOwnerLocked()
	return t.orderedLocked(t.cart.Snapshot())
}

// SelectedIn returns the selected lines that still exist in snap.
func (t *Tracker) SelectedIn(snap domain.CartSnapshot) []domain.CartLine {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syncOwnerLocked()
	var out []domain.CartLine
	for _, line := range snap.Lines() {
		if _, ok := t.selected[line.ID]; ok {
			out = append(out, line)
		}
	}
	return out
}

// Reconcile drops identities missing from snap. Register it with the cart
// manager so it runs after every reload. A selection left over from another
// subject is discarded, never persisted under the new one.
func (t *Tracker) Reconcile(snap domain.CartSnapshot) {
	t.mu.Lock()
	t.syncOwnerLocked()
	dropped := 0
	for id := range t.selected {
		if !snap.Has(id) {
			delete(t.selected, id)
			dropped++
		}
	}
	ids, owner := t.orderedLocked(snap), t.owned
	t.mu.Unlock()

	if dropped > 0 {
		slog.Debug("selection reconciled", "dropped", dropped, "remaining", len(ids))
		t.persist(context.Background(), owner, ids)
	}
}

// Restore replaces the selection with the persisted one of the current
// subject, keeping what the current cart still holds. Guests and subjects
// with nothing stored start empty.
func (t *Tracker) Restore(ctx context.Context) error {
	subject := t.owner.Subject()
	var ids []string
	if subject != "" {
		var err error
		ids, err = t.store.LoadSelection(ctx, subject)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			return fmt.Errorf("restore selection: %w", err)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.cart.Snapshot()
	t.selected = make(map[string]struct{}, len(ids))
	t.owned = subject
	for _, id := range ids {
		if snap.Has(id) {
			t.selected[id] = struct{}{}
		}
	}
	return nil
}

// Reset forgets the in-memory selection without touching the store.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = make(map[string]struct{})
	t.owned = t.owner.Subject()
}

// syncOwnerLocked drops the selection when the session subject is no longer
// the one it was made for.
func (t *Tracker) syncOwnerLocked() {
	if subject := t.owner.Subject(); subject != t.owned {
		t.selected = make(map[string]struct{})
		t.owned = subject
	}
}

func (t *Tracker) orderedLocked(snap domain.CartSnapshot) []string {
	out := make([]string, 0, len(t.selected))
	for _, id := range snap.IDs() {
		if _, ok := t.selected[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (t *Tracker) persist(ctx context.Context, subject string, ids []string) {
	if subject == "" {
		return
	}
	if err := t.store.SaveSelection(ctx, subject, ids); err != nil {
		slog.WarnContext(ctx, "selection save failed", "error", err)
	}
}
