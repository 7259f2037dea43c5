// Package cart keeps the client-side copy of the remote cart. Every mutation
// is a remote write followed by a full reload; the local snapshot is only
// ever replaced by what the server returned.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Remote is the server-side cart resource.
type Remote interface {
	ListLines(ctx context.Context) ([]domain.CartLine, error)
	AddLine(ctx context.Context, productID string, quantity int) error
	UpdateLine(ctx context.Context, lineID string, quantity int) error
	RemoveLine(ctx context.Context, lineID string) error
	Clear(ctx context.Context) error
}

// Credentials reports whether a bearer credential is present and whose cart it is.
type Credentials interface {
	Token() (string, bool)
	Subject() string
}

const guestKey = "guest"

type Manager struct {
	remote Remote
	creds  Credentials
	queue  *Queue
	sfg    singleflight.Group // coalesces concurrent trigger reloads
	now    func() time.Time

	issued atomic.Uint64

	// notifyMu orders apply+notify so subscribers see snapshots in generation order.
	notifyMu    sync.Mutex
	mu          sync.RWMutex
	snapshot    domain.CartSnapshot
	applied     uint64
	subscribers []func(domain.CartSnapshot)
}

func NewManager(remote Remote, creds Credentials) *Manager {
	return &Manager{
		remote:   remote,
		creds:    creds,
		queue:    NewQueue(),
		now:      time.Now,
		snapshot: domain.EmptySnapshot(time.Time{}),
	}
}

// Snapshot returns the last applied snapshot.
func (m *Manager) Snapshot() domain.CartSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Generation is the generation of the last applied snapshot.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.applied
}

// OnReplace registers fn to be called after every snapshot replacement.
// fn must not call back into the manager's mutating methods.
func (m *Manager) OnReplace(fn func(domain.CartSnapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Load replaces the snapshot with the server's cart. Without a credential
// the snapshot becomes empty and no request is made.
func (m *Manager) Load(ctx context.Context) error {
	if !m.authenticated() {
		m.apply(m.issued.Add(1), domain.EmptySnapshot(m.now()))
		return nil
	}
	key := m.key()
	_, err, shared := m.sfg.Do(key, func() (any, error) {
		return nil, m.queue.Do(ctx, key, m.reload)
	})
	if shared {
		slog.DebugContext(ctx, "cart reload coalesced", "cart", key)
	}
	return err
}

func (m *Manager) AddLine(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("add line: %w", domain.ErrInvalidQuantity)
	}
	return m.mutate(ctx, "add line", func(ctx context.Context) error {
		return m.remote.AddLine(ctx, productID, quantity)
	})
}

// UpdateLineQuantity sends max(quantity, 1); removal goes through RemoveLine.
func (m *Manager) UpdateLineQuantity(ctx context.Context, lineID string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	return m.mutate(ctx, "update line", func(ctx context.Context) error {
		return m.remote.UpdateLine(ctx, lineID, quantity)
	})
}

func (m *Manager) RemoveLine(ctx context.Context, lineID string) error {
	return m.mutate(ctx, "remove line", func(ctx context.Context) error {
		return m.remote.RemoveLine(ctx, lineID)
	})
}

// Clear empties the remote cart. The local snapshot is emptied even when the
// remote call fails, so the view may briefly disagree with the server until
// the next reload.
func (m *Manager) Clear(ctx context.Context) error {
	if !m.authenticated() {
		m.apply(m.issued.Add(1), domain.EmptySnapshot(m.now()))
		return nil
	}
	return m.queue.Do(ctx, m.key(), func(ctx context.Context) error {
		err := m.remote.Clear(ctx)
		m.apply(m.issued.Add(1), domain.EmptySnapshot(m.now()))
		if err != nil {
			slog.WarnContext(ctx, "remote cart clear failed, local cart emptied anyway", "error", err)
			return fmt.Errorf("clear cart: %w: %w", domain.ErrRemoteMutationFailed, err)
		}
		return nil
	})
}

func (m *Manager) mutate(ctx context.Context, op string, write func(context.Context) error) error {
	if !m.authenticated() {
		return fmt.Errorf("%s: %w", op, domain.ErrAuthRequired)
	}
	return m.queue.Do(ctx, m.key(), func(ctx context.Context) error {
		writeErr := write(ctx)
		// reload regardless of the write outcome
		reloadErr := m.reload(ctx)

		if writeErr != nil {
			slog.WarnContext(ctx, "cart mutation failed", "op", op, "error", writeErr)
			err := fmt.Errorf("%s: %w: %w", op, domain.ErrRemoteMutationFailed, writeErr)
			if reloadErr != nil {
				return errors.Join(err, reloadErr)
			}
			return err
		}
		if reloadErr != nil {
			return fmt.Errorf("%s: %w", op, reloadErr)
		}
		return nil
	})
}

func (m *Manager) reload(ctx context.Context) error {
	gen := m.issued.Add(1)
	if !m.authenticated() {
		m.apply(gen, domain.EmptySnapshot(m.now()))
		return nil
	}
	lines, err := m.remote.ListLines(ctx)
	if err != nil {
		return fmt.Errorf("reload cart: %w", err)
	}
	m.apply(gen, domain.NewCartSnapshot(lines, m.now()))
	return nil
}

// apply installs snap unless a newer generation is already applied.
func (m *Manager) apply(gen uint64, snap domain.CartSnapshot) bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if gen < m.applied {
		m.mu.Unlock()
		slog.Debug("stale cart snapshot discarded", "generation", gen, "applied", m.applied)
		return false
	}
	m.snapshot = snap
	m.applied = gen
	subscribers := make([]func(domain.CartSnapshot), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(snap)
	}
	return true
}

func (m *Manager) authenticated() bool {
	_, ok := m.creds.Token()
	return ok
}

func (m *Manager) key() string {
	if subject := m.creds.Subject(); subject != "" {
		return subject
	}
	return guestKey
}
