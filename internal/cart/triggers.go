package cart

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Event is something that makes the cart worth reloading.
type Event int

const (
	EventCredentialsChanged Event = iota
	EventFocus
	EventPanelOpened
	EventInvalidated
)

func (e Event) String() string {
	switch e {
	case EventCredentialsChanged:
		return "credentials_changed"
	case EventFocus:
		return "focus"
	case EventPanelOpened:
		return "panel_opened"
	case EventInvalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

func ParseEvent(s string) (Event, error) {
	switch s {
	case "credentials_changed":
		return EventCredentialsChanged, nil
	case "focus":
		return EventFocus, nil
	case "panel_opened":
		return EventPanelOpened, nil
	case "invalidated":
		return EventInvalidated, nil
	}
	return 0, fmt.Errorf("unknown cart event %q", s)
}

func (m *Manager) HandleEvent(ctx context.Context, e Event) error {
	slog.DebugContext(ctx, "cart reload triggered", "event", e.String())
	if err := m.Load(ctx); err != nil {
		return fmt.Errorf("reload on %s: %w", e, err)
	}
	return nil
}

// Presence announces credential presence transitions.
type Presence interface {
	OnChange(fn func(present bool))
}

// WatchSession reloads the cart whenever a credential appears or disappears.
func (m *Manager) WatchSession(p Presence, timeout time.Duration) {
	p.OnChange(func(present bool) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := m.HandleEvent(ctx, EventCredentialsChanged); err != nil {
			slog.Warn("cart reload after credential change failed", "present", present, "error", err)
		}
	})
}
