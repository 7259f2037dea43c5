package domain

import (
	"encoding/json"
	"time"
)

// CartLine is one product+quantity entry of the remote cart. The server owns it;
// the client only ever holds a copy derived from a reload.
type CartLine struct {
	ID        string   `json:"id"`
	ProductID string   `json:"product_id"`
	EventID   string   `json:"event_id,omitempty"`
	Quantity  int      `json:"quantity"`
	UnitPrice int64    `json:"unit_price"`
	Name      string   `json:"name"`
	Images    []string `json:"images,omitempty"`
}

// Total returns unit price times quantity.
func (l CartLine) Total() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// CartSnapshot is the whole cart as of the last successful reload.
// It is replaced wholesale, never patched from local mutations.
type CartSnapshot struct {
	lines    map[string]CartLine
	order    []string
	LoadedAt time.Time
}

// NewCartSnapshot indexes lines by identity, keeping server order.
// A repeated identity keeps its first position and its last value.
func NewCartSnapshot(lines []CartLine, loadedAt time.Time) CartSnapshot {
	s := CartSnapshot{
		lines:    make(map[string]CartLine, len(lines)),
		order:    make([]string, 0, len(lines)),
		LoadedAt: loadedAt,
	}
	for _, line := range lines {
		if _, seen := s.lines[line.ID]; !seen {
			s.order = append(s.order, line.ID)
		}
		s.lines[line.ID] = line
	}
	return s
}

// EmptySnapshot is the cart of a guest or of a freshly cleared cart.
func EmptySnapshot(at time.Time) CartSnapshot {
	return NewCartSnapshot(nil, at)
}

func (s CartSnapshot) Get(id string) (CartLine, bool) {
	line, ok := s.lines[id]
	return line, ok
}

func (s CartSnapshot) Has(id string) bool {
	_, ok := s.lines[id]
	return ok
}

func (s CartSnapshot) Len() int {
	return len(s.order)
}

// Lines returns a copy of the lines in server order.
func (s CartSnapshot) Lines() []CartLine {
	out := make([]CartLine, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.lines[id])
	}
	return out
}

// IDs returns the line identities in server order.
func (s CartSnapshot) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s CartSnapshot) Subtotal() int64 {
	return Subtotal(s.Lines())
}

type snapshotJSON struct {
	Lines    []CartLine `json:"lines"`
	Subtotal int64      `json:"subtotal"`
	LoadedAt time.Time  `json:"loaded_at"`
}

func (s CartSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Lines:    s.Lines(),
		Subtotal: s.Subtotal(),
		LoadedAt: s.LoadedAt,
	})
}

// Subtotal sums unit_price × qty over lines.
func Subtotal(lines []CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Total()
	}
	return total
}
