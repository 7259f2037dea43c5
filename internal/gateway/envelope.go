package gateway

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// envelopeKeys is the ordered fallback used to locate the payload of a
// collaborator response: {"data": ...} first, then {"results": ...}, then
// {"items": ...}. Nested envelopes ({"data": {"data": ...}}) are followed up
// to maxEnvelopeDepth levels.
var envelopeKeys = []string{"data", "results", "items"}

const maxEnvelopeDepth = 3

// Unwrap returns the list payload inside a response envelope. A resource
// wrapping its lines ({"data": {"id": ..., "items": [...]}}) yields the lines.
// Bodies that are not JSON objects, or objects without any envelope key, are
// returned as is.
func Unwrap(body []byte) json.RawMessage {
	return unwrap(body, true)
}

// UnwrapObject returns the single-resource payload inside a response
// envelope. Unwrapping stops at the first object carrying an "id", so a
// resource's own "items" or "results" fields stay part of it.
func UnwrapObject(body []byte) json.RawMessage {
	return unwrap(body, false)
}

func unwrap(body []byte, list bool) json.RawMessage {
	raw := json.RawMessage(bytes.TrimSpace(body))
	for depth := 0; depth < maxEnvelopeDepth; depth++ {
		if len(raw) == 0 || raw[0] != '{' {
			return raw
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return raw
		}
		if _, resource := obj["id"]; resource && !list {
			return raw
		}
		next, ok := pickEnvelope(obj)
		if !ok {
			return raw
		}
		raw = next
	}
	return raw
}

func pickEnvelope(obj map[string]json.RawMessage) (json.RawMessage, bool) {
	for _, key := range envelopeKeys {
		v, ok := obj[key]
		if !ok {
			continue
		}
		v = bytes.TrimSpace(v)
		if len(v) == 0 || string(v) == "null" {
			continue
		}
		return v, true
	}
	return nil, false
}

// flexID accepts identities sent as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = flexID(n.String())
	return nil
}

// flexAmount accepts money as a JSON number or numeric string and keeps the
// whole-unit part.
type flexAmount int64

func (a *flexAmount) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*a = 0
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = flexAmount(d.IntPart())
	return nil
}

// flexImages accepts ["url", ...] or [{"url": ...} | {"image_url": ...}, ...].
type flexImages []string

func (f *flexImages) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			URL      string `json:"url"`
			ImageURL string `json:"image_url"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		switch {
		case obj.URL != "":
			out = append(out, obj.URL)
		case obj.ImageURL != "":
			out = append(out, obj.ImageURL)
		}
	}
	*f = out
	return nil
}
