package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

var jsonNull = []byte("null")

// Snapshot is an immutable view of the value at a path at one point in time.
type Snapshot struct {
	key   string
	value json.RawMessage
}

// NewSnapshot wraps raw JSON. A nil or null value is a missing snapshot.
func NewSnapshot(key string, value []byte) Snapshot {
	return Snapshot{key: key, value: value}
}

// Key is the last path segment of the snapshot.
func (s Snapshot) Key() string {
	return s.key
}

// Exists reports whether any value is stored at the path.
func (s Snapshot) Exists() bool {
	trimmed := bytes.TrimSpace(s.value)

	return len(trimmed) > 0 && !bytes.Equal(trimmed, jsonNull)
}

// Raw returns the JSON encoding of the value, "null" when missing.
func (s Snapshot) Raw() json.RawMessage {
	if !s.Exists() {
		return jsonNull
	}

	return s.value
}

// Decode unmarshals the value into v. Decoding a missing snapshot is an error.
func (s Snapshot) Decode(v any) error {
	if !s.Exists() {
		return fmt.Errorf("decode %s: %w", s.key, ErrNotFound)
	}

	if err := json.Unmarshal(s.value, v); err != nil {
		return fmt.Errorf("decode %s: %w", s.key, err)
	}

	return nil
}

// Children returns the child snapshots of an object value in ascending key order.
// Scalars and missing values have no children.
func (s Snapshot) Children() []Snapshot {
	if !s.Exists() {
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(s.value, &m); err != nil {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		out = append(out, Snapshot{key: k, value: m[k]})
	}

	return out
}

// Child returns the snapshot of one child key; missing if absent.
func (s Snapshot) Child(key string) Snapshot {
	for _, c := range s.Children() {
		if c.key == key {
			return c
		}
	}

	return Snapshot{key: key}
}

// collectionValue encodes nodes as a JSON object, or null when empty.
func collectionValue(nodes []Node) (json.RawMessage, error) {
	if len(nodes) == 0 {
		return jsonNull, nil
	}

	m := make(map[string]json.RawMessage, len(nodes))
	for _, n := range nodes {
		m[n.Key] = json.RawMessage(n.Value)
	}

	// encoding/json sorts map keys.
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}

	return b, nil
}
