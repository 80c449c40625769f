package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"

	"go.yaml.in/yaml/v3"
)

// Map is a string-keyed map that remembers insertion order.
//
// Generated output must be byte-identical across runs, so every schema
// object collection is a Map rather than a Go map. The zero value is an
// empty map ready to use. JSON and YAML encoding keep the order in both
// directions.
type Map[V any] struct {
	keys  []string
	items map[string]V
}

// NewMap returns an empty Map.
func NewMap[V any]() Map[V] {
	return Map[V]{}
}

// Set stores v under key. Re-setting an existing key replaces the value
// and keeps the original position.
func (m *Map[V]) Set(key string, v V) {
	if m.items == nil {
		m.items = make(map[string]V)
	}
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = v
}

// Get returns the value stored under key.
func (m Map[V]) Get(key string) (V, bool) {
	v, ok := m.items[key]
	return v, ok
}

// Has reports whether key is present.
func (m Map[V]) Has(key string) bool {
	_, ok := m.items[key]
	return ok
}

// Len returns the number of entries.
func (m Map[V]) Len() int {
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m Map[V]) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Values returns the values in insertion order.
func (m Map[V]) Values() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.items[k])
	}
	return out
}

// All iterates over the entries in insertion order.
func (m Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.items[k]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m Map[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.items[k])
		if err != nil {
			return nil, fmt.Errorf("schema: encode %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
// Entries whose value is null are dropped.
func (m *Map[V]) UnmarshalJSON(data []byte) error {
	m.keys, m.items = nil, nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("schema: expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("schema: decode %q: %w", key, err)
		}
		if bytes.Equal(raw, []byte("null")) {
			// a null object is an absent object
			continue
		}
		var v V
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("schema: decode %q: %w", key, err)
		}
		m.Set(key, v)
	}

	// closing brace
	_, err = dec.Token()
	return err
}

// MarshalYAML encodes the map as a YAML mapping with keys in insertion order.
func (m Map[V]) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		var kn, vn yaml.Node
		if err := kn.Encode(k); err != nil {
			return nil, err
		}
		if err := vn.Encode(m.items[k]); err != nil {
			return nil, fmt.Errorf("schema: encode %q: %w", k, err)
		}
		node.Content = append(node.Content, &kn, &vn)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping the document's key order.
// Entries whose value is null are dropped.
func (m *Map[V]) UnmarshalYAML(node *yaml.Node) error {
	m.keys, m.items = nil, nil
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("schema: line %d: expected mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		vn := node.Content[i+1]
		if vn.Kind == yaml.ScalarNode && vn.Tag == "!!null" {
			continue
		}
		var v V
		if err := vn.Decode(&v); err != nil {
			return fmt.Errorf("schema: decode %q: %w", key, err)
		}
		m.Set(key, v)
	}
	return nil
}
