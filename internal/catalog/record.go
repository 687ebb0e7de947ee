// Package catalog holds the product record model and the field coercion helpers
// shared by the feed parser, the facet engine and the web layer.
//
// Records are open-ended: the field set comes from whatever header row the
// feed carries, so a Record is an ordered string map rather than a struct.
// Anything that needs a typed view of a field (price, stock, images) goes
// through the helpers in fields.go, which document their fallback values.
package catalog

import (
	"bytes"
	"encoding/json"
)

// Record is one product row keyed by header name.
// Iteration order (Keys, Fields, MarshalJSON) follows the order in which
// fields were first set, which for feed records is header order.
type Record struct {
	keys   []string
	values map[string]string
}

// Field is a single name/value pair of a Record.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewRecord creates an empty record with room for n fields.
func NewRecord(n int) Record {
	return Record{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// RecordFromFields builds a record from name/value pairs, keeping their order.
// Later duplicates overwrite the value but keep the first position.
func RecordFromFields(fields ...Field) Record {
	r := NewRecord(len(fields))
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set assigns a value. New keys are appended to the iteration order.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the raw value and whether the field is present.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the raw value, or "" when the field is absent.
func (r Record) Value(key string) string {
	return r.values[key]
}

// Has reports whether the field is present (even if empty).
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Keys returns field names in order. The slice is a copy.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Fields returns all name/value pairs in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.keys))
	for i, k := range r.keys {
		out[i] = Field{Name: k, Value: r.values[k]}
	}
	return out
}

// MarshalJSON encodes the record as a JSON object with keys in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
