package euctr

import (
	"bytes"
	"encoding/json"
)

// ValueKind enumerates the shapes a Value can take.
type ValueKind int

// Value kinds.
const (
	KindNull ValueKind = iota
	KindString
	KindList
	KindMap
)

// Value is a dynamically shaped extraction result: null, a string, an
// ordered list of values, or an insertion-ordered map of string keys to
// values. Register tables are genuinely polymorphic per table, so the
// output shape cannot be pinned to a single record type. The zero value
// is null.
type Value struct {
	kind   ValueKind
	str    string
	list   []Value
	fields *Fields
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// List returns a list value holding the given items in order.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Strings returns a list value holding the given strings in order.
func Strings(items []string) Value {
	vals := make([]Value, len(items))
	for i, s := range items {
		vals[i] = String(s)
	}
	return Value{kind: KindList, list: vals}
}

// Map returns a map value backed by the given fields.
func Map(f *Fields) Value {
	return Value{kind: KindMap, fields: f}
}

// Kind returns the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload. Empty unless Kind is KindString.
func (v Value) Str() string { return v.str }

// Items returns the list payload. Nil unless Kind is KindList.
func (v Value) Items() []Value { return v.list }

// Fields returns the map payload. Nil unless Kind is KindMap.
func (v Value) Fields() *Fields { return v.fields }

// Append returns a new list value with the given items appended.
// Appending to a null value starts a fresh list.
func (v Value) Append(items ...Value) Value {
	merged := make([]Value, 0, len(v.list)+len(items))
	merged = append(merged, v.list...)
	merged = append(merged, items...)
	return Value{kind: KindList, list: merged}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.fields == nil {
			return []byte("{}"), nil
		}
		return v.fields.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

// Fields is an insertion-ordered map from string keys to values. Setting
// an existing key updates the value in place without changing its position.
type Fields struct {
	keys   []string
	values map[string]Value
}

// NewFields returns an empty Fields.
func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

// Set stores a value under key, preserving first-insertion order.
func (f *Fields) Set(key string, v Value) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (Value, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Delete removes key and its value.
func (f *Fields) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// MarshalJSON implements json.Marshaler, emitting keys in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
