// Package record models index documents as ordered field maps.
//
// Documents arrive from the index as JSON objects whose field order is
// meaningful to operators reading archives, so a Record keeps fields in the
// order they were decoded and re-encodes them in the same order. Field values
// are a small tagged union instead of interface{} so the extractor can read
// the boundary and id fields without type switches scattered across callers.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Kind identifies which member of the Value union is set.
type Kind int

const (
	// KindNull is the JSON null value.
	KindNull Kind = iota
	// KindString is a JSON string.
	KindString
	// KindNumber is a JSON number, kept as its literal text.
	KindNumber
	// KindBool is a JSON boolean.
	KindBool
	// KindList is a JSON array (multi-valued fields).
	KindList
	// KindObject is a nested JSON object, kept verbatim.
	KindObject
)

// Value is a single field value.
type Value struct {
	kind Kind
	str  string // string contents, number literal or raw object
	b    bool
	list []Value
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a number value from its literal text.
func Number(n json.Number) Value { return Value{kind: KindNumber, str: string(n)} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list value.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Items returns the elements of a list value, nil for other kinds.
func (v Value) Items() []Value { return v.list }

// String renders the value the way it is used in index queries and artifact
// names: strings verbatim, numbers as their literal, lists comma-joined.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindNumber, KindObject:
		return v.str
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return strings.Join(parts, ",")
	}
	return ""
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber, KindObject:
		return []byte(v.str), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return []byte("null"), nil
}

// Field is one named value of a record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping of field name to value.
type Record struct {
	fields []Field
}

// New builds a record from fields, keeping their order.
func New(fields ...Field) Record {
	return Record{fields: fields}
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Fields returns the fields in order. The slice must not be modified.
func (r Record) Fields() []Field { return r.fields }

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Without returns a projection of the record without the named fields.
func (r Record) Without(names ...string) Record {
	if len(names) == 0 {
		return r
	}
	out := make([]Field, 0, len(r.fields))
	for _, f := range r.fields {
		if !contains(names, f.Name) {
			out = append(out, f)
		}
	}
	return Record{fields: out}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler, preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		data, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	rec, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// decodeObject reads an object whose opening brace has not been consumed.
func decodeObject(dec *json.Decoder) (Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		name, ok := tok.(string)
		if !ok {
			return Record{}, fmt.Errorf("expected field name, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return Record{}, fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return Record{}, err
	}
	return Record{fields: fields}, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	return parseValue(raw)
}

func parseValue(raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Value{}, fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case 'n':
		return Null(), nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{}, err
		}
		return String(s), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Value{}, err
		}
		list := make([]Value, 0, len(items))
		for _, item := range items {
			v, err := parseValue(item)
			if err != nil {
				return Value{}, err
			}
			list = append(list, v)
		}
		return List(list...), nil
	case '{':
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return Value{}, err
		}
		return Value{kind: KindObject, str: compact.String()}, nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return Value{}, err
	}
	return Number(n), nil
}
