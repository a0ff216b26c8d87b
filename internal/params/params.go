// Package params decodes the declarative metadata files that mark a
// directory as indexable: the per-directory marker file (params.json by
// convention) and the schema description file (headers.json by
// convention). Both are flat JSON objects; decoding preserves key order
// because column order in the catalog follows declaration order.
package params

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Value is a scalar metadata value: string, float64, bool, or nil.
type Value interface{}

// ParseError reports a marker or schema file that is absent, unreadable,
// or not well-formed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("params: cannot parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Map is an insertion-ordered mapping from field name to scalar value.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Len returns the number of fields.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the field names in insertion order.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Get returns the value for a field and whether the field is present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether the field is present.
func (m *Map) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Set assigns a value, appending the field if it is new.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Schema is an insertion-ordered mapping from field name to a
// human-readable description.
type Schema struct {
	names []string
	descs map[string]string
}

// NewSchema returns an empty schema descriptor.
func NewSchema() *Schema {
	return &Schema{descs: make(map[string]string)}
}

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.names) }

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Description returns the description for a field and whether the field
// is declared.
func (s *Schema) Description(name string) (string, bool) {
	d, ok := s.descs[name]
	return d, ok
}

// Has reports whether the field is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.descs[name]
	return ok
}

// Append declares a field, ignoring duplicates.
func (s *Schema) Append(name, description string) {
	if _, ok := s.descs[name]; ok {
		return
	}
	s.names = append(s.names, name)
	s.descs[name] = description
}

// ParseEntry decodes a marker file into an ordered field map. The file
// must hold a single JSON object of scalar values; nested objects and
// arrays are rejected. An empty object decodes successfully — rejecting
// it is the caller's responsibility.
func ParseEntry(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	m := NewMap()
	if err := decodeObject(json.NewDecoder(f), func(key string, v Value) {
		m.Set(key, v)
	}); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return m, nil
}

// ParseSchema decodes a schema description file into an ordered schema
// descriptor. Values are coerced to description strings; the top-level
// value must be a JSON object.
func ParseSchema(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	s := NewSchema()
	if err := decodeObject(json.NewDecoder(f), func(key string, v Value) {
		if str, ok := v.(string); ok {
			s.Append(key, str)
		} else {
			s.Append(key, fmt.Sprintf("%v", v))
		}
	}); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return s, nil
}

// decodeObject walks the decoder's token stream through a single flat
// JSON object, invoking set for each key/value pair in document order.
func decodeObject(dec *json.Decoder, set func(key string, v Value)) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("top-level value is not an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("object key is not a string")
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		if _, nested := valTok.(json.Delim); nested {
			return fmt.Errorf("field %q: nested values are not supported", key)
		}
		set(key, valTok)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}

	// Anything after the object is garbage.
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("trailing data after object")
	}
	return nil
}
