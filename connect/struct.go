package connect

import (
	"fmt"
	"time"
)

// Struct is a value bound to a Schema. Fields are stored by declaration
// position; unset optional fields read as nil. A Struct is built once by its
// producer and not mutated after hand-off.
type Struct struct {
	schema *Schema
	values []any
}

// NewStruct returns an empty struct for the given schema.
func NewStruct(schema *Schema) *Struct {
	return &Struct{schema: schema, values: make([]any, len(schema.fields))}
}

// Schema returns the schema this struct is bound to.
func (s *Struct) Schema() *Schema { return s.schema }

// Put sets a field. Unknown fields and type mismatches are contract
// violations and fail immediately rather than producing a partially valid
// record.
func (s *Struct) Put(name string, v any) error {
	i, ok := s.schema.index[name]
	if !ok {
		return fmt.Errorf("connect: schema %s has no field %q", s.schema.Name, name)
	}
	if v != nil {
		if err := checkType(s.schema.fields[i].Type, v); err != nil {
			return fmt.Errorf("connect: schema %s field %q: %w", s.schema.Name, name, err)
		}
	}
	s.values[i] = v
	return nil
}

// Get returns a field's value, or nil when unset or unknown.
func (s *Struct) Get(name string) any {
	i, ok := s.schema.index[name]
	if !ok {
		return nil
	}
	return s.values[i]
}

// GetString returns a string field, or "" when unset.
func (s *Struct) GetString(name string) string {
	v, _ := s.Get(name).(string)
	return v
}

// GetBytes returns a bytes field, or nil when unset.
func (s *Struct) GetBytes(name string) []byte {
	v, _ := s.Get(name).([]byte)
	return v
}

// GetTime returns a timestamp field, or the zero time when unset.
func (s *Struct) GetTime(name string) time.Time {
	v, _ := s.Get(name).(time.Time)
	return v
}

func checkType(t Type, v any) error {
	var ok bool
	switch t {
	case TypeString:
		_, ok = v.(string)
	case TypeBytes:
		_, ok = v.([]byte)
	case TypeInt64:
		_, ok = v.(int64)
	case TypeTimestamp:
		_, ok = v.(time.Time)
	}
	if !ok {
		return fmt.Errorf("want %s, got %T", t, v)
	}
	return nil
}
