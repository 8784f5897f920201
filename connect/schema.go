// Package connect holds the structural record model the connector emits:
// named, typed schemas, schema-bound structs, and the source record that
// bundles one structured event with its checkpoint tuple.
package connect

import "fmt"

// Type identifies the primitive type of a schema field.
type Type int

const (
	TypeString Type = iota
	TypeBytes
	TypeInt64
	TypeTimestamp
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeInt64:
		return "int64"
	case TypeTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Field is one named, typed slot in a Schema.
type Field struct {
	Name     string
	Type     Type
	Optional bool
	Doc      string
}

// Schema is the immutable structural contract of a key or value record.
// Name, Version and the field list are part of the wire contract: renaming,
// retyping or reordering a field is a breaking change for every downstream
// consumer and must be versioned explicitly.
type Schema struct {
	Name    string
	Version int
	Doc     string

	fields []Field
	index  map[string]int
}

// NewSchema builds an immutable schema. Duplicate or empty field names are a
// defect in the declarative definition and fail construction; with MustSchema
// that surfaces at process start, never mid-conversion.
func NewSchema(name string, version int, doc string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, fmt.Errorf("connect: schema name must not be empty")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("connect: schema %s: field %d has no name", name, i)
		}
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("connect: schema %s: duplicate field %q", name, f.Name)
		}
		index[f.Name] = i
	}
	return &Schema{
		Name:    name,
		Version: version,
		Doc:     doc,
		fields:  append([]Field(nil), fields...),
		index:   index,
	}, nil
}

// MustSchema is NewSchema for package-level schema declarations.
func MustSchema(name string, version int, doc string, fields ...Field) *Schema {
	s, err := NewSchema(name, version, doc, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns the field list in declaration order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}
