package simbus

import (
	"fmt"

	"ddspy/internal/bus"
)

// FieldKind tags the value type of a declared record field.
type FieldKind int

const (
	Int64Field FieldKind = iota
	StringField
)

// FieldSpec declares one leaf field of a simulated type. Nested structure is
// flattened into dotted paths, matching how the tool addresses records.
type FieldSpec struct {
	Path string
	Kind FieldKind
}

// Type is an introspectable runtime type descriptor for the simulated bus.
type Type struct {
	name   string
	fields []FieldSpec
	byPath map[string]FieldKind
}

// NewType declares a simulated type with an ordered field list.
func NewType(name string, fields ...FieldSpec) *Type {
	t := &Type{name: name, fields: fields, byPath: make(map[string]FieldKind, len(fields))}
	for _, f := range fields {
		t.byPath[f.Path] = f.Kind
	}
	return t
}

// Name implements bus.TypeDescriptor.
func (t *Type) Name() string { return t.name }

// NewRecord builds a zero-valued record of this type.
func (t *Type) NewRecord() *Record {
	values := make(map[string]any, len(t.fields))
	for _, f := range t.fields {
		switch f.Kind {
		case StringField:
			values[f.Path] = ""
		default:
			values[f.Path] = int64(0)
		}
	}
	return &Record{t: t, values: values}
}

// Record is a map-backed dynamic sample.
type Record struct {
	t      *Type
	values map[string]any
}

var _ bus.Record = (*Record)(nil)

// TypeName implements bus.Record.
func (r *Record) TypeName() string { return r.t.name }

// Int64 implements bus.Record.
func (r *Record) Int64(path string) (int64, error) {
	v, ok := r.values[path]
	if !ok {
		return 0, fmt.Errorf("type %s has no field %q", r.t.name, path)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("field %q of %s is not an integer", path, r.t.name)
	}
	return n, nil
}

// String implements bus.Record.
func (r *Record) String(path string) (string, error) {
	v, ok := r.values[path]
	if !ok {
		return "", fmt.Errorf("type %s has no field %q", r.t.name, path)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q of %s is not a string", path, r.t.name)
	}
	return s, nil
}

// SetInt64 implements bus.Record.
func (r *Record) SetInt64(path string, v int64) error {
	if kind, ok := r.t.byPath[path]; !ok || kind != Int64Field {
		return fmt.Errorf("type %s has no integer field %q", r.t.name, path)
	}
	r.values[path] = v
	return nil
}

// SetString implements bus.Record.
func (r *Record) SetString(path string, v string) error {
	if kind, ok := r.t.byPath[path]; !ok || kind != StringField {
		return fmt.Errorf("type %s has no string field %q", r.t.name, path)
	}
	r.values[path] = v
	return nil
}

// Fields implements bus.Record; leaves come back in declared order.
func (r *Record) Fields() []bus.Field {
	out := make([]bus.Field, 0, len(r.t.fields))
	for _, f := range r.t.fields {
		out = append(out, bus.Field{Name: f.Path, Value: r.values[f.Path]})
	}
	return out
}

func (r *Record) clone() *Record {
	values := make(map[string]any, len(r.values))
	for k, v := range r.values {
		values[k] = v
	}
	return &Record{t: r.t, values: values}
}
