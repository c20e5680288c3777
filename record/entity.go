// Package record materializes raw JSON records into addressable entities.
//
// Only the top level of a record gets normalized snake_case names; nested
// objects keep their wire keys and are reached through Value.
package record

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrNotObject is returned when a raw record is not a JSON object
var ErrNotObject = errors.New("record is not a JSON object")

// Entity is one materialized record
type Entity struct {
	fields []Field
	index  map[string]int
}

// Parse materializes one raw JSON object
func Parse(raw []byte) (*Entity, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("parse record: invalid JSON")
	}
	return FromJSON(gjson.ParseBytes(raw))
}

// FromJSON materializes a gjson object. Every top-level key produces exactly
// one field named Snake(key); when two keys normalize to the same name the
// later one wins.
func FromJSON(r gjson.Result) (*Entity, error) {
	if !r.IsObject() {
		return nil, ErrNotObject
	}

	e := &Entity{index: make(map[string]int)}
	r.ForEach(func(key, value gjson.Result) bool {
		e.set(Snake(key.Str), FromResult(value))
		return true
	})
	return e, nil
}

// FromFields builds an entity from already structured fields
func FromFields(fields ...Field) *Entity {
	e := &Entity{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		e.set(Snake(f.Name), f.Value)
	}
	return e
}

func (e *Entity) set(name string, v Value) {
	if i, ok := e.index[name]; ok {
		e.fields[i].Value = v
		return
	}
	e.index[name] = len(e.fields)
	e.fields = append(e.fields, Field{Name: name, Value: v})
}

// Get returns the field called name. Names are matched after normalization,
// so Get("stackSize") and Get("stack_size") are the same field.
func (e *Entity) Get(name string) (Value, bool) {
	if e == nil {
		return Value{}, false
	}
	i, ok := e.index[name]
	if !ok {
		i, ok = e.index[Snake(name)]
	}
	if !ok {
		return Value{}, false
	}
	return e.fields[i].Value, true
}

// Has reports whether the entity has a field called name
func (e *Entity) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Is is the predicate accessor of a boolean field. ok is false when the
// field is missing or not a boolean.
func (e *Entity) Is(name string) (value bool, ok bool) {
	v, found := e.Get(name)
	if !found || v.Kind() != Bool {
		return false, false
	}
	return v.Bool(), true
}

// Text, Int, Float and Bool are typed accessors returning the zero value
// for missing fields.
func (e *Entity) Text(name string) string {
	v, _ := e.Get(name)
	return v.Text()
}

func (e *Entity) Int(name string) int64 {
	v, _ := e.Get(name)
	return v.Int()
}

func (e *Entity) Float(name string) float64 {
	v, _ := e.Get(name)
	return v.Float()
}

func (e *Entity) Bool(name string) bool {
	v, _ := e.Get(name)
	return v.Bool()
}

// Names returns the normalized field names in source order
func (e *Entity) Names() []string {
	names := make([]string, len(e.fields))
	for i, f := range e.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns the fields in source order
func (e *Entity) Fields() []Field { return e.fields }

// Len returns the number of fields
func (e *Entity) Len() int { return len(e.fields) }

// Map converts the entity to plain Go data keyed by normalized names
func (e *Entity) Map() map[string]any {
	m := make(map[string]any, len(e.fields))
	for _, f := range e.fields {
		m[f.Name] = f.Value.Interface()
	}
	return m
}
