package record

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Kind is the type of a Value
type Kind int

const (
	Null Kind = iota
	String
	Number
	Bool
	Object
	List
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Object:
		return "object"
	case List:
		return "list"
	default:
		return "null"
	}
}

// Field is one named value of an object, in source order
type Field struct {
	Name  string
	Value Value
}

// Value is a structured JSON value: a scalar, an ordered object or a list.
// The zero Value is null.
type Value struct {
	kind   Kind
	str    string
	num    float64
	b      bool
	raw    string
	fields []Field
	items  []Value
}

// FromResult converts a gjson result into a Value. Object keys are kept as
// they appear on the wire.
func FromResult(r gjson.Result) Value {
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return Value{}
	case r.Type == gjson.String:
		return Value{kind: String, str: r.Str, raw: r.Raw}
	case r.Type == gjson.Number:
		return Value{kind: Number, num: r.Num, raw: r.Raw}
	case r.Type == gjson.True || r.Type == gjson.False:
		return Value{kind: Bool, b: r.Bool(), raw: r.Raw}
	case r.IsObject():
		v := Value{kind: Object, raw: r.Raw}
		r.ForEach(func(key, value gjson.Result) bool {
			v.fields = append(v.fields, Field{Name: key.Str, Value: FromResult(value)})
			return true
		})
		return v
	case r.IsArray():
		v := Value{kind: List, raw: r.Raw}
		r.ForEach(func(_, value gjson.Result) bool {
			v.items = append(v.items, FromResult(value))
			return true
		})
		return v
	}
	return Value{}
}

// StringValue, NumberValue and BoolValue build scalar values
func StringValue(s string) Value  { return Value{kind: String, str: s, raw: strconv.Quote(s)} }
func NumberValue(f float64) Value { return Value{kind: Number, num: f, raw: strconv.FormatFloat(f, 'f', -1, 64)} }
func BoolValue(b bool) Value      { return Value{kind: Bool, b: b, raw: strconv.FormatBool(b)} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == Null }
func (v Value) IsObject() bool { return v.kind == Object }
func (v Value) IsList() bool   { return v.kind == List }

// Raw returns the JSON text the value was decoded from
func (v Value) Raw() string {
	if v.kind == Null {
		return "null"
	}
	return v.raw
}

// Text coerces the value to text: strings as is, numbers as written on the
// wire, booleans as true/false, null as the empty string and objects or
// lists as their JSON.
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return ""
	case String:
		return v.str
	case Bool:
		return strconv.FormatBool(v.b)
	default:
		return v.raw
	}
}

func (v Value) String() string { return v.Text() }

// Float returns a number value, or 0
func (v Value) Float() float64 {
	if v.kind == Number {
		return v.num
	}
	return 0
}

// Int returns a number value as an integer, or 0
func (v Value) Int() int64 {
	if v.kind != Number {
		return 0
	}
	if n, err := strconv.ParseInt(v.raw, 10, 64); err == nil {
		return n
	}
	return int64(v.num)
}

// Bool returns a boolean value, or false
func (v Value) Bool() bool {
	return v.kind == Bool && v.b
}

// Get returns the object field key. The zero Value is returned for missing
// keys and non-objects.
func (v Value) Get(key string) Value {
	f, _ := v.Lookup(key)
	return f
}

// Lookup returns the object field key and whether it exists
func (v Value) Lookup(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Name == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Fields returns object fields in source order
func (v Value) Fields() []Field { return v.fields }

// Items returns list elements in source order
func (v Value) Items() []Value { return v.items }

// Index returns the i-th list element, or null when out of range
func (v Value) Index(i int) Value {
	if i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Len returns the number of list elements or object fields
func (v Value) Len() int {
	switch v.kind {
	case List:
		return len(v.items)
	case Object:
		return len(v.fields)
	}
	return 0
}

// Interface converts the value to plain Go data (map[string]any, []any,
// string, float64, bool or nil).
func (v Value) Interface() any {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return v.num
	case Bool:
		return v.b
	case Object:
		m := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			m[f.Name] = f.Value.Interface()
		}
		return m
	case List:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// Equal reports whether v holds exactly expected. Numbers compare by value
// whatever Go numeric type expected has.
func (v Value) Equal(expected any) bool {
	switch e := expected.(type) {
	case nil:
		return v.kind == Null
	case Value:
		return v.kind == e.kind && v.Text() == e.Text()
	case string:
		return v.kind == String && v.str == e
	case bool:
		return v.kind == Bool && v.b == e
	}
	if f, ok := toFloat(expected); ok {
		return v.kind == Number && v.num == f
	}
	return false
}

func toFloat(n any) (float64, bool) {
	switch x := n.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
