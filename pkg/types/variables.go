package types

import (
	"sort"
	"strconv"
)

// Kind is the type of a template variable
type Kind string

const (
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
	KindChoice  Kind = "choice"
)

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindBoolean, KindChoice:
		return true
	}
	return false
}

// Value is a concrete variable value
type Value struct {
	kind Kind
	str  string
	b    bool
}

// StringValue returns a string-kinded value
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// ChoiceValue returns a choice-kinded value
func ChoiceValue(s string) Value { return Value{kind: KindChoice, str: s} }

// BoolValue returns a boolean-kinded value
func BoolValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

func (v Value) Kind() Kind { return v.kind }

// Bool returns the boolean payload. It is false for non-boolean values.
func (v Value) Bool() bool { return v.b }

// String renders the value the way it is substituted into files and paths
func (v Value) String() string {
	if v.kind == KindBoolean {
		return strconv.FormatBool(v.b)
	}
	return v.str
}

// Interface returns the value as a plain Go value (string or bool)
func (v Value) Interface() interface{} {
	if v.kind == KindBoolean {
		return v.b
	}
	return v.str
}

// Variables is an immutable mapping from variable name to resolved value
type Variables struct {
	values map[string]Value
}

// NewVariables copies values into a new immutable mapping
func NewVariables(values map[string]Value) Variables {
	copied := make(map[string]Value, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Variables{values: copied}
}

// Get returns the value bound to name
func (v Variables) Get(name string) (Value, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Has reports whether name is bound
func (v Variables) Has(name string) bool {
	_, ok := v.values[name]
	return ok
}

// Len returns the number of bound variables
func (v Variables) Len() int { return len(v.values) }

// Names returns the bound names in sorted order
func (v Variables) Names() []string {
	names := make([]string, 0, len(v.values))
	for name := range v.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the mapping as plain Go values
func (v Variables) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(v.values))
	for k, val := range v.values {
		out[k] = val.Interface()
	}
	return out
}
