package ir

import (
	"math"
	"slices"
)

// Kind names a Variable variant. The string form is the serialized "type".
type Kind string

const (
	KindNumber    Kind = "number"
	KindString    Kind = "string"
	KindStructure Kind = "structure"
	KindArray     Kind = "array"
)

// Variable is a sealed interface over the four variable variants.
// Only Number, String, Structure and Array implement it.
//
// Variables are values: a Structure or Array is never mutated in place.
// Writers build a new value (With, Without, Append) and store it.
type Variable interface {
	Kind() Kind
	variable() // Sealed
}

// Number is a numeric variable. It is also the default value.
type Number float64

func (Number) variable() {}

// Kind implements Variable.
func (Number) Kind() Kind { return KindNumber }

// String is a text variable.
type String string

func (String) variable() {}

// Kind implements Variable.
func (String) Kind() Kind { return KindString }

// Array is an ordered list of variables.
type Array []Variable

func (Array) variable() {}

// Kind implements Variable.
func (Array) Kind() Kind { return KindArray }

// Zero returns the default variable value, Number(0).
func Zero() Variable {
	return Number(0)
}

// Pair is a named child used to build a Structure.
type Pair struct {
	Name  string
	Value Variable
}

// P is a shorthand for Pair.
// Example: NewStructure(P("hp", Number(10)), P("name", String("Bob")))
func P(name string, value Variable) Pair {
	return Pair{Name: name, Value: value}
}

// Structure is an ordered mapping of child names to variables.
// Iteration follows insertion order; re-setting a child keeps its position.
type Structure struct {
	keys   []string
	values map[string]Variable
}

func (Structure) variable() {}

// Kind implements Variable.
func (Structure) Kind() Kind { return KindStructure }

// NewStructure builds a Structure from pairs. Later duplicates replace
// earlier values but keep the first position.
func NewStructure(pairs ...Pair) Structure {
	s := Structure{
		keys:   make([]string, 0, len(pairs)),
		values: make(map[string]Variable, len(pairs)),
	}
	for _, p := range pairs {
		if _, exists := s.values[p.Name]; !exists {
			s.keys = append(s.keys, p.Name)
		}
		s.values[p.Name] = orZero(p.Value)
	}
	return s
}

// Len returns the number of children.
func (s Structure) Len() int {
	return len(s.keys)
}

// Keys returns child names in insertion order.
func (s Structure) Keys() []string {
	return slices.Clone(s.keys)
}

// Get returns the named child.
func (s Structure) Get(name string) (Variable, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Pairs returns the children in insertion order.
func (s Structure) Pairs() []Pair {
	pairs := make([]Pair, len(s.keys))
	for i, k := range s.keys {
		pairs[i] = Pair{Name: k, Value: s.values[k]}
	}
	return pairs
}

// With returns a copy of s with the named child set to v.
func (s Structure) With(name string, v Variable) Structure {
	out := s.clone()
	if _, exists := out.values[name]; !exists {
		out.keys = append(out.keys, name)
	}
	out.values[name] = orZero(v)
	return out
}

// Without returns a copy of s without the named child.
func (s Structure) Without(name string) Structure {
	if _, exists := s.values[name]; !exists {
		return s
	}
	out := s.clone()
	delete(out.values, name)
	out.keys = slices.DeleteFunc(out.keys, func(k string) bool { return k == name })
	return out
}

func (s Structure) clone() Structure {
	out := Structure{
		keys:   slices.Clone(s.keys),
		values: make(map[string]Variable, len(s.values)+1),
	}
	for k, v := range s.values {
		out.values[k] = v
	}
	return out
}

// Get returns the element at index i.
func (a Array) Get(i int) (Variable, bool) {
	if i < 0 || i >= len(a) {
		return nil, false
	}
	return a[i], true
}

// MaxArrayIndex is the largest index a variable path may address. Writes
// past the end of an array pad the gap, so the cap bounds that growth.
const MaxArrayIndex = 1<<16 - 1

// With returns a copy of a with element i set to v. Indexes past the end
// pad the gap with Number(0). i must be in [0, MaxArrayIndex].
func (a Array) With(i int, v Variable) Array {
	size := len(a)
	if i >= size {
		size = i + 1
	}
	out := make(Array, size)
	copy(out, a)
	for j := len(a); j < size; j++ {
		out[j] = Zero()
	}
	out[i] = orZero(v)
	return out
}

// Append returns a copy of a with v added at the end.
func (a Array) Append(v Variable) Array {
	out := make(Array, len(a), len(a)+1)
	copy(out, a)
	return append(out, orZero(v))
}

// Without returns a copy of a with element i removed.
// Out-of-range indexes return a unchanged.
func (a Array) Without(i int) Array {
	if i < 0 || i >= len(a) {
		return a
	}
	out := make(Array, 0, len(a)-1)
	out = append(out, a[:i]...)
	return append(out, a[i+1:]...)
}

// ChildCount returns the number of children of a structured variable,
// or 0 for scalars.
func ChildCount(v Variable) int {
	switch val := v.(type) {
	case Structure:
		return val.Len()
	case Array:
		return len(val)
	default:
		return 0
	}
}

// Equal reports whether two variables hold the same tag and value.
// NaN numbers compare equal to each other so unchanged NaNs are not
// reported as changes.
func Equal(a, b Variable) bool {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		if !ok {
			return false
		}
		return x == y || (math.IsNaN(float64(x)) && math.IsNaN(float64(y)))
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Structure:
		y, ok := b.(Structure)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, k := range x.keys {
			if y.keys[i] != k || !Equal(x.values[k], y.values[k]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

func orZero(v Variable) Variable {
	if v == nil {
		return Zero()
	}
	return v
}
