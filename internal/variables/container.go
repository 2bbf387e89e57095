package variables

import (
	"fmt"
	"slices"

	"github.com/roach88/eventsheet/internal/ir"
)

// Scope identifies which region of storage a container holds.
type Scope int

const (
	Global Scope = iota
	Scene
	Object
)

// String returns the scope name used in logs and run records.
func (s Scope) String() string {
	switch s {
	case Global:
		return "global"
	case Scene:
		return "scene"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// ParseScope parses the output of Scope.String.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "global":
		return Global, nil
	case "scene":
		return Scene, nil
	case "object":
		return Object, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", s)
	}
}

// Container is one variable scope: a mapping from names to variables.
//
// Reads through Get declare missing names as Number(0), so authoring
// mistakes degrade to zero values instead of failures. Writes are visible
// to the next read immediately; nothing is buffered.
//
// Thread-safety: none. A container is owned by the tick goroutine.
type Container struct {
	scope Scope
	owner string
	vars  map[string]ir.Variable
}

// New creates an empty container for the given scope.
func New(scope Scope) *Container {
	return &Container{scope: scope, vars: make(map[string]ir.Variable)}
}

// NewInstance creates an empty object-instance container.
// owner is the object name the instance was placed from.
func NewInstance(owner string) *Container {
	c := New(Object)
	c.owner = owner
	return c
}

// FromList creates a container initialised from serialized variables.
func FromList(scope Scope, list ir.VariableList) *Container {
	c := New(scope)
	c.Load(list)
	return c
}

// Scope returns the container's scope.
func (c *Container) Scope() Scope { return c.scope }

// Owner returns the object name for instance containers, "" otherwise.
func (c *Container) Owner() string { return c.owner }

// Get returns the named variable, declaring it as Number(0) if absent.
func (c *Container) Get(name string) ir.Variable {
	if v, ok := c.vars[name]; ok {
		return v
	}
	v := ir.Zero()
	c.vars[name] = v
	return v
}

// Lookup returns the named variable without declaring it.
func (c *Container) Lookup(name string) (ir.Variable, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Has reports whether name is declared.
func (c *Container) Has(name string) bool {
	_, ok := c.vars[name]
	return ok
}

// Set upserts a variable. A nil value stores Number(0).
func (c *Container) Set(name string, v ir.Variable) {
	if v == nil {
		v = ir.Zero()
	}
	c.vars[name] = v
}

// Remove deletes a variable and reports whether it existed.
func (c *Container) Remove(name string) bool {
	_, ok := c.vars[name]
	delete(c.vars, name)
	return ok
}

// AsNumber reads the named variable as a number (declare-on-read).
func (c *Container) AsNumber(name string) float64 {
	return ir.AsNumber(c.Get(name))
}

// AsString reads the named variable as a string (declare-on-read).
func (c *Container) AsString(name string) string {
	return ir.AsString(c.Get(name))
}

// Len returns the number of declared variables.
func (c *Container) Len() int {
	return len(c.vars)
}

// Names returns declared names in sorted order.
func (c *Container) Names() []string {
	names := make([]string, 0, len(c.vars))
	for name := range c.vars {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Snapshot returns the container contents sorted by name.
// Values are immutable so the snapshot never aliases later writes.
func (c *Container) Snapshot() ir.VariableList {
	names := c.Names()
	list := make(ir.VariableList, len(names))
	for i, name := range names {
		list[i] = ir.NamedVariable{Name: name, Value: c.vars[name]}
	}
	return list
}

// Load replaces the container contents with list.
func (c *Container) Load(list ir.VariableList) {
	c.vars = make(map[string]ir.Variable, len(list))
	for _, nv := range list {
		c.Set(nv.Name, nv.Value)
	}
}
