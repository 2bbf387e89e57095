package compiler

import (
	"fmt"
	"sort"

	"github.com/roach88/eventsheet/internal/operator"
	"github.com/roach88/eventsheet/internal/variables"
)

// ParamKind is the role of one instruction parameter.
type ParamKind int

const (
	ParamVariable ParamKind = iota // variable path, E204 if malformed
	ParamOperator                  // comparison or modifier symbol, E202 if not allowed
	ParamValue                     // operand token, E207 if malformed
)

func (k ParamKind) String() string {
	switch k {
	case ParamVariable:
		return "variable"
	case ParamOperator:
		return "operator"
	case ParamValue:
		return "value"
	default:
		return fmt.Sprintf("param(%d)", int(k))
	}
}

// Param is one checked parameter handed to a builder. Only the field
// matching Kind is set.
type Param struct {
	Kind     ParamKind
	Path     variables.Path
	Operator string
	Operand  Operand
}

// ConditionSpec describes a condition kind.
type ConditionSpec struct {
	Params      []ParamKind
	Comparisons []operator.Comparison

	// SubInstructions conditions take compiled sub-conditions instead of
	// parameters.
	SubInstructions bool

	// Build is called once per compiled instruction. State captured by the
	// returned closure belongs to that instruction only.
	Build func(params []Param, sub []Condition) (Condition, error)
}

// ActionSpec describes an action kind.
type ActionSpec struct {
	Params    []ParamKind
	Modifiers []operator.Modifier
	Build     func(params []Param) (Action, error)
}

// Registry maps instruction kinds to their specs. Registries are plain
// values owned by their creator; there is no package-level registry.
type Registry struct {
	conditions map[string]ConditionSpec
	actions    map[string]ActionSpec
}

// NewRegistry returns a registry holding the built-in instructions.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	registerBuiltinConditions(r)
	registerBuiltinActions(r)
	return r
}

// NewEmptyRegistry returns a registry with no instructions.
func NewEmptyRegistry() *Registry {
	return &Registry{
		conditions: make(map[string]ConditionSpec),
		actions:    make(map[string]ActionSpec),
	}
}

// RegisterCondition adds a condition kind.
func (r *Registry) RegisterCondition(kind string, spec ConditionSpec) error {
	if kind == "" {
		return fmt.Errorf("condition kind is empty")
	}
	if spec.Build == nil {
		return fmt.Errorf("condition %q has no builder", kind)
	}
	if _, exists := r.conditions[kind]; exists {
		return fmt.Errorf("condition %q already registered", kind)
	}
	r.conditions[kind] = spec
	return nil
}

// RegisterAction adds an action kind.
func (r *Registry) RegisterAction(kind string, spec ActionSpec) error {
	if kind == "" {
		return fmt.Errorf("action kind is empty")
	}
	if spec.Build == nil {
		return fmt.Errorf("action %q has no builder", kind)
	}
	if _, exists := r.actions[kind]; exists {
		return fmt.Errorf("action %q already registered", kind)
	}
	r.actions[kind] = spec
	return nil
}

// Condition returns the spec for a condition kind.
func (r *Registry) Condition(kind string) (ConditionSpec, bool) {
	spec, ok := r.conditions[kind]
	return spec, ok
}

// Action returns the spec for an action kind.
func (r *Registry) Action(kind string) (ActionSpec, bool) {
	spec, ok := r.actions[kind]
	return spec, ok
}

// ConditionKinds returns the registered condition kinds, sorted.
func (r *Registry) ConditionKinds() []string {
	return sortedKeys(r.conditions)
}

// ActionKinds returns the registered action kinds, sorted.
func (r *Registry) ActionKinds() []string {
	return sortedKeys(r.actions)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mustRegisterCondition(r *Registry, kind string, spec ConditionSpec) {
	if err := r.RegisterCondition(kind, spec); err != nil {
		panic(err)
	}
}

func mustRegisterAction(r *Registry, kind string, spec ActionSpec) {
	if err := r.RegisterAction(kind, spec); err != nil {
		panic(err)
	}
}
