package compiler

import (
	"github.com/roach88/eventsheet/internal/operator"
	"github.com/roach88/eventsheet/internal/variables"
)

// Budget is charged one step per evaluated instruction. Charge returns a
// fatal error once the budget is spent.
type Budget interface {
	Charge() error
}

// InstanceSource supplies the variable containers of object instances for
// ForEach events.
type InstanceSource interface {
	Instances(object string) []*variables.Container
}

// Frame is the explicit evaluation context handed to compiled units.
// There is no ambient state: everything a unit reads or writes is reached
// through its Frame.
type Frame struct {
	Vars      variables.Chain
	Tick      uint64
	Eval      operator.Evaluator
	Budget    Budget
	Instances InstanceSource

	// Report receives non-fatal errors caught at event boundaries.
	Report func(event string, err error)
}

func (f *Frame) charge() error {
	if f.Budget == nil {
		return nil
	}
	return f.Budget.Charge()
}

func (f *Frame) report(event string, err error) {
	if f.Report != nil {
		f.Report(event, err)
	}
}

// Unit is a compiled event or event list.
type Unit func(f *Frame) error

// Condition is a compiled condition.
type Condition func(f *Frame) (bool, error)

// Action is a compiled action.
type Action func(f *Frame) error

// EvaluateConditions ANDs conds left to right, stopping at the first false
// or failing condition. An empty list passes.
func EvaluateConditions(conds []Condition, f *Frame) (bool, error) {
	for _, c := range conds {
		ok, err := c(f)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Program is a compiled scene.
type Program struct {
	Scene string
	Hash  string
	Stats Stats
	root  Unit
}

// Run invokes the scene's root unit once.
func (p *Program) Run(f *Frame) error {
	return p.root(f)
}

// Stats counts what a compilation produced. Linked events are counted once
// per inclusion.
type Stats struct {
	Events     int `json:"events"`
	Conditions int `json:"conditions"`
	Actions    int `json:"actions"`
	Links      int `json:"links"`
}
