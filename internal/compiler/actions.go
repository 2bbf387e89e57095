package compiler

import (
	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/operator"
	"github.com/roach88/eventsheet/internal/variables"
)

// Built-in action kinds.
const (
	ActSetNumberVariable     = "SetNumberVariable"
	ActSetStringVariable     = "SetStringVariable"
	ActPushNumber            = "PushNumber"
	ActPushString            = "PushString"
	ActRemoveVariableChild   = "RemoveVariableChild"
	ActClearVariableChildren = "ClearVariableChildren"
)

func registerBuiltinActions(r *Registry) {
	mustRegisterAction(r, ActSetNumberVariable, ActionSpec{
		Params:    []ParamKind{ParamVariable, ParamOperator, ParamValue},
		Modifiers: operator.NumberModifiers,
		Build:     buildSetNumber,
	})
	mustRegisterAction(r, ActSetStringVariable, ActionSpec{
		Params:    []ParamKind{ParamVariable, ParamOperator, ParamValue},
		Modifiers: operator.StringModifiers,
		Build:     buildSetString,
	})
	mustRegisterAction(r, ActPushNumber, ActionSpec{
		Params: []ParamKind{ParamVariable, ParamValue},
		Build:  buildPushNumber,
	})
	mustRegisterAction(r, ActPushString, ActionSpec{
		Params: []ParamKind{ParamVariable, ParamValue},
		Build:  buildPushString,
	})
	mustRegisterAction(r, ActRemoveVariableChild, ActionSpec{
		Params: []ParamKind{ParamVariable, ParamValue},
		Build:  buildRemoveChild,
	})
	mustRegisterAction(r, ActClearVariableChildren, ActionSpec{
		Params: []ParamKind{ParamVariable},
		Build:  buildClearChildren,
	})
}

func buildSetNumber(p []Param) (Action, error) {
	path, mod, value := p[0].Path, operator.Modifier(p[1].Operator), p[2].Operand
	return func(f *Frame) error {
		v, err := f.Eval.Number(value.Resolve(f))
		if err != nil {
			return err
		}
		cur := 0.0
		if mod != operator.Assign {
			if cur, err = f.Eval.Number(f.Vars.Resolve(path)); err != nil {
				return err
			}
		}
		n, err := operator.ApplyNumber(cur, mod, v)
		if err != nil {
			return err
		}
		f.Vars.Assign(path, ir.Number(n))
		return nil
	}, nil
}

func buildSetString(p []Param) (Action, error) {
	path, mod, value := p[0].Path, operator.Modifier(p[1].Operator), p[2].Operand
	return func(f *Frame) error {
		v, err := f.Eval.Text(value.Resolve(f))
		if err != nil {
			return err
		}
		cur := ""
		if mod != operator.Assign {
			if cur, err = f.Eval.Text(f.Vars.Resolve(path)); err != nil {
				return err
			}
		}
		s, err := operator.ApplyString(cur, mod, v)
		if err != nil {
			return err
		}
		f.Vars.Assign(path, ir.String(s))
		return nil
	}, nil
}

func buildPushNumber(p []Param) (Action, error) {
	path, value := p[0].Path, p[1].Operand
	return func(f *Frame) error {
		n, err := f.Eval.Number(value.Resolve(f))
		if err != nil {
			return err
		}
		push(f, path, ir.Number(n))
		return nil
	}, nil
}

func buildPushString(p []Param) (Action, error) {
	path, value := p[0].Path, p[1].Operand
	return func(f *Frame) error {
		s, err := f.Eval.Text(value.Resolve(f))
		if err != nil {
			return err
		}
		push(f, path, ir.String(s))
		return nil
	}, nil
}

func push(f *Frame, path variables.Path, v ir.Variable) {
	f.Vars.Update(path, func(cur ir.Variable) ir.Variable {
		arr, ok := cur.(ir.Array)
		if !ok {
			arr = ir.Array{}
		}
		return arr.Append(v)
	})
}

func buildRemoveChild(p []Param) (Action, error) {
	path, child := p[0].Path, p[1].Operand
	return func(f *Frame) error {
		switch v := f.Vars.Resolve(path).(type) {
		case ir.Structure:
			name, err := f.Eval.Text(child.Resolve(f))
			if err != nil {
				return err
			}
			f.Vars.Assign(path, v.Without(name))
		case ir.Array:
			i, err := childIndex(f, child)
			if err != nil {
				return err
			}
			if i >= 0 {
				f.Vars.Assign(path, v.Without(i))
			}
		}
		return nil
	}, nil
}

func buildClearChildren(p []Param) (Action, error) {
	path := p[0].Path
	return func(f *Frame) error {
		switch f.Vars.Resolve(path).(type) {
		case ir.Structure:
			f.Vars.Assign(path, ir.NewStructure())
		case ir.Array:
			f.Vars.Assign(path, ir.Array{})
		}
		return nil
	}, nil
}
