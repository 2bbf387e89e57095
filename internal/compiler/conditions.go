package compiler

import (
	"math"

	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/operator"
)

// Built-in condition kinds.
const (
	CondNumberVariable      = "NumberVariable"
	CondStringVariable      = "StringVariable"
	CondVariableChildExists = "VariableChildExists"
	CondVariableChildCount  = "VariableChildCount"
	CondCompareNumbers      = "BuiltinCommonInstructions::CompareNumbers"
	CondCompareStrings      = "BuiltinCommonInstructions::CompareStrings"
	CondOr                  = "BuiltinCommonInstructions::Or"
	CondAnd                 = "BuiltinCommonInstructions::And"
	CondNot                 = "BuiltinCommonInstructions::Not"
	CondOnce                = "BuiltinCommonInstructions::Once"
)

func registerBuiltinConditions(r *Registry) {
	mustRegisterCondition(r, CondNumberVariable, ConditionSpec{
		Params:      []ParamKind{ParamVariable, ParamOperator, ParamValue},
		Comparisons: operator.NumericComparisons,
		Build:       buildNumberVariable,
	})
	mustRegisterCondition(r, CondStringVariable, ConditionSpec{
		Params:      []ParamKind{ParamVariable, ParamOperator, ParamValue},
		Comparisons: operator.StringComparisons,
		Build:       buildStringVariable,
	})
	mustRegisterCondition(r, CondVariableChildExists, ConditionSpec{
		Params: []ParamKind{ParamVariable, ParamValue},
		Build:  buildChildExists,
	})
	mustRegisterCondition(r, CondVariableChildCount, ConditionSpec{
		Params:      []ParamKind{ParamVariable, ParamOperator, ParamValue},
		Comparisons: operator.NumericComparisons,
		Build:       buildChildCount,
	})
	mustRegisterCondition(r, CondCompareNumbers, ConditionSpec{
		Params:      []ParamKind{ParamValue, ParamOperator, ParamValue},
		Comparisons: operator.NumericComparisons,
		Build:       buildCompareNumbers,
	})
	mustRegisterCondition(r, CondCompareStrings, ConditionSpec{
		Params:      []ParamKind{ParamValue, ParamOperator, ParamValue},
		Comparisons: operator.StringComparisons,
		Build:       buildCompareStrings,
	})
	mustRegisterCondition(r, CondOr, ConditionSpec{SubInstructions: true, Build: buildOr})
	mustRegisterCondition(r, CondAnd, ConditionSpec{SubInstructions: true, Build: buildAnd})
	mustRegisterCondition(r, CondNot, ConditionSpec{SubInstructions: true, Build: buildNot})
	mustRegisterCondition(r, CondOnce, ConditionSpec{Build: buildOnce})
}

func buildNumberVariable(p []Param, _ []Condition) (Condition, error) {
	path, op, value := p[0].Path, operator.Comparison(p[1].Operator), p[2].Operand
	return func(f *Frame) (bool, error) {
		return compareNumbers(f, f.Vars.Resolve(path), op, value.Resolve(f))
	}, nil
}

func buildStringVariable(p []Param, _ []Condition) (Condition, error) {
	path, op, value := p[0].Path, operator.Comparison(p[1].Operator), p[2].Operand
	return func(f *Frame) (bool, error) {
		return compareStrings(f, f.Vars.Resolve(path), op, value.Resolve(f))
	}, nil
}

func buildCompareNumbers(p []Param, _ []Condition) (Condition, error) {
	lhs, op, rhs := p[0].Operand, operator.Comparison(p[1].Operator), p[2].Operand
	return func(f *Frame) (bool, error) {
		return compareNumbers(f, lhs.Resolve(f), op, rhs.Resolve(f))
	}, nil
}

func buildCompareStrings(p []Param, _ []Condition) (Condition, error) {
	lhs, op, rhs := p[0].Operand, operator.Comparison(p[1].Operator), p[2].Operand
	return func(f *Frame) (bool, error) {
		return compareStrings(f, lhs.Resolve(f), op, rhs.Resolve(f))
	}, nil
}

func compareNumbers(f *Frame, lhs ir.Variable, op operator.Comparison, rhs ir.Variable) (bool, error) {
	l, err := f.Eval.Number(lhs)
	if err != nil {
		return false, err
	}
	r, err := f.Eval.Number(rhs)
	if err != nil {
		return false, err
	}
	return operator.CompareNumbers(l, op, r)
}

func compareStrings(f *Frame, lhs ir.Variable, op operator.Comparison, rhs ir.Variable) (bool, error) {
	l, err := f.Eval.Text(lhs)
	if err != nil {
		return false, err
	}
	r, err := f.Eval.Text(rhs)
	if err != nil {
		return false, err
	}
	return operator.CompareStrings(l, op, r)
}

func buildChildExists(p []Param, _ []Condition) (Condition, error) {
	path, child := p[0].Path, p[1].Operand
	return func(f *Frame) (bool, error) {
		switch v := f.Vars.Resolve(path).(type) {
		case ir.Structure:
			name, err := f.Eval.Text(child.Resolve(f))
			if err != nil {
				return false, err
			}
			_, ok := v.Get(name)
			return ok, nil
		case ir.Array:
			i, err := childIndex(f, child)
			if err != nil {
				return false, err
			}
			_, ok := v.Get(i)
			return ok, nil
		default:
			return false, nil
		}
	}, nil
}

func buildChildCount(p []Param, _ []Condition) (Condition, error) {
	path, op, value := p[0].Path, operator.Comparison(p[1].Operator), p[2].Operand
	return func(f *Frame) (bool, error) {
		n := ir.Number(ir.ChildCount(f.Vars.Resolve(path)))
		return compareNumbers(f, n, op, value.Resolve(f))
	}, nil
}

// childIndex resolves an array index operand. Fractions truncate, and
// non-finite, negative or out of int32 range values map to -1, which
// matches no element.
func childIndex(f *Frame, o Operand) (int, error) {
	n, err := f.Eval.Number(o.Resolve(f))
	if err != nil {
		return -1, err
	}
	if math.IsNaN(n) || n < 0 || n > math.MaxInt32 {
		return -1, nil
	}
	return int(n), nil
}

func buildOr(_ []Param, sub []Condition) (Condition, error) {
	return func(f *Frame) (bool, error) {
		for _, c := range sub {
			ok, err := c(f)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

func buildAnd(_ []Param, sub []Condition) (Condition, error) {
	return func(f *Frame) (bool, error) {
		return EvaluateConditions(sub, f)
	}, nil
}

func buildNot(_ []Param, sub []Condition) (Condition, error) {
	return func(f *Frame) (bool, error) {
		ok, err := EvaluateConditions(sub, f)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}, nil
}

// buildOnce is true the first time it is reached after a tick in which it
// was not reached at all.
func buildOnce(_ []Param, _ []Condition) (Condition, error) {
	var (
		reached bool
		last    uint64
	)
	return func(f *Frame) (bool, error) {
		fire := !reached || (f.Tick != last && f.Tick != last+1)
		reached = true
		last = f.Tick
		return fire, nil
	}, nil
}
