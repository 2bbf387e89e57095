// Package operator evaluates comparison and modification operators over
// variables.
//
// Comparisons coerce their operands: "=" compares as strings when either
// side is a String and as numbers otherwise; ordering operators always
// compare numbers; "contains" is a case-sensitive substring test.
package operator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/eventsheet/internal/ir"
)

// Comparison is a comparison operator symbol.
type Comparison string

const (
	Equal          Comparison = "="
	NotEqual       Comparison = "!="
	Less           Comparison = "<"
	LessOrEqual    Comparison = "<="
	Greater        Comparison = ">"
	GreaterOrEqual Comparison = ">="
	Contains       Comparison = "contains"
)

// Modifier is a modification operator symbol used by Set actions.
type Modifier string

const (
	Assign   Modifier = "="
	Add      Modifier = "+"
	Subtract Modifier = "-"
	Multiply Modifier = "*"
	Divide   Modifier = "/"
)

// Operator sets accepted by instruction kinds.
var (
	NumericComparisons = []Comparison{Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual}
	StringComparisons  = []Comparison{Equal, NotEqual, Contains}
	AllComparisons     = []Comparison{Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual, Contains}

	NumberModifiers = []Modifier{Assign, Add, Subtract, Multiply, Divide}
	StringModifiers = []Modifier{Assign, Add}
)

// UnsupportedOperatorError reports an operator symbol that is unknown or
// not accepted in its position.
type UnsupportedOperatorError struct {
	Operator string
}

// Error implements the error interface.
func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("unsupported operator %q", e.Operator)
}

// IsUnsupportedOperator returns true if err wraps an UnsupportedOperatorError.
func IsUnsupportedOperator(err error) bool {
	var ue *UnsupportedOperatorError
	return errors.As(err, &ue)
}

// ParseComparison parses token as one of the allowed comparisons.
// With no allowed set, every comparison is accepted.
func ParseComparison(token string, allowed ...Comparison) (Comparison, error) {
	if len(allowed) == 0 {
		allowed = AllComparisons
	}
	for _, c := range allowed {
		if string(c) == token {
			return c, nil
		}
	}
	return "", &UnsupportedOperatorError{Operator: token}
}

// ParseModifier parses token as one of the allowed modifiers.
// With no allowed set, every modifier is accepted.
func ParseModifier(token string, allowed ...Modifier) (Modifier, error) {
	if len(allowed) == 0 {
		allowed = NumberModifiers
	}
	for _, m := range allowed {
		if string(m) == token {
			return m, nil
		}
	}
	return "", &UnsupportedOperatorError{Operator: token}
}

// Evaluator applies operators. Strict evaluators report coercion failures
// as *ir.CoercionError; the zero Evaluator coerces them to zero values.
type Evaluator struct {
	Strict bool
}

// Compare evaluates lhs op rhs with forgiving coercion.
func Compare(lhs ir.Variable, op Comparison, rhs ir.Variable) (bool, error) {
	return Evaluator{}.Compare(lhs, op, rhs)
}

// Compare evaluates lhs op rhs.
func (e Evaluator) Compare(lhs ir.Variable, op Comparison, rhs ir.Variable) (bool, error) {
	switch op {
	case Equal, NotEqual:
		eq, err := e.equal(lhs, rhs)
		if err != nil {
			return false, err
		}
		return eq == (op == Equal), nil
	case Less, LessOrEqual, Greater, GreaterOrEqual:
		l, err := e.number(lhs)
		if err != nil {
			return false, err
		}
		r, err := e.number(rhs)
		if err != nil {
			return false, err
		}
		return CompareNumbers(l, op, r)
	case Contains:
		l, err := e.text(lhs)
		if err != nil {
			return false, err
		}
		r, err := e.text(rhs)
		if err != nil {
			return false, err
		}
		return strings.Contains(l, r), nil
	default:
		return false, &UnsupportedOperatorError{Operator: string(op)}
	}
}

// CompareNumbers evaluates l op r over plain numbers.
func CompareNumbers(l float64, op Comparison, r float64) (bool, error) {
	switch op {
	case Equal:
		return l == r, nil
	case NotEqual:
		return l != r, nil
	case Less:
		return l < r, nil
	case LessOrEqual:
		return l <= r, nil
	case Greater:
		return l > r, nil
	case GreaterOrEqual:
		return l >= r, nil
	default:
		return false, &UnsupportedOperatorError{Operator: string(op)}
	}
}

// CompareStrings evaluates l op r over plain strings.
// Ordering operators are not defined on strings.
func CompareStrings(l string, op Comparison, r string) (bool, error) {
	switch op {
	case Equal:
		return l == r, nil
	case NotEqual:
		return l != r, nil
	case Contains:
		return strings.Contains(l, r), nil
	default:
		return false, &UnsupportedOperatorError{Operator: string(op)}
	}
}

func (e Evaluator) equal(lhs, rhs ir.Variable) (bool, error) {
	if isString(lhs) || isString(rhs) {
		l, err := e.text(lhs)
		if err != nil {
			return false, err
		}
		r, err := e.text(rhs)
		if err != nil {
			return false, err
		}
		return l == r, nil
	}
	l, err := e.number(lhs)
	if err != nil {
		return false, err
	}
	r, err := e.number(rhs)
	if err != nil {
		return false, err
	}
	return l == r, nil
}

func (e Evaluator) number(v ir.Variable) (float64, error) {
	f, err := ir.ToNumber(v)
	if err != nil && !e.Strict {
		return f, nil
	}
	return f, err
}

func (e Evaluator) text(v ir.Variable) (string, error) {
	s, err := ir.ToString(v)
	if err != nil && !e.Strict {
		return s, nil
	}
	return s, err
}

// Number returns the numeric value of v under e's coercion policy.
func (e Evaluator) Number(v ir.Variable) (float64, error) {
	return e.number(v)
}

// Text returns the string value of v under e's coercion policy.
func (e Evaluator) Text(v ir.Variable) (string, error) {
	return e.text(v)
}

func isString(v ir.Variable) bool {
	_, ok := v.(ir.String)
	return ok
}

// ApplyNumber returns cur modified by v.
func ApplyNumber(cur float64, m Modifier, v float64) (float64, error) {
	switch m {
	case Assign:
		return v, nil
	case Add:
		return cur + v, nil
	case Subtract:
		return cur - v, nil
	case Multiply:
		return cur * v, nil
	case Divide:
		// IEEE division: x/0 is ±Inf or NaN, never a failure
		return cur / v, nil
	default:
		return 0, &UnsupportedOperatorError{Operator: string(m)}
	}
}

// ApplyString returns cur modified by v. Only "=" and "+" (append) apply.
func ApplyString(cur string, m Modifier, v string) (string, error) {
	switch m {
	case Assign:
		return v, nil
	case Add:
		return cur + v, nil
	default:
		return "", &UnsupportedOperatorError{Operator: string(m)}
	}
}
