package queryir

import "fmt"

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	// IsValid is true when Problems is empty.
	IsValid bool

	Problems []string
}

// Validate checks that a query names a known source and only known
// columns of it, and that every predicate is well formed.
//
// Backends must refuse invalid queries: column names are spliced into the
// generated query text, values never are.
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	source   Source
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if _, ok := columns[sel.From]; !ok {
		v.addProblem("unknown source %q", sel.From)
		return
	}
	v.source = sel.From

	if len(sel.Fields) == 0 {
		v.addProblem("no fields selected from %s", sel.From)
	}
	for _, f := range sel.Fields {
		v.checkColumn(f)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) checkColumn(name string) bool {
	if !HasColumn(v.source, name) {
		v.addProblem("unknown column %q in %s", name, v.source)
		return false
	}
	return true
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.checkColumn(pred.Field)
		v.checkValue(pred.Field, pred.Value)
	case Compare:
		if v.checkColumn(pred.Field) && !ordered[pred.Field] {
			v.addProblem("column %q is not ordered", pred.Field)
		}
		switch pred.Op {
		case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		default:
			v.addProblem("unknown comparison %q on %s", pred.Op, pred.Field)
		}
		v.checkValue(pred.Field, pred.Value)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case nil:
		v.addProblem("nil predicate")
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) checkValue(field string, val Value) {
	switch val.(type) {
	case String, Int, Bool:
	case nil:
		v.addProblem("column %q compared to nil", field)
	default:
		v.addProblem("unknown value type %T for %s", val, field)
	}
}
