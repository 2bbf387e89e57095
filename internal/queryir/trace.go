package queryir

// TraceFilter is the user-facing filter of the trace command.
// Zero fields do not filter.
type TraceFilter struct {
	RunID string
	Names []string // variable names, matched exactly
	Scope string   // global, scene or object
	Since uint64   // first tick, inclusive
	Until uint64   // last tick, inclusive
}

// Changes returns the query for the variable changes matching f.
func (f TraceFilter) Changes() Select {
	preds := f.common()
	if len(f.Names) > 0 {
		names := make([]Predicate, len(f.Names))
		for i, n := range f.Names {
			names[i] = Equals{Field: "name", Value: String(n)}
		}
		preds = append(preds, Or{Predicates: names})
	}
	if f.Scope != "" {
		preds = append(preds, Equals{Field: "scope", Value: String(f.Scope)})
	}
	return Select{
		From:   SourceChanges,
		Fields: Columns(SourceChanges),
		Filter: And{Predicates: preds},
	}
}

// Warnings returns the query for the warnings matching f. Name and scope
// filters do not apply to warnings.
func (f TraceFilter) Warnings() Select {
	return Select{
		From:   SourceWarnings,
		Fields: Columns(SourceWarnings),
		Filter: And{Predicates: f.common()},
	}
}

func (f TraceFilter) common() []Predicate {
	var preds []Predicate
	if f.RunID != "" {
		preds = append(preds, Equals{Field: "run_id", Value: String(f.RunID)})
	}
	if f.Since > 0 {
		preds = append(preds, Compare{Field: "tick", Op: OpGreaterEq, Value: Int(f.Since)})
	}
	if f.Until > 0 {
		preds = append(preds, Compare{Field: "tick", Op: OpLessEq, Value: Int(f.Until)})
	}
	return preds
}
