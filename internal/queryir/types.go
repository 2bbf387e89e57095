package queryir

// Query is a trace query. Select is the only implementation.
type Query interface {
	queryNode()
}

// Predicate filters rows.
//
// Predicate types:
//   - Equals: column = value
//   - Compare: column op value, for ordered columns
//   - And: all predicates must be true (empty = always true)
//   - Or: at least one predicate must be true (empty = always false)
type Predicate interface {
	predicateNode()
}

// Value is a literal in a predicate.
type Value interface {
	valueNode()
}

// String is a text literal.
type String string

// Int is an integer literal.
type Int int64

// Bool is a boolean literal.
type Bool bool

func (String) valueNode() {}
func (Int) valueNode()    {}
func (Bool) valueNode()   {}

// Source names a recorded table.
type Source string

const (
	SourceRuns     Source = "runs"
	SourceTicks    Source = "ticks"
	SourceChanges  Source = "changes"
	SourceWarnings Source = "warnings"
)

// Select reads Fields from a source, filtered by Filter.
//
// Semantics:
//
//	SELECT <fields> FROM <from> WHERE <filter> ORDER BY <source order>
//
// Example:
//
//	Select{
//	  From:   SourceChanges,
//	  Fields: []string{"tick", "name", "value_json"},
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "run_id", Value: String("0193...")},
//	    Compare{Field: "tick", Op: OpGreaterEq, Value: Int(10)},
//	  }},
//	}
type Select struct {
	From   Source
	Fields []string  // selected columns, in output order
	Filter Predicate // nil = no filter
}

func (Select) queryNode() {}

// Equals is column = value.
type Equals struct {
	Field string
	Value Value
}

func (Equals) predicateNode() {}

// Op is an ordering comparison.
type Op string

const (
	OpLess      Op = "<"
	OpLessEq    Op = "<="
	OpGreater   Op = ">"
	OpGreaterEq Op = ">="
)

// Compare is column op value.
type Compare struct {
	Field string
	Op    Op
	Value Value
}

func (Compare) predicateNode() {}

// And is a conjunction.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}
