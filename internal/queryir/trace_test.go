package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceFilter_Changes(t *testing.T) {
	f := TraceFilter{
		RunID: "run-1",
		Names: []string{"Score", "Lives"},
		Scope: "global",
		Since: 2,
		Until: 9,
	}

	q := f.Changes()

	assert.Equal(t, SourceChanges, q.From)
	assert.Equal(t, Columns(SourceChanges), q.Fields)
	assert.Equal(t, And{Predicates: []Predicate{
		Equals{Field: "run_id", Value: String("run-1")},
		Compare{Field: "tick", Op: OpGreaterEq, Value: Int(2)},
		Compare{Field: "tick", Op: OpLessEq, Value: Int(9)},
		Or{Predicates: []Predicate{
			Equals{Field: "name", Value: String("Score")},
			Equals{Field: "name", Value: String("Lives")},
		}},
		Equals{Field: "scope", Value: String("global")},
	}}, q.Filter)
	assert.True(t, Validate(q).IsValid)
}

func TestTraceFilter_Warnings(t *testing.T) {
	f := TraceFilter{RunID: "run-1", Names: []string{"Score"}, Scope: "scene"}

	q := f.Warnings()

	assert.Equal(t, SourceWarnings, q.From)
	assert.Equal(t, And{Predicates: []Predicate{
		Equals{Field: "run_id", Value: String("run-1")},
	}}, q.Filter)
	assert.True(t, Validate(q).IsValid)
}

func TestTraceFilter_Empty(t *testing.T) {
	q := TraceFilter{}.Changes()
	assert.Equal(t, And{}, q.Filter)
	assert.True(t, Validate(q).IsValid)
}
