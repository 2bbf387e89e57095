package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidSelect(t *testing.T) {
	query := Select{
		From:   SourceChanges,
		Fields: []string{"tick", "name"},
		Filter: Equals{Field: "run_id", Value: String("run-1")},
	}

	result := Validate(query)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Problems)
}

func TestValidate_PointerSelect(t *testing.T) {
	result := Validate(&Select{From: SourceTicks, Fields: []string{"tick"}})
	assert.True(t, result.IsValid)

	var nilSelect *Select
	result = Validate(nilSelect)
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"nil query"}, result.Problems)
}

func TestValidate_NilQuery(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"nil query"}, result.Problems)
}

func TestValidate_UnknownSource(t *testing.T) {
	result := Validate(Select{From: "invocations", Fields: []string{"id"}})

	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], `unknown source "invocations"`)
}

func TestValidate_EmptyFields(t *testing.T) {
	result := Validate(Select{From: SourceWarnings})

	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], "no fields selected")
}

func TestValidate_UnknownColumns(t *testing.T) {
	result := Validate(Select{
		From:   SourceWarnings,
		Fields: []string{"tick", "name; DROP TABLE runs"},
		Filter: Equals{Field: "scope", Value: String("scene")},
	})

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{
		`unknown column "name; DROP TABLE runs" in warnings`,
		`unknown column "scope" in warnings`,
	}, result.Problems)
}

func TestValidate_Compare(t *testing.T) {
	valid := Select{
		From:   SourceChanges,
		Fields: []string{"tick"},
		Filter: Compare{Field: "tick", Op: OpGreaterEq, Value: Int(3)},
	}
	assert.True(t, Validate(valid).IsValid)

	unordered := Select{
		From:   SourceChanges,
		Fields: []string{"tick"},
		Filter: Compare{Field: "name", Op: OpLess, Value: String("m")},
	}
	result := Validate(unordered)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], `column "name" is not ordered`)

	badOp := Select{
		From:   SourceChanges,
		Fields: []string{"tick"},
		Filter: Compare{Field: "tick", Op: "~", Value: Int(1)},
	}
	result = Validate(badOp)
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0], `unknown comparison "~"`)
}

func TestValidate_NestedPredicates(t *testing.T) {
	query := Select{
		From:   SourceChanges,
		Fields: []string{"name"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "run_id", Value: String("run-1")},
			Or{Predicates: []Predicate{
				Equals{Field: "name", Value: String("Score")},
				Equals{Field: "name", Value: nil},
				nil,
			}},
		}},
	}

	result := Validate(query)

	assert.Equal(t, []string{
		`column "name" compared to nil`,
		"nil predicate",
	}, result.Problems)
}

func TestValidate_EmptyAndOr(t *testing.T) {
	query := Select{
		From:   SourceChanges,
		Fields: []string{"name"},
		Filter: And{Predicates: []Predicate{Or{}}},
	}
	assert.True(t, Validate(query).IsValid)
}

func TestColumns(t *testing.T) {
	cols := Columns(SourceTicks)
	assert.Equal(t, []string{"run_id", "tick", "steps", "aborted"}, cols)

	cols[0] = "changed"
	assert.Equal(t, "run_id", Columns(SourceTicks)[0], "Columns returns a copy")

	assert.Nil(t, Columns("nope"))
	assert.True(t, HasColumn(SourceChanges, "value_json"))
	assert.False(t, HasColumn(SourceRuns, "value_json"))
}
