package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/ir"
)

func change(tick uint64, name, value string) TraceEvent {
	return TraceEvent{Type: TraceChange, Tick: tick, Scope: "scene", Name: name, Value: value}
}

func number(n int) string {
	return renderVariable(ir.Number(n))
}

var sampleTrace = []TraceEvent{
	{Type: TraceInitial, Scope: "scene", Name: "N", Value: number(0)},
	change(1, "N", number(1)),
	change(1, "Score", number(10)),
	{Type: TraceWarning, Tick: 2, Code: "TYPE_COERCION_FAILURE", Event: "events[1]", Message: "cannot coerce"},
	change(2, "N", number(2)),
	{Type: TraceWarning, Tick: 3, Code: "EVENT_FAILED", Event: "events[0]", Message: "boom"},
	{Type: TraceChange, Tick: 3, Scope: "scene", Name: "Score", Deleted: true},
}

func asAssertionError(t *testing.T, err error) *AssertionError {
	t.Helper()
	var ae *AssertionError
	require.True(t, errors.As(err, &ae), "got %v", err)
	return ae
}

func TestAssertFinalVar(t *testing.T) {
	state := engine.Snapshot{
		Global: ir.VariableList{{Name: "Lives", Value: ir.Number(3)}},
		Scene: ir.VariableList{
			{Name: "Player", Value: ir.NewStructure(ir.P("name", ir.String("Bob")), ir.P("items", ir.Array{ir.String("key")}))},
		},
		Instances: []engine.InstanceState{
			{Index: 0, Object: "Enemy", Variables: ir.VariableList{{Name: "hp", Value: ir.Number(1)}}},
			{Index: 1, Object: "Enemy", Variables: ir.VariableList{{Name: "hp", Value: ir.Number(2)}}},
		},
	}

	tests := []struct {
		name string
		a    Assertion
		ok   bool
	}{
		{"global", Assertion{Scope: "global", Name: "Lives", Value: 3}, true},
		{"global wrong", Assertion{Scope: "global", Name: "Lives", Value: 4}, false},
		{"wrong scope", Assertion{Name: "Lives", Value: 3}, false},
		{"child", Assertion{Name: "Player.name", Value: "Bob"}, true},
		{"array element", Assertion{Name: "Player.items[0]", Value: "key"}, true},
		{"string is not number", Assertion{Name: "Player.name", Value: 0}, false},
		{"instance", Assertion{Scope: "object", Instance: 1, Name: "hp", Value: 2}, true},
		{"other instance", Assertion{Scope: "object", Instance: 0, Name: "hp", Value: 2}, false},
		{"absent", Assertion{Name: "Missing", Absent: true}, true},
		{"absent child", Assertion{Name: "Player.age", Absent: true}, true},
		{"present but expected absent", Assertion{Name: "Player", Absent: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.a.Type = AssertFinalVar
			err := assertFinalVar(state, tt.a)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			ae := asAssertionError(t, err)
			assert.Equal(t, AssertFinalVar, ae.Type)
			assert.NotEmpty(t, ae.Diff)
		})
	}
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Name: "N", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Name: "Score", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace, Assertion{Name: "N", Scope: "global", Count: 0}))

	ae := asAssertionError(t, assertTraceCount(sampleTrace, Assertion{Name: "N", Count: 3}))
	assert.Equal(t, "3 changes of N", ae.Expected)
	assert.Equal(t, "2 changes", ae.Actual)
	assert.Len(t, ae.Trace, len(sampleTrace))
}

func TestAssertTraceValues(t *testing.T) {
	assert.NoError(t, assertTraceValues(sampleTrace, Assertion{Name: "N", Values: []any{1, 2}}))

	ae := asAssertionError(t, assertTraceValues(sampleTrace, Assertion{Name: "N", Values: []any{1, 3}}))
	assert.Equal(t, "N to take 2 values", ae.Expected)
	assert.NotEmpty(t, ae.Diff)

	ae = asAssertionError(t, assertTraceValues(sampleTrace, Assertion{Name: "Score", Values: []any{10}}))
	assert.Contains(t, ae.Diff, absent, "deletions render as absent")
}

func TestAssertTraceOrder(t *testing.T) {
	assert.NoError(t, assertTraceOrder(sampleTrace, Assertion{Names: []string{"N", "Score"}}))

	ae := asAssertionError(t, assertTraceOrder(sampleTrace, Assertion{Names: []string{"Score", "N"}}))
	assert.Equal(t, "Score (pos 3) should be before N (pos 2)", ae.Actual)

	ae = asAssertionError(t, assertTraceOrder(sampleTrace, Assertion{Names: []string{"N", "Lives"}}))
	assert.Equal(t, "Lives never changed", ae.Actual)
}

func TestAssertWarningCount(t *testing.T) {
	assert.NoError(t, assertWarningCount(sampleTrace, Assertion{Count: 2}))
	assert.NoError(t, assertWarningCount(sampleTrace, Assertion{Code: "EVENT_FAILED", Count: 1}))

	ae := asAssertionError(t, assertWarningCount(sampleTrace, Assertion{Code: "STEPS_EXCEEDED", Count: 1}))
	assert.Equal(t, "1 STEPS_EXCEEDED warnings", ae.Expected)
	assert.Equal(t, "0", ae.Actual)
}

func TestAssertDeterministic_RequiresScenario(t *testing.T) {
	err := assertDeterministic(nil, NewResult())
	assert.EqualError(t, err, "deterministic assertion requires the scenario")
}

func TestEvaluateAssertions_CollectsEveryFailure(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Name: "N", Count: 2},
		{Type: AssertTraceCount, Name: "N", Count: 9},
		{Type: "bogus"},
		{Type: AssertWarningCount, Count: 0},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "assertions[1]: Assertion failed: trace_count")
	assert.Equal(t, `assertions[2]: unknown assertion type "bogus"`, errs[1])
	assert.Contains(t, errs[2], "assertions[3]: Assertion failed: warning_count")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1 changes of N",
		Actual:   "0 changes",
		Trace: []TraceEvent{
			change(1, "N", number(1)),
			{Type: TraceChange, Tick: 2, Scope: "object", Owner: "Enemy", Instance: 1, Name: "hp", Deleted: true},
			{Type: TraceWarning, Tick: 2, Code: "EVENT_FAILED", Event: "events[0]", Message: "boom"},
			{Type: TraceAbort, Tick: 3, Message: "tick 3 exceeded max steps"},
		},
	}

	assert.Equal(t, `Assertion failed: trace_count
  Expected: 1 changes of N
  Actual: 0 changes

Full trace:
  [1] change scene N = {"type":"number","value":1}
  [2] change object Enemy#1.hp deleted
  [2] warning EVENT_FAILED events[0]: boom
  [3] abort: tick 3 exceeded max steps
`, err.Error())
}

func TestToVariable(t *testing.T) {
	v, err := toVariable(map[string]any{"b": 1, "a": []any{"x", 2.5}})
	require.NoError(t, err)
	assert.True(t, ir.Equal(ir.NewStructure(
		ir.P("a", ir.Array{ir.String("x"), ir.Number(2.5)}),
		ir.P("b", ir.Number(1)),
	), v))

	_, err = toVariable([]any{1, nil})
	assert.EqualError(t, err, "[1]: null is not a variable value")

	_, err = toVariable(struct{}{})
	assert.EqualError(t, err, "unsupported type struct {}")
}
