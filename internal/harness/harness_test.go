package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsheet/internal/variables"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

// sceneFile writes a bare scene document and returns its path.
func sceneFile(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

const counterScene = `{
	"name": "Main",
	"variables": [{"name": "N", "type": "number", "value": 0}],
	"events": [{"actions": [{"type": "SetNumberVariable", "parameters": ["N", "+", "1"]}]}]
}`

func TestRun_StringVariableCases(t *testing.T) {
	tests := []struct {
		scenario string
		success  float64
	}{
		{"string_same_value", 1},
		{"string_not_the_same", 0},
		{"string_contains_world", 1},
		{"string_contains_hi", 0},
	}

	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			result, err := Run(loadTestdata(t, tt.scenario))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)

			v, ok := result.State.Scene.Lookup("SuccessVariable")
			require.True(t, ok)
			assert.EqualValues(t, tt.success, v)
		})
	}
}

func TestRun_CounterTrace(t *testing.T) {
	result, err := Run(loadTestdata(t, "counter"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, "run-counter", result.RunID)
	assert.NotEmpty(t, result.ProgramHash)
	require.Len(t, result.Trace, 19)

	initial := result.Trace[:6]
	for _, e := range initial {
		assert.Equal(t, TraceInitial, e.Type)
		assert.Equal(t, uint64(0), e.Tick)
	}
	assert.Equal(t, "Total", initial[0].Name)
	assert.Equal(t, "global", initial[0].Scope)
	assert.Equal(t, []string{"Input", "Jumps", "N"}, []string{initial[1].Name, initial[2].Name, initial[3].Name})
	assert.Equal(t, "Enemy", initial[5].Owner)
	assert.Equal(t, 1, initial[5].Instance)
	assert.Equal(t, `{"type":"number","value":5}`, initial[5].Value)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, TraceChange, last.Type)
	assert.Equal(t, uint64(3), last.Tick)
	assert.Equal(t, "hits", last.Name)
	assert.Equal(t, `{"type":"number","value":8}`, last.Value)

	assert.Equal(t, uint64(3), result.State.Tick)
	require.Len(t, result.State.Instances, 2)
}

func TestRun_WarningsComeBeforeChanges(t *testing.T) {
	result, err := Run(loadTestdata(t, "strict_coercion"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	types := make([]string, len(result.Trace))
	for i, e := range result.Trace {
		types[i] = e.Type
	}
	assert.Equal(t, []string{TraceInitial, TraceWarning, TraceChange, TraceWarning, TraceChange}, types)
	assert.Equal(t, "events[0]", result.Trace[1].Event)
	assert.Equal(t, "TYPE_COERCION_FAILURE", result.Trace[1].Code)
}

func TestRun_ExpectedAbort(t *testing.T) {
	result, err := Run(loadTestdata(t, "steps_exceeded"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	var aborts []TraceEvent
	for _, e := range result.Trace {
		if e.Type == TraceAbort {
			aborts = append(aborts, e)
		}
	}
	require.Len(t, aborts, 1)
	assert.Equal(t, uint64(1), aborts[0].Tick)
	assert.Contains(t, aborts[0].Message, "max steps")
}

func TestRun_UnexpectedAbortFails(t *testing.T) {
	s := loadTestdata(t, "steps_exceeded")
	s.Flow[0].Expect = nil

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flow[0]: tick 1:")
}

func TestRun_MissingAbortFails(t *testing.T) {
	s := &Scenario{
		Name:        "no_abort",
		Description: "expects an abort that never happens",
		Project:     sceneFile(t, counterScene),
		Flow:        []FlowStep{{Ticks: 2, Expect: &ExpectClause{Aborted: true}}},
		Assertions:  []Assertion{{Type: AssertTraceCount, Name: "N", Count: 2}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"flow[0]: expected an abandoned tick, all 2 ticks completed"}, result.Errors)
}

func TestRun_WarningCountMismatch(t *testing.T) {
	two := 2
	s := &Scenario{
		Name:        "warnings",
		Description: "expects warnings that never happen",
		Project:     sceneFile(t, counterScene),
		Flow:        []FlowStep{{Expect: &ExpectClause{Warnings: &two}}},
		Assertions:  []Assertion{{Type: AssertWarningCount, Count: 0}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"flow[0]: expected 2 warnings, got 0"}, result.Errors)
}

func TestRun_FailedAssertionsAreCollected(t *testing.T) {
	s := &Scenario{
		Name:        "wrong",
		Description: "every assertion fails",
		Project:     sceneFile(t, counterScene),
		Flow:        []FlowStep{{Ticks: 2}},
		Assertions: []Assertion{
			{Type: AssertFinalVar, Name: "N", Value: 3},
			{Type: AssertTraceCount, Name: "N", Count: 5},
			{Type: AssertFinalVar, Name: "N", Absent: true},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "assertions[0]: Assertion failed: final_var")
	assert.Contains(t, result.Errors[0], `scene N = {"type":"number","value":2}`)
	assert.Contains(t, result.Errors[1], "Expected: 5 changes of N")
	assert.Contains(t, result.Errors[2], "Expected: scene N = <absent>")
}

func TestRun_InputsAndGlobalSetup(t *testing.T) {
	s := &Scenario{
		Name:        "inputs",
		Description: "posted inputs land before the tick",
		Project: sceneFile(t, `{
			"events": [{
				"conditions": [{"type": "StringVariable", "parameters": ["Mode", "=", "\"hard\""]}],
				"actions": [{"type": "SetNumberVariable", "parameters": ["Bonus", "=", "Level"]}]
			}]
		}`),
		Setup: []VariableStep{{Scope: "global", Name: "Level", Value: 7}},
		Flow: []FlowStep{
			{Inputs: []VariableStep{{Scope: "global", Name: "Mode", Value: "hard"}}},
		},
		Assertions: []Assertion{
			{Type: AssertFinalVar, Scope: "global", Name: "Mode", Value: "hard"},
			{Type: AssertTraceValues, Name: "Bonus", Values: []any{7}},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		project string
		scene   string
		setup   []VariableStep
		want    string
	}{
		{"missing project", filepath.Join(t.TempDir(), "missing.json"), "", nil, "failed to load project"},
		{"unknown scene", sceneFile(t, counterScene), "Level9", nil, `scene not found: "Level9"`},
		{"unknown instruction", sceneFile(t, `{"events": [{"actions": [{"type": "Teleport", "parameters": []}]}]}`), "", nil, "failed to compile scene"},
		{"instance out of range", sceneFile(t, counterScene), "", []VariableStep{{Scope: "object", Instance: 3, Name: "hp", Value: 1}}, "setup[0]: instance 3 out of range (scene has 0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scenario{
				Name:        "broken",
				Description: tt.name,
				Project:     tt.project,
				Scene:       tt.scene,
				Setup:       tt.setup,
				Flow:        []FlowStep{{}},
				Assertions:  []Assertion{{Type: AssertDeterministic}},
			}
			_, err := Run(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApplySetup_ObjectScope(t *testing.T) {
	s := loadTestdata(t, "counter")
	s.Setup = []VariableStep{{Scope: variables.Object.String(), Instance: 0, Name: "hits", Value: 100}}
	s.Assertions = []Assertion{{Type: AssertFinalVar, Scope: "object", Instance: 0, Name: "hits", Value: 103}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
