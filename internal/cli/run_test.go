package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/ir"
)

func lookup(t *testing.T, list ir.VariableList, name string) ir.Variable {
	t.Helper()
	for _, v := range list {
		if v.Name == name {
			return v.Value
		}
	}
	t.Fatalf("variable %s not found in %v", name, list)
	return nil
}

func runJSON(t *testing.T, args ...string) (RunSummary, jsonResponse, int) {
	t.Helper()
	stdout, _, code := execute(t, append([]string{"--format", "json", "run"}, args...)...)
	var summary RunSummary
	resp := decodeResponse(t, stdout, &summary)
	return summary, resp, code
}

func TestRun_Text(t *testing.T) {
	stdout, _, code := execute(t, "run", "--ticks", "3", testdata("counter.json"))
	require.Equal(t, ExitSuccess, code, stdout)

	assert.Contains(t, stdout, "scene Main, tick 3, completed")
	assert.Contains(t, stdout, "Scope")
	assert.Regexp(t, `global\s+Total\s+3`, stdout)
	assert.Regexp(t, `scene\s+N\s+3`, stdout)
	assert.Regexp(t, `scene\s+Label\s+"start"`, stdout)
}

func TestRun_JSON(t *testing.T) {
	summary, resp, code := runJSON(t, "--ticks", "4", testdata("counter.json"))
	require.Equal(t, ExitSuccess, code)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Main", summary.Scene)
	assert.Equal(t, engine.RunCompleted, summary.Status)
	assert.Equal(t, uint64(4), summary.Tick)
	assert.NotEmpty(t, summary.RunID)
	assert.NotEmpty(t, summary.ProgramHash)
	assert.Empty(t, summary.Warnings)
	assert.Equal(t, ir.Number(4), lookup(t, summary.Variables, "N"))
	assert.Equal(t, ir.Number(4), lookup(t, summary.Global, "Total"))
}

func TestRun_Set(t *testing.T) {
	summary, _, code := runJSON(t,
		"--set", "Label=go",
		"--set", `Quoted="42"`,
		"--set", "global:Total=10",
		"--set", "Bonus=2.5",
		testdata("counter.json"))
	require.Equal(t, ExitSuccess, code)

	assert.Equal(t, ir.String("go"), lookup(t, summary.Variables, "Label"))
	assert.Equal(t, ir.String("42"), lookup(t, summary.Variables, "Quoted"))
	assert.Equal(t, ir.Number(2.5), lookup(t, summary.Variables, "Bonus"))
	assert.Equal(t, ir.Number(11), lookup(t, summary.Global, "Total"), "inputs apply before the tick runs")
}

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"set without value", []string{"--set", "Label"}},
		{"set with bad path", []string{"--set", "a..b=1"}},
		{"resume without db", []string{"--resume", "run-1"}},
		{"negative max steps", []string{"--max-steps", "-1"}},
		{"unknown scene", []string{"--scene", "Nope"}},
		{"negative rate", []string{"--rate", "-1"}},
		{"infinite rate", []string{"--rate", "+Inf"}},
		{"nan rate", []string{"--rate", "NaN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, code := runJSON(t, append(tt.args, testdata("counter.json"))...)
			assert.Equal(t, ExitCommandError, code)
			assert.Equal(t, "error", resp.Status)
		})
	}
}

func TestRun_RateTooHighToPace(t *testing.T) {
	summary, _, code := runJSON(t, "--ticks", "3", "--rate", "1e10", testdata("counter.json"))
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, uint64(3), summary.Tick)
}

func TestRun_AbandonedTickFails(t *testing.T) {
	summary, resp, code := runJSON(t, "--ticks", "5", "--max-steps", "20", testdata("runaway.json"))
	assert.Equal(t, ExitFailure, code)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeRunFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "> 20 limit")
	assert.Equal(t, engine.RunFailed, summary.Status)
	assert.Equal(t, uint64(1), summary.Tick, "the run stops at the first abandoned tick")
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "eventsheet.yaml", "max_steps: 10\nlog: {level: warn}\n")

	_, resp, code := runJSON(t, "--config", cfg, testdata("runaway.json"))
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, resp.Error.Message, "> 10 limit")

	// Flags take precedence over the file.
	_, resp, code = runJSON(t, "--config", cfg, "--max-steps", "30", testdata("runaway.json"))
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, resp.Error.Message, "> 30 limit")
}

func TestRun_ConfigFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "env.db")
	cfg := writeFile(t, dir, "config.yaml", "db: "+db+"\n")

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "json", "run", testdata("counter.json")})
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EVENTSHEET_CONFIG", cfg)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	require.Equal(t, ExitSuccess, Execute(cmd, &errOut), out.String())

	var summary RunSummary
	decodeResponse(t, out.String(), &summary)
	assert.Equal(t, db, summary.Database)
	assert.FileExists(t, db)
}

func TestRun_BadConfig(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "bad.yaml", "tick_rat: 60\n")
	_, resp, code := runJSON(t, "--config", cfg, testdata("counter.json"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, resp.Error.Message, "tick_rat")
}

func TestRun_RecordAndResume(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	first, _, code := runJSON(t, "--ticks", "3", "--db", db, testdata("counter.json"))
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, db, first.Database)

	resumed, _, code := runJSON(t, "--ticks", "2", "--db", db, "--resume", first.RunID, testdata("counter.json"))
	require.Equal(t, ExitSuccess, code)

	assert.NotEqual(t, first.RunID, resumed.RunID)
	assert.Equal(t, first.RunID, resumed.ResumedFrom)
	assert.Equal(t, uint64(5), resumed.Tick)
	assert.Equal(t, ir.Number(5), lookup(t, resumed.Variables, "N"))
	assert.Equal(t, ir.Number(5), lookup(t, resumed.Global, "Total"))
}

func TestRun_ResumeErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	first, _, code := runJSON(t, "--db", db, testdata("counter.json"))
	require.Equal(t, ExitSuccess, code)

	_, resp, code := runJSON(t, "--db", db, "--resume", "no-such-run", testdata("counter.json"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, resp.Error.Message, "run not found")

	_, resp, code = runJSON(t, "--db", db, "--scene", "Other", "--resume", first.RunID, testdata("counter.json"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, resp.Error.Message, `recorded scene "Main"`)
}

func TestParseSets(t *testing.T) {
	inputs, err := parseSets([]string{"A=1", "global:B=x", `C="7"`, "D.e[0]=-2"})
	require.NoError(t, err)
	require.Len(t, inputs, 4)

	assert.Equal(t, "A", inputs[0].Name)
	assert.Equal(t, ir.Number(1), inputs[0].Value)
	assert.Equal(t, "global", inputs[1].Scope.String())
	assert.Equal(t, "B", inputs[1].Name)
	assert.Equal(t, ir.String("x"), inputs[1].Value)
	assert.Equal(t, ir.String("7"), inputs[2].Value)
	assert.Equal(t, "D.e[0]", inputs[3].Name)
	assert.Equal(t, ir.Number(-2), inputs[3].Value)

	_, err = parseSets([]string{"=1"})
	assert.Error(t, err)
}

func TestFormatVariable(t *testing.T) {
	assert.Equal(t, "3", formatVariable(ir.Number(3)))
	assert.Equal(t, "0.5", formatVariable(ir.Number(0.5)))
	assert.Equal(t, `"hi"`, formatVariable(ir.String("hi")))
	assert.Contains(t, formatVariable(ir.Array{ir.Number(1)}), `"type":"array"`)
}
