package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Text(t *testing.T) {
	stdout, _, code := execute(t, "compile", testdata("counter.json"))
	require.Equal(t, ExitSuccess, code, stdout)

	assert.Contains(t, stdout, "✓ Compiled 2 scene(s)")
	assert.Contains(t, stdout, "Main")
	assert.Contains(t, stdout, "Other")
	assert.Contains(t, stdout, "Program Hash")
}

func TestCompile_JSON(t *testing.T) {
	stdout, _, code := execute(t, "--format", "json", "compile", testdata("counter.json"))
	require.Equal(t, ExitSuccess, code, stdout)

	var result CompilationResult
	resp := decodeResponse(t, stdout, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Counter", result.Project)
	require.Len(t, result.Scenes, 2)

	main := result.Scenes[0]
	assert.Equal(t, "Main", main.Scene)
	assert.NotEmpty(t, main.ProgramHash)
	assert.Equal(t, 1, main.Stats.Events)
	assert.Equal(t, 2, main.Stats.Actions)
	assert.Zero(t, main.Stats.Conditions)
}

func TestCompile_Deterministic(t *testing.T) {
	first, _, _ := execute(t, "--format", "json", "compile", testdata("counter.json"))
	second, _, _ := execute(t, "--format", "json", "compile", testdata("counter.json"))
	assert.Equal(t, first, second)
}

func TestCompile_SingleSceneAndOutputFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "summary.json")
	stdout, _, code := execute(t, "compile", "--scene", "Other", "-o", out, testdata("counter.json"))
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "Wrote summary to "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Scenes, 1)
	assert.Equal(t, "Other", result.Scenes[0].Scene)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"missing file", []string{"compile", testdata("nope.json")}, ExitCommandError, "E005"},
		{"unknown scene", []string{"compile", "--scene", "Nope", testdata("counter.json")}, ExitCommandError, "E005"},
		{"compile error", []string{"compile", testdata("broken.json")}, ExitFailure, "E201"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, code := execute(t, append([]string{"--format", "json"}, tt.args...)...)
			assert.Equal(t, tt.wantCode, code)

			resp := decodeResponse(t, stdout, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
		})
	}
}

func TestCompile_NotJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.json", "{not json")
	stdout, _, code := execute(t, "compile", path)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout, "Error [E004]: failed to load project")
}

func TestCompile_CUE(t *testing.T) {
	path := writeFile(t, t.TempDir(), "game.cue", `
name: "Cued"
layouts: [{
	name: "Main"
	variables: [{name: "N", type: "number", value: 0}]
	events: [{
		actions: [{type: "SetNumberVariable", parameters: ["N", "+", "1"]}]
	}]
}]
`)
	stdout, _, code := execute(t, "compile", path)
	require.Equal(t, ExitSuccess, code, stdout)
	assert.Contains(t, stdout, "✓ Compiled 1 scene(s)")
}
