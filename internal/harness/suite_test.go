package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	assert.Contains(t, files, filepath.Join("testdata", "scenarios", "counter.yaml"))
	for _, f := range files {
		assert.Equal(t, ".yaml", filepath.Ext(f))
	}

	single := filepath.Join("testdata", "scenarios", "counter.yaml")
	files, err = FindScenarios(single)
	require.NoError(t, err)
	assert.Equal(t, []string{single}, files)

	_, err = FindScenarios("testdata/nowhere")
	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "testdata/nowhere", nf.Path)
}

func TestRunSuite_Testdata(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)

	suite, err := RunSuite(context.Background(), files)
	require.NoError(t, err)
	for _, s := range suite.Scenarios {
		assert.True(t, s.Pass, "%s: %v", s.Path, s.Errors)
	}
	assert.Equal(t, len(files), suite.TotalScenarios)
	assert.Equal(t, len(files), suite.Passed)
	assert.Zero(t, suite.Failed)
}

func TestRunSuite_CountsBrokenScenarios(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [unclosed"), 0o644))

	files := []string{filepath.Join("testdata", "scenarios", "string_same_value.yaml"), broken}
	suite, err := RunSuite(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 2, suite.TotalScenarios)
	assert.Equal(t, 1, suite.Passed)
	assert.Equal(t, 1, suite.Failed)
	require.Len(t, suite.Scenarios, 2)
	assert.Equal(t, "string_same_value", suite.Scenarios[0].Name)
	assert.NotNil(t, suite.Scenarios[0].Result)
	assert.Contains(t, suite.Scenarios[1].Errors[0], "failed to load scenario")
}

func TestRunSuite_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite, err := RunSuite(ctx, []string{"a.yaml"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, suite.TotalScenarios)
}
