package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsheet/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or empty without a golden file
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir|scenario.yaml>",
		Short: "Run YAML scenarios",
		Long: `Run scenario files against their projects.

A scenario names a project, seeds variables, runs ticks with inputs
and asserts on the recorded trace and final state. When a golden file
exists at golden/<file>.golden next to the scenario, the trace must
also match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  eventsheet test ./scenarios
  eventsheet test ./scenarios --filter "string_*"
  eventsheet test ./scenarios --update
  eventsheet test ./scenarios/counter.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by file name glob")

	return cmd
}

func runTests(opts *TestOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	logger := opts.logger()

	files, err := harness.FindScenarios(path)
	var notFound *harness.ScenarioNotFoundError
	if errors.As(err, &notFound) {
		return formatter.CommandError(ErrCodeNotFound, err.Error(), nil)
	}
	if err != nil {
		return formatter.CommandError(ErrCodeGeneric, "failed to find scenarios", err)
	}
	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return formatter.CommandError(ErrCodeInvalidFlag, "invalid --filter", err)
	}

	suite, err := harness.RunSuite(ctx, files)
	if err != nil {
		return formatter.CommandError(ErrCodeGeneric, "test run interrupted", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(suite.Scenarios))}
	for _, outcome := range suite.Scenarios {
		sr := ScenarioResult{Name: outcome.Name, Path: outcome.Path, Pass: outcome.Pass, Errors: outcome.Errors}
		if sr.Name == "" {
			sr.Name = filepath.Base(outcome.Path)
		}
		if outcome.Result != nil {
			checkGolden(&sr, outcome.Result, opts.Update)
		}
		logger.Debug("scenario finished", "scenario", sr.Name, "pass", sr.Pass)

		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	result.Total = len(result.Scenarios)

	render := func(w io.Writer) { outputTestText(w, result) }
	if result.Failed > 0 {
		return formatter.Fail(ExitFailure, ErrCodeTestsFailed,
			fmt.Sprintf("%d scenario(s) failed", result.Failed), result, render)
	}
	return formatter.Success(result, render)
}

// filterScenarios keeps files whose base name without extension matches
// the glob pattern.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

// checkGolden compares or rewrites the golden trace of a scenario that ran.
func checkGolden(sr *ScenarioResult, result *harness.Result, update bool) {
	fail := func(msg string) {
		sr.Pass = false
		sr.Errors = append(sr.Errors, msg)
	}

	current, err := harness.MarshalTrace(sr.Name, result)
	if err != nil {
		fail(fmt.Sprintf("failed to marshal trace: %v", err))
		return
	}
	goldenPath := goldenFilePath(sr.Path)

	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			fail(fmt.Sprintf("failed to create golden directory: %v", err))
			return
		}
		if err := os.WriteFile(goldenPath, current, 0o644); err != nil {
			fail(fmt.Sprintf("failed to write golden file: %v", err))
			return
		}
		sr.Golden = "updated"
		return
	}

	golden, err := os.ReadFile(goldenPath)
	if errors.Is(err, os.ErrNotExist) {
		// No golden file - use assertion-based validation only
		return
	}
	if err != nil {
		fail(fmt.Sprintf("failed to read golden file: %v", err))
		return
	}
	if !bytes.Equal(golden, current) {
		fail("trace does not match golden file (run with --update to regenerate)")
		return
	}
	sr.Golden = "match"
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// outputTestText outputs the test result as text.
func outputTestText(w io.Writer, result TestResult) {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}
	for _, s := range result.Scenarios {
		if s.Pass {
			suffix := ""
			if s.Golden == "updated" {
				suffix = " (golden updated)"
			}
			fmt.Fprintf(w, "✓ %s%s\n", s.Name, suffix)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", s.Name)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(strings.TrimRight(e, "\n"), "\n", "\n  "))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed == 0 {
		fmt.Fprintln(w, "✓ All scenarios passed")
	}
}
