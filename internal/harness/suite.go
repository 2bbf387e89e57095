package harness

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ScenarioNotFoundError is returned when a scenario path does not exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// FindScenarios returns the scenario files at path. A file is returned as
// is; a directory is walked for .yaml and .yml files, in lexical order.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(p) {
		case ".yaml", ".yml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}

// SuiteResult summarizes a run of many scenarios.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Scenarios      []ScenarioOutcome `json:"scenarios"`
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	Path   string   `json:"path"`
	Name   string   `json:"name,omitempty"`
	Pass   bool     `json:"pass"`
	Result *Result  `json:"-"`
	Errors []string `json:"errors,omitempty"`
}

// RunSuite loads and runs every scenario file. A scenario that cannot be
// loaded or run counts as failed; RunSuite itself only fails if ctx ends.
//
// For each file:
// 1. Load the scenario
// 2. Run it via RunContext
// 3. Collect pass/fail and errors
func RunSuite(ctx context.Context, files []string) (*SuiteResult, error) {
	suite := &SuiteResult{Scenarios: []ScenarioOutcome{}}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return suite, err
		}
		suite.TotalScenarios++
		outcome := ScenarioOutcome{Path: path}

		scenario, err := LoadScenario(path)
		if err != nil {
			outcome.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
			suite.record(outcome)
			continue
		}
		outcome.Name = scenario.Name

		result, err := RunContext(ctx, scenario)
		if err != nil {
			outcome.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
			suite.record(outcome)
			continue
		}
		outcome.Result = result
		outcome.Pass = result.Pass
		outcome.Errors = result.Errors
		suite.record(outcome)
	}
	return suite, nil
}

func (s *SuiteResult) record(o ScenarioOutcome) {
	if o.Pass {
		s.Passed++
	} else {
		s.Failed++
	}
	s.Scenarios = append(s.Scenarios, o)
}
