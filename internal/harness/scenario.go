package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/eventsheet/internal/variables"
)

// Scenario defines a scene test: the project to load, state to seed, ticks
// to run with their inputs, and assertions on the recorded trace and final
// variable state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Project is the path of a JSON or CUE project or scene document,
	// relative to the scenario file.
	Project string `yaml:"project"`

	// Scene selects the layout to run. Defaults to the first layout.
	Scene string `yaml:"scene,omitempty"`

	// RunID is the fixed run id recorded for the run.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Strict turns coercion failures into warnings.
	Strict bool `yaml:"strict,omitempty"`

	// MaxSteps overrides the per-tick step budget. Zero keeps the default.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Setup overrides initial variable values before the run starts. The
	// values are part of the recorded initial state.
	Setup []VariableStep `yaml:"setup,omitempty"`

	// Flow lists groups of ticks to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the trace and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// VariableStep writes one variable.
type VariableStep struct {
	// Scope is "global", "scene" (the default) or "object".
	Scope string `yaml:"scope,omitempty"`

	// Name is a variable path such as Player.Stats["hp"].
	Name string `yaml:"name"`

	// Instance is the scene index of the object instance (object scope).
	Instance int `yaml:"instance,omitempty"`

	// Value is a YAML scalar, list or map. Strings become String, numbers
	// Number, lists Array and maps Structure.
	Value any `yaml:"value"`
}

// FlowStep runs Ticks ticks (default 1). Inputs are posted before the
// first of them.
type FlowStep struct {
	Ticks  int            `yaml:"ticks,omitempty"`
	Inputs []VariableStep `yaml:"inputs,omitempty"`

	// Expect checks what the ticks of this step produced.
	// If nil, any tick that is abandoned fails the scenario.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a flow step.
type ExpectClause struct {
	// Warnings is the expected number of warnings over the step's ticks.
	Warnings *int `yaml:"warnings,omitempty"`

	// Aborted expects the step's last tick to be abandoned. Remaining ticks
	// of the step are skipped.
	Aborted bool `yaml:"aborted,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_var": variable Name in Scope has Value (or is Absent)
	// - "trace_count": variable Name changed exactly Count times
	// - "trace_values": variable Name took Values in order
	// - "trace_order": variables Names first changed in this order
	// - "warning_count": exactly Count warnings with Code (any code if empty)
	// - "deterministic": a second run produces an identical trace
	Type string `yaml:"type"`

	Scope    string `yaml:"scope,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Instance int    `yaml:"instance,omitempty"`
	Value    any    `yaml:"value,omitempty"`
	Absent   bool   `yaml:"absent,omitempty"`

	Count  int      `yaml:"count,omitempty"`
	Values []any    `yaml:"values,omitempty"`
	Names  []string `yaml:"names,omitempty"`
	Code   string   `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalVar      = "final_var"
	AssertTraceCount    = "trace_count"
	AssertTraceValues   = "trace_values"
	AssertTraceOrder    = "trace_order"
	AssertWarningCount  = "warning_count"
	AssertDeterministic = "deterministic"
)

// LoadScenario reads and parses a scenario YAML file. The project path is
// resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields, or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Project != "" && !filepath.IsAbs(scenario.Project) {
		scenario.Project = filepath.Join(filepath.Dir(path), scenario.Project)
	}
	if _, err := os.Stat(scenario.Project); err != nil {
		return nil, fmt.Errorf("invalid scenario: project file not found: %s", scenario.Project)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Project == "" {
		return fmt.Errorf("project is required")
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must be non-negative")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateVariableStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		if step.Ticks < 0 {
			return fmt.Errorf("flow[%d]: ticks must be non-negative", i)
		}
		for j, in := range step.Inputs {
			if err := validateVariableStep(in); err != nil {
				return fmt.Errorf("flow[%d].inputs[%d]: %w", i, j, err)
			}
			if in.Scope == variables.Object.String() {
				return fmt.Errorf("flow[%d].inputs[%d]: inputs cannot target object scope", i, j)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateVariableStep(step VariableStep) error {
	if step.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, err := variables.ParsePath(step.Name); err != nil {
		return err
	}
	if _, err := parseScope(step.Scope); err != nil {
		return err
	}
	if step.Instance < 0 {
		return fmt.Errorf("instance must be non-negative")
	}
	if _, err := toVariable(step.Value); err != nil {
		return fmt.Errorf("%s: %w", step.Name, err)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if _, err := parseScope(a.Scope); err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}

	switch a.Type {
	case AssertFinalVar:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for final_var", index)
		}
		if _, err := variables.ParsePath(a.Name); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Absent && a.Value != nil {
			return fmt.Errorf("assertions[%d]: final_var takes value or absent, not both", index)
		}
		if !a.Absent && a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for final_var", index)
		}
	case AssertTraceCount:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceValues:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for trace_values", index)
		}
		for j, v := range a.Values {
			if _, err := toVariable(v); err != nil {
				return fmt.Errorf("assertions[%d].values[%d]: %w", index, j, err)
			}
		}
	case AssertTraceOrder:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for trace_order", index)
		}
	case AssertWarningCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for warning_count", index)
		}
	case AssertDeterministic:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// parseScope maps an empty scope to the scene scope.
func parseScope(s string) (variables.Scope, error) {
	if s == "" {
		return variables.Scene, nil
	}
	return variables.ParseScope(s)
}
