// Package harness runs scene scenarios as executable tests.
//
// A scenario loads a project, seeds variables, runs ticks with inputs, and
// asserts on the run recorded by the engine into an in-memory store.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario checks"
//	project: ../projects/strings.json
//	scene: Main
//	run_id: run-strings
//	setup:
//	  - scope: scene
//	    name: MyVariable
//	    value: "Hello world!"
//	flow:
//	  - ticks: 3
//	    inputs:
//	      - { scope: scene, name: Input.jump, value: 1 }
//	    expect:
//	      warnings: 0
//	assertions:
//	  - type: final_var
//	    name: SuccessVariable
//	    value: 1
//	  - type: trace_values
//	    name: Counter
//	    values: [1, 2, 3]
//
// # Assertion Types
//
//   - final_var: a variable of the final state has a value, or is absent
//   - trace_count: a variable changed exactly N times after the initial state
//   - trace_values: the values a variable took, in order
//   - trace_order: variables first changed in the given order
//   - warning_count: exactly N warnings, optionally of one code
//   - deterministic: a second run produces the same program hash and trace
//
// # Deterministic Testing
//
// The harness uses:
//   - a fixed run id (scenario.run_id, or "test-run-default")
//   - a deterministic wall clock for run start times (testutil.DeterministicClock)
//   - an in-memory SQLite database per run
//
// so the same scenario always records the same trace, which RunWithGolden
// compares against testdata/golden/{name}.golden.
package harness
