package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/variables"
)

// absent renders a missing variable in assertion messages.
const absent = "<absent>"

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Diff     string       // cmp.Diff output (-want +got), if any
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "  Diff (-want +got):\n%s", e.Diff)
	}

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", formatTraceEvent(event))
		}
	}
	return buf.String()
}

func formatTraceEvent(e TraceEvent) string {
	switch e.Type {
	case TraceWarning:
		return fmt.Sprintf("[%d] warning %s %s: %s", e.Tick, e.Code, e.Event, e.Message)
	case TraceAbort:
		return fmt.Sprintf("[%d] abort: %s", e.Tick, e.Message)
	default:
		target := e.Name
		if e.Scope == variables.Object.String() {
			target = fmt.Sprintf("%s#%d.%s", e.Owner, e.Instance, e.Name)
		}
		if e.Deleted {
			return fmt.Sprintf("[%d] %s %s %s deleted", e.Tick, e.Type, e.Scope, target)
		}
		return fmt.Sprintf("[%d] %s %s %s = %s", e.Tick, e.Type, e.Scope, target, e.Value)
	}
}

// AssertionContext carries what assertions need beyond the result.
type AssertionContext struct {
	Ctx      context.Context
	Scenario *Scenario
}

// EvaluateAssertions runs every assertion and returns one message per
// failure. Assertions are independent: a failure does not stop the rest.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalVar:
			err = assertFinalVar(result.State, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceValues:
			err = assertTraceValues(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertWarningCount:
			err = assertWarningCount(result.Trace, a)
		case AssertDeterministic:
			err = assertDeterministic(actx, result)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertFinalVar checks a variable of the final state. Object variables
// are looked up by instance index.
func assertFinalVar(state engine.Snapshot, a Assertion) error {
	scope, err := parseScope(a.Scope)
	if err != nil {
		return err
	}
	path, err := variables.ParsePath(a.Name)
	if err != nil {
		return err
	}

	var list ir.VariableList
	switch scope {
	case variables.Global:
		list = state.Global
	case variables.Scene:
		list = state.Scene
	case variables.Object:
		for _, inst := range state.Instances {
			if inst.Index == a.Instance {
				list = inst.Variables
			}
		}
	}

	chain := variables.NewChain(variables.FromList(scope, list))
	exists := chain.Exists(path)
	got := absent
	if exists {
		got = renderVariable(chain.Resolve(path))
	}

	want := absent
	match := !exists
	if !a.Absent {
		v, err := toVariable(a.Value)
		if err != nil {
			return err
		}
		want = renderVariable(v)
		match = exists && ir.Equal(v, chain.Resolve(path))
	}

	if !match {
		return &AssertionError{
			Type:     AssertFinalVar,
			Expected: fmt.Sprintf("%s %s = %s", scope, a.Name, want),
			Actual:   fmt.Sprintf("%s %s = %s", scope, a.Name, got),
			Diff:     cmp.Diff(want, got),
		}
	}
	return nil
}

// changesFor returns the change events for a root variable, optionally
// limited to one scope.
func changesFor(trace []TraceEvent, name, scope string) []TraceEvent {
	var out []TraceEvent
	for _, e := range trace {
		if e.Type != TraceChange || e.Name != name {
			continue
		}
		if scope != "" && e.Scope != scope {
			continue
		}
		out = append(out, e)
	}
	return out
}

// assertTraceCount checks that a variable changed exactly Count times after
// the initial state.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := len(changesFor(trace, a.Name, a.Scope))
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d changes of %s", a.Count, a.Name),
			Actual:   fmt.Sprintf("%d changes", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceValues checks the sequence of values a variable took.
func assertTraceValues(trace []TraceEvent, a Assertion) error {
	want := make([]string, len(a.Values))
	for i, v := range a.Values {
		vv, err := toVariable(v)
		if err != nil {
			return err
		}
		want[i] = renderVariable(vv)
	}
	got := []string{}
	for _, e := range changesFor(trace, a.Name, a.Scope) {
		if e.Deleted {
			got = append(got, absent)
			continue
		}
		got = append(got, e.Value)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertTraceValues,
			Expected: fmt.Sprintf("%s to take %d values", a.Name, len(want)),
			Actual:   fmt.Sprintf("%d values", len(got)),
			Diff:     diff,
		}
	}
	return nil
}

// assertTraceOrder checks that variables first changed in the given order.
// Intervening changes are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	// Step 1: Find the first change of each name, 1-indexed
	positions := make(map[string]int)
	for i, e := range trace {
		if e.Type == TraceChange && positions[e.Name] == 0 {
			positions[e.Name] = i + 1
		}
	}

	// Step 2: Verify all names changed
	for _, name := range a.Names {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all variables changed: %v", a.Names),
				Actual:   fmt.Sprintf("%s never changed", name),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(a.Names); i++ {
		prev, curr := a.Names[i-1], a.Names[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("first changes in order: %v", a.Names),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertWarningCount checks the number of warnings, optionally of one code.
func assertWarningCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, e := range trace {
		if e.Type == TraceWarning && (a.Code == "" || e.Code == a.Code) {
			count++
		}
	}
	if count != a.Count {
		what := "warnings"
		if a.Code != "" {
			what = a.Code + " warnings"
		}
		return &AssertionError{
			Type:     AssertWarningCount,
			Expected: fmt.Sprintf("%d %s", a.Count, what),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertDeterministic runs the scenario again in a fresh store and
// compares the program hash and trace with the first run.
func assertDeterministic(actx *AssertionContext, first *Result) error {
	if actx == nil || actx.Scenario == nil {
		return fmt.Errorf("deterministic assertion requires the scenario")
	}
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	h, err := newHarness(actx.Scenario)
	if err != nil {
		return err
	}
	defer h.store.Close()
	second, err := h.execute(ctx, actx.Scenario)
	if err != nil {
		return fmt.Errorf("second run: %w", err)
	}

	if first.ProgramHash != second.ProgramHash {
		return &AssertionError{
			Type:     AssertDeterministic,
			Expected: "program hash " + first.ProgramHash,
			Actual:   "program hash " + second.ProgramHash,
		}
	}
	if diff := cmp.Diff(first.Trace, second.Trace); diff != "" {
		return &AssertionError{
			Type:     AssertDeterministic,
			Expected: "identical traces",
			Actual:   "second run diverged",
			Diff:     diff,
		}
	}
	return nil
}

// renderVariable formats a variable the way traces store it.
func renderVariable(v ir.Variable) string {
	data, err := ir.MarshalVariable(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
