package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"

	"github.com/roach88/eventsheet/internal/compiler"
	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/queryir"
	"github.com/roach88/eventsheet/internal/store"
	"github.com/roach88/eventsheet/internal/testutil"
	"github.com/roach88/eventsheet/internal/variables"
)

// Harness is the test execution engine.
// It runs a scene with a fixed run id and a deterministic wall clock, and
// records the run into its own store.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	runIDs *testutil.FixedRunID
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the project and apply setup values
// 3. Compile the scene and run the flow steps
// 4. Read the trace and final state back from the store
// 5. Evaluate assertions
//
// A scenario that cannot run at all (missing project, compile error,
// store failure) returns an error. Failed expectations are reported in
// Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}
	defer h.store.Close()

	result, err := h.execute(ctx, scenario)
	if err != nil {
		return nil, err
	}

	actx := &AssertionContext{
		Ctx:      ctx,
		Scenario: scenario,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	return &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		runIDs: testutil.NewFixedRunID(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}, nil
}

// execute runs the scenario's flow without evaluating assertions.
func (h *Harness) execute(ctx context.Context, s *Scenario) (*Result, error) {
	project, err := compiler.LoadFile(s.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	sceneName := s.Scene
	if sceneName == "" {
		if len(project.Layouts) == 0 {
			return nil, fmt.Errorf("project %s has no layouts", s.Project)
		}
		sceneName = project.Layouts[0].Name
	}
	def, ok := project.Scene(sceneName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", compiler.ErrSceneNotFound, sceneName)
	}
	if err := applySetup(project, def, s.Setup); err != nil {
		return nil, err
	}

	opts := []engine.SceneOption{
		engine.WithRecorder(h.store),
		engine.WithRunIDGenerator(h.runIDs),
		engine.WithNow(h.clock.Now),
		engine.WithStrictCoercion(s.Strict),
		engine.WithLogger(h.logger),
	}
	if s.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(s.MaxSteps))
	}
	scene, err := engine.NewScene(project, sceneName, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile scene: %w", err)
	}

	result := NewResult()
	result.RunID = scene.RunID()
	result.ProgramHash = scene.Program().Hash

	runErr, err := h.executeFlow(ctx, scene, s.Flow, result)
	if err != nil {
		return nil, err
	}
	if err := scene.Close(ctx, runErr); err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}

	result.Trace, err = ReadTrace(ctx, h.store, result.RunID)
	if err != nil {
		return nil, err
	}
	result.State, err = h.store.LoadLatest(ctx, result.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load final state: %w", err)
	}
	return result, nil
}

// executeFlow runs every flow step and checks its expect clause. runErr is
// the last tick error, which decides the recorded run status.
func (h *Harness) executeFlow(ctx context.Context, scene *engine.Scene, flow []FlowStep, result *Result) (runErr, err error) {
	for i, step := range flow {
		for j, in := range step.Inputs {
			scope, _ := parseScope(in.Scope)
			v, err := toVariable(in.Value)
			if err != nil {
				return nil, fmt.Errorf("flow[%d].inputs[%d]: %w", i, j, err)
			}
			if err := scene.Post(engine.Input{Scope: scope, Name: in.Name, Value: v}); err != nil {
				return nil, fmt.Errorf("flow[%d].inputs[%d]: %w", i, j, err)
			}
		}

		ticks := step.Ticks
		if ticks == 0 {
			ticks = 1
		}
		warnings := 0
		var tickErr error
		for n := 0; n < ticks; n++ {
			rec, err := scene.Step(ctx)
			warnings += len(rec.Warnings)
			if err != nil {
				if rec.Aborted == "" {
					return nil, fmt.Errorf("flow[%d]: %w", i, err)
				}
				tickErr = err
				break
			}
		}
		if tickErr != nil {
			runErr = tickErr
		}

		h.logger.Info("flow step completed",
			"step", i,
			"tick", scene.Tick(),
			"warnings", warnings,
			"aborted", tickErr != nil,
		)

		aborted := step.Expect != nil && step.Expect.Aborted
		switch {
		case tickErr != nil && !aborted:
			result.AddError(fmt.Sprintf("flow[%d]: %v", i, tickErr))
		case tickErr == nil && aborted:
			result.AddError(fmt.Sprintf("flow[%d]: expected an abandoned tick, all %d ticks completed", i, ticks))
		}
		if step.Expect != nil && step.Expect.Warnings != nil && *step.Expect.Warnings != warnings {
			result.AddError(fmt.Sprintf("flow[%d]: expected %d warnings, got %d", i, *step.Expect.Warnings, warnings))
		}
	}
	return runErr, nil
}

// applySetup writes setup values into the project's initial variables so
// they are recorded as the run's initial state.
func applySetup(p *ir.Project, def *ir.Scene, setup []VariableStep) error {
	for i, step := range setup {
		scope, err := parseScope(step.Scope)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		path, err := variables.ParsePath(step.Name)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		v, err := toVariable(step.Value)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}

		var list *ir.VariableList
		switch scope {
		case variables.Global:
			list = &p.Variables
		case variables.Scene:
			list = &def.Variables
		case variables.Object:
			if step.Instance >= len(def.Instances) {
				return fmt.Errorf("setup[%d]: instance %d out of range (scene has %d)", i, step.Instance, len(def.Instances))
			}
			list = &def.Instances[step.Instance].Variables
		}

		c := variables.FromList(scope, *list)
		variables.NewChain(c).Assign(path, v)
		*list = c.Snapshot()
	}
	return nil
}

// ReadTrace reads a recorded run back from st as trace events.
func ReadTrace(ctx context.Context, st *store.Store, runID string) ([]TraceEvent, error) {
	return QueryTrace(ctx, st, queryir.TraceFilter{RunID: runID})
}

// QueryTrace reads the trace events of filter.RunID that match filter.
// Changes at the run's start tick are its initial state. Within a tick,
// warnings come first, then the abort, then changes.
func QueryTrace(ctx context.Context, st *store.Store, filter queryir.TraceFilter) ([]TraceEvent, error) {
	run, err := st.ReadRun(ctx, filter.RunID)
	if err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}
	changes, err := st.QueryChanges(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("read changes: %w", err)
	}
	warnings, err := st.QueryWarnings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("read warnings: %w", err)
	}
	ticks, err := st.ReadTicks(ctx, filter.RunID)
	if err != nil {
		return nil, fmt.Errorf("read ticks: %w", err)
	}

	type ranked struct {
		rank  int
		event TraceEvent
	}
	var all []ranked
	for _, w := range warnings {
		all = append(all, ranked{0, TraceEvent{
			Type:    TraceWarning,
			Tick:    w.Tick,
			Seq:     w.Seq,
			Code:    string(w.Code),
			Event:   w.Event,
			Message: w.Message,
		}})
	}
	for _, t := range ticks {
		if t.Tick < filter.Since || (filter.Until > 0 && t.Tick > filter.Until) {
			continue
		}
		if t.Aborted != "" {
			all = append(all, ranked{1, TraceEvent{Type: TraceAbort, Tick: t.Tick, Message: t.Aborted}})
		}
	}
	for _, c := range changes {
		e := TraceEvent{
			Type:     TraceChange,
			Tick:     c.Tick,
			Seq:      c.Seq,
			Scope:    c.Scope.String(),
			Owner:    c.Owner,
			Instance: c.Instance,
			Name:     c.Name,
			Deleted:  c.Deleted,
		}
		if c.Tick == run.StartTick {
			e.Type = TraceInitial
		}
		if !c.Deleted {
			data, err := ir.MarshalVariable(c.Value)
			if err != nil {
				return nil, fmt.Errorf("tick %d %s: %w", c.Tick, c.Name, err)
			}
			e.Value = string(data)
		}
		all = append(all, ranked{2, e})
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.event.Tick != b.event.Tick {
			return a.event.Tick < b.event.Tick
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.event.Seq < b.event.Seq
	})

	trace := make([]TraceEvent, len(all))
	for i, r := range all {
		trace[i] = r.event
	}
	return trace, nil
}

// toVariable converts a YAML-decoded value to a variable. Strings become
// String, numbers Number, lists Array and maps Structure with sorted keys.
func toVariable(val any) (ir.Variable, error) {
	switch v := val.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a variable value")
	case string:
		return ir.String(v), nil
	case int:
		return ir.Number(v), nil
	case int64:
		return ir.Number(v), nil
	case uint64:
		return ir.Number(v), nil
	case float64:
		return ir.Number(v), nil
	case bool:
		return nil, fmt.Errorf("booleans are not variable values, use 0 or 1")
	case []any:
		arr := make(ir.Array, len(v))
		for i, elem := range v {
			child, err := toVariable(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = child
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		pairs := make([]ir.Pair, 0, len(keys))
		for _, k := range keys {
			child, err := toVariable(v[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			pairs = append(pairs, ir.P(k, child))
		}
		return ir.NewStructure(pairs...), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
