package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/eventsheet/internal/compiler"
	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/operator"
	"github.com/roach88/eventsheet/internal/variables"
)

// DefaultMaxSteps is the default per-tick instruction budget.
const DefaultMaxSteps = 100000

// Scene is the runtime of one compiled scene.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Step(), Run(), Restore(), Close(): tick goroutine only
type Scene struct {
	name      string
	program   *compiler.Program
	global    *variables.Container
	vars      *variables.Container
	instances []*variables.Container
	byObject  map[string][]*variables.Container

	clock    *Clock
	quota    *QuotaEnforcer
	queue    *inputQueue
	maxSteps int
	strict   bool
	recorder Recorder
	runIDs   RunIDGenerator
	now      func() time.Time
	logger   *slog.Logger

	runID       string
	resumedFrom string
	started     bool
	prev        Snapshot
}

// SceneOption configures a Scene.
type SceneOption func(*Scene)

// WithMaxSteps sets the per-tick instruction budget.
// Zero or a negative value disables the limit.
func WithMaxSteps(maxSteps int) SceneOption {
	return func(s *Scene) {
		s.maxSteps = maxSteps
	}
}

// WithStrictCoercion makes coercion failures fail the current event.
func WithStrictCoercion(strict bool) SceneOption {
	return func(s *Scene) {
		s.strict = strict
	}
}

// WithRecorder records every tick.
func WithRecorder(r Recorder) SceneOption {
	return func(s *Scene) {
		s.recorder = r
	}
}

// WithRunIDGenerator replaces the UUIDv7 run id generator.
func WithRunIDGenerator(g RunIDGenerator) SceneOption {
	return func(s *Scene) {
		s.runIDs = g
	}
}

// WithClock replaces the tick clock.
func WithClock(c *Clock) SceneOption {
	return func(s *Scene) {
		s.clock = c
	}
}

// WithNow replaces the wall clock used for run start times.
func WithNow(now func() time.Time) SceneOption {
	return func(s *Scene) {
		s.now = now
	}
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) SceneOption {
	return func(s *Scene) {
		s.logger = l
	}
}

// NewScene compiles the named scene of p and loads its initial variables.
// A nil compiler means one over the built-in instructions.
func NewScene(p *ir.Project, sceneName string, c *compiler.Compiler, opts ...SceneOption) (*Scene, error) {
	if c == nil {
		c = compiler.New(nil)
	}
	prog, err := c.CompileScene(p, sceneName)
	if err != nil {
		return nil, err
	}
	def, _ := p.Scene(sceneName)

	s := &Scene{
		name:     def.Name,
		program:  prog,
		global:   variables.FromList(variables.Global, p.Variables),
		vars:     variables.FromList(variables.Scene, def.Variables),
		byObject: make(map[string][]*variables.Container),
		clock:    NewClock(),
		queue:    newInputQueue(),
		maxSteps: DefaultMaxSteps,
		runIDs:   UUIDv7Generator{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, inst := range def.Instances {
		c := variables.NewInstance(inst.Name)
		c.Load(inst.Variables)
		s.instances = append(s.instances, c)
		s.byObject[inst.Name] = append(s.byObject[inst.Name], c)
	}
	s.quota = NewQuotaEnforcer(s.maxSteps)
	s.runID = s.runIDs.Generate()
	s.prev = s.Snapshot()

	s.logger.Debug("scene compiled",
		"scene", s.name,
		"program_hash", prog.Hash,
		"events", prog.Stats.Events,
		"conditions", prog.Stats.Conditions,
		"actions", prog.Stats.Actions,
		"links", prog.Stats.Links,
	)
	return s, nil
}

// Name returns the scene name.
func (s *Scene) Name() string { return s.name }

// RunID returns the id of the current run.
func (s *Scene) RunID() string { return s.runID }

// ResumedFrom returns the run id restored with Restore, if any.
func (s *Scene) ResumedFrom() string { return s.resumedFrom }

// Program returns the compiled program.
func (s *Scene) Program() *compiler.Program { return s.program }

// Tick returns the last tick run.
func (s *Scene) Tick() uint64 { return s.clock.Current() }

// Global returns the global container.
func (s *Scene) Global() *variables.Container { return s.global }

// Vars returns the scene container.
func (s *Scene) Vars() *variables.Container { return s.vars }

// Instances returns the containers of every instance of object, in scene
// order. It implements compiler.InstanceSource.
func (s *Scene) Instances(object string) []*variables.Container {
	return s.byObject[object]
}

// Post queues a write to a global or scene variable for the next tick.
func (s *Scene) Post(in Input) error {
	if in.Scope != variables.Global && in.Scope != variables.Scene {
		return fmt.Errorf("input %q: cannot post to %s scope", in.Name, in.Scope)
	}
	path, err := variables.ParsePath(in.Name)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if !s.queue.Enqueue(queuedInput{Input: in, path: path}) {
		return ErrClosed
	}
	return nil
}

// Step runs one tick: advance the clock, apply queued inputs, run the
// program once, then diff and record the variable state.
//
// Event errors become warnings in the returned record. A fatal error
// abandons the tick and is returned together with the partial record.
func (s *Scene) Step(ctx context.Context) (TickRecord, error) {
	if err := ctx.Err(); err != nil {
		return TickRecord{}, err
	}
	if err := s.begin(ctx); err != nil {
		return TickRecord{}, err
	}

	tick := s.clock.Next()
	rec := TickRecord{RunID: s.runID, Tick: tick}
	s.applyInputs()
	s.quota.Begin(s.runID, tick)

	frame := &compiler.Frame{
		Vars:      variables.NewChain(s.vars, s.global),
		Tick:      tick,
		Eval:      operator.Evaluator{Strict: s.strict},
		Budget:    s.quota,
		Instances: s,
		Report: func(event string, err error) {
			w := newWarning(tick, event, err)
			s.logger.Warn("event failed",
				"run_id", s.runID,
				"tick", tick,
				"event", event,
				"code", w.Code,
				"error", err,
			)
			rec.Warnings = append(rec.Warnings, w)
		},
	}
	runErr := s.program.Run(frame)

	rec.Steps = s.quota.Current()
	cur := s.Snapshot()
	rec.Changes = diffSnapshots(s.prev, cur)
	s.prev = cur

	if runErr != nil {
		rec.Aborted = runErr.Error()
		s.logger.Error("tick abandoned",
			"run_id", s.runID,
			"tick", tick,
			"steps", rec.Steps,
			"code", ClassifyError(runErr),
			"error", runErr,
		)
	} else {
		s.logger.Debug("tick complete",
			"tick", tick,
			"steps", rec.Steps,
			"changes", len(rec.Changes),
			"warnings", len(rec.Warnings),
		)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordTick(ctx, rec); err != nil {
			return rec, fmt.Errorf("record tick %d: %w", tick, err)
		}
	}
	if runErr != nil {
		return rec, fmt.Errorf("tick %d: %w", tick, runErr)
	}
	return rec, nil
}

// Run steps ticks times, or until ctx is done when ticks is 0. A positive
// rate paces steps at that many ticks per second. Rates too high to pace
// at nanosecond resolution run unpaced.
func (s *Scene) Run(ctx context.Context, ticks uint64, rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return fmt.Errorf("tick rate must be a finite non-negative number, got %v", rate)
	}
	var pace <-chan time.Time
	if interval := tickInterval(rate); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	for n := uint64(0); ticks == 0 || n < ticks; n++ {
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}
		if _, err := s.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// tickInterval returns the pause between ticks at rate, or 0 for unpaced.
func tickInterval(rate float64) time.Duration {
	if rate <= 0 {
		return 0
	}
	ns := float64(time.Second) / rate
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// Close rejects further input and ends the recorded run with a status
// derived from runErr. Pass a live context: the recorder may need it
// after the run's own context was cancelled.
func (s *Scene) Close(ctx context.Context, runErr error) error {
	s.queue.Close()
	if !s.started {
		return nil
	}

	status := RunCompleted
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = RunCancelled
	case runErr != nil:
		status = RunFailed
	}

	s.logger.Info("run finished",
		"run_id", s.runID,
		"scene", s.name,
		"status", status,
		"ticks", s.clock.Current(),
	)
	if s.recorder == nil {
		return nil
	}
	return s.recorder.EndRun(ctx, s.runID, status, s.clock.Current())
}

// Snapshot returns the current variable state.
func (s *Scene) Snapshot() Snapshot {
	snap := Snapshot{
		RunID:  s.runID,
		Tick:   s.clock.Current(),
		Global: s.global.Snapshot(),
		Scene:  s.vars.Snapshot(),
	}
	for i, c := range s.instances {
		snap.Instances = append(snap.Instances, InstanceState{
			Index:     i,
			Object:    c.Owner(),
			Variables: c.Snapshot(),
		})
	}
	return snap
}

// Restore loads a recorded state before the first tick. The next Step
// runs snap.Tick+1, and the new run records snap.RunID as its origin.
func (s *Scene) Restore(snap Snapshot) error {
	if s.started {
		return fmt.Errorf("restore: run %s already started", s.runID)
	}
	for _, inst := range snap.Instances {
		if inst.Index < 0 || inst.Index >= len(s.instances) {
			return fmt.Errorf("restore: instance %d out of range (scene has %d)", inst.Index, len(s.instances))
		}
		if owner := s.instances[inst.Index].Owner(); owner != inst.Object {
			return fmt.Errorf("restore: instance %d is %q, snapshot has %q", inst.Index, owner, inst.Object)
		}
	}

	s.global.Load(snap.Global)
	s.vars.Load(snap.Scene)
	for _, c := range s.instances {
		c.Load(nil)
	}
	for _, inst := range snap.Instances {
		s.instances[inst.Index].Load(inst.Variables)
	}
	s.clock.Set(snap.Tick)
	s.resumedFrom = snap.RunID
	s.prev = s.Snapshot()

	s.logger.Info("run restored", "from_run", snap.RunID, "tick", snap.Tick)
	return nil
}

// begin records the run start once, before the first tick.
func (s *Scene) begin(ctx context.Context) error {
	if s.started {
		return nil
	}
	s.started = true

	s.logger.Info("run started",
		"run_id", s.runID,
		"scene", s.name,
		"program_hash", s.program.Hash,
		"start_tick", s.clock.Current(),
	)
	if s.recorder == nil {
		return nil
	}
	info := RunInfo{
		RunID:         s.runID,
		Scene:         s.name,
		ProgramHash:   s.program.Hash,
		FormatVersion: ir.FormatVersion,
		EngineVersion: ir.EngineVersion,
		StartTick:     s.clock.Current(),
		ResumedFrom:   s.resumedFrom,
		StartedAt:     s.now().UTC(),
		Initial:       s.prev.Changes(),
	}
	if err := s.recorder.BeginRun(ctx, info); err != nil {
		return fmt.Errorf("begin run %s: %w", s.runID, err)
	}
	return nil
}

func (s *Scene) applyInputs() {
	for _, in := range s.queue.Drain() {
		target := s.vars
		if in.Scope == variables.Global {
			target = s.global
		}
		variables.NewChain(target).Assign(in.path, in.Value)
		s.logger.Debug("input applied", "scope", in.Scope, "name", in.Name)
	}
}
