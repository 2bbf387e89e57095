package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsheet/internal/compiler"
	"github.com/roach88/eventsheet/internal/config"
	"github.com/roach88/eventsheet/internal/engine"
	"github.com/roach88/eventsheet/internal/ir"
	"github.com/roach88/eventsheet/internal/store"
	"github.com/roach88/eventsheet/internal/variables"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Scene    string
	Ticks    uint64
	Rate     float64
	Sets     []string
	Strict   bool
	MaxSteps int
	Database string
	Resume   string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the result of the run command.
type RunSummary struct {
	RunID       string             `json:"run_id"`
	Scene       string             `json:"scene"`
	ProgramHash string             `json:"program_hash"`
	ResumedFrom string             `json:"resumed_from,omitempty"`
	Status      engine.RunStatus   `json:"status"`
	Tick        uint64             `json:"tick"`
	Warnings    []engine.Warning   `json:"warnings"`
	Global      ir.VariableList    `json:"global"`
	Variables   ir.VariableList    `json:"variables"`
	Instances   []InstanceVariable `json:"instances,omitempty"`
	Database    string             `json:"db,omitempty"`
}

// InstanceVariable holds the variables of one object instance.
type InstanceVariable struct {
	Index     int             `json:"index"`
	Object    string          `json:"object"`
	Variables ir.VariableList `json:"variables"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <project>",
		Short: "Run a scene for a number of ticks",
		Long: `Run a scene of a JSON or CUE project and print its final variables.

Each tick applies queued inputs, then runs the scene's events once.
--set values are queued as inputs before the first tick; prefix a name
with "global:" to write a global variable. Numeric values become
numbers, anything else (or a quoted value) becomes a string.

With --db every tick is recorded to SQLite for trace and --resume.
With --ticks 0 the scene runs until interrupted.

Settings come from the config file (--config, $EVENTSHEET_CONFIG,
~/.config/eventsheet/config.yaml, ./eventsheet.yaml); flags win.

Example:
  eventsheet run ./game.json --ticks 60
  eventsheet run ./game.json --scene Level1 --set Input.jump=1 --db runs.db
  eventsheet run ./game.json --db runs.db --resume <run-id> --ticks 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScene(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to a config file")
	cmd.Flags().StringVar(&opts.Scene, "scene", "", "scene to run (default: the first scene)")
	cmd.Flags().Uint64Var(&opts.Ticks, "ticks", 1, "number of ticks to run, 0 to run until interrupted")
	cmd.Flags().Float64Var(&opts.Rate, "rate", 0, "ticks per second, 0 for as fast as possible")
	cmd.Flags().StringArrayVar(&opts.Sets, "set", nil, "queue [global:]name=value before the first tick (repeatable)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail events on type coercion failures")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", engine.DefaultMaxSteps, "per-tick instruction budget, 0 for unlimited")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database")
	cmd.Flags().StringVar(&opts.Resume, "resume", "", "continue from the last recorded tick of this run (requires --db)")

	return cmd
}

// applyConfig fills flags the user did not set from cfg.
func (o *RunOptions) applyConfig(cmd *cobra.Command, cfg config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("rate") {
		o.Rate = cfg.TickRate
	}
	if !flags.Changed("max-steps") {
		o.MaxSteps = cfg.MaxSteps
	}
	if !flags.Changed("strict") {
		o.Strict = cfg.StrictCoercion
	}
	if !flags.Changed("db") {
		o.Database = cfg.DB
	}
}

func runScene(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return formatter.CommandError(ErrCodeInvalidFlag, "failed to load config", err)
	}
	opts.applyConfig(cmd, cfg)
	if err := opts.configureLogging(cmd.ErrOrStderr(), cfg.Log); err != nil {
		return err
	}
	logger := opts.logger()
	if cfg.Source != "" {
		logger.Debug("config loaded", "path", cfg.Source)
	}

	if opts.Resume != "" && opts.Database == "" {
		return formatter.CommandError(ErrCodeInvalidFlag, "--resume requires --db", nil)
	}
	if opts.MaxSteps < 0 {
		return formatter.CommandError(ErrCodeInvalidFlag, "--max-steps must be non-negative", nil)
	}
	if err := config.ValidateTickRate(opts.Rate); err != nil {
		return formatter.CommandError(ErrCodeInvalidFlag, "invalid --rate", err)
	}
	inputs, err := parseSets(opts.Sets)
	if err != nil {
		return formatter.CommandError(ErrCodeInvalidFlag, "invalid --set", err)
	}

	project, err := loadProject(formatter, path)
	if err != nil {
		return err
	}
	sceneName := opts.Scene
	if sceneName == "" && len(project.Layouts) > 0 {
		sceneName = project.Layouts[0].Name
	}

	tally := &tallyRecorder{}
	sceneOpts := []engine.SceneOption{
		engine.WithMaxSteps(opts.MaxSteps),
		engine.WithStrictCoercion(opts.Strict),
		engine.WithLogger(logger),
	}
	if opts.RunIDs != nil {
		sceneOpts = append(sceneOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.CommandError(ErrCodeDatabase, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		tally.next = st
	}
	sceneOpts = append(sceneOpts, engine.WithRecorder(tally))

	scene, err := engine.NewScene(project, sceneName, nil, sceneOpts...)
	if err != nil {
		if errors.Is(err, compiler.ErrSceneNotFound) {
			return formatter.CommandError(ErrCodeNotFound, err.Error(), nil)
		}
		return outputCompileError(formatter, sceneName, err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.Resume != "" {
		if err := resumeFrom(ctx, st, scene, opts.Resume, logger); err != nil {
			return formatter.CommandError(ErrCodeNotFound, "cannot resume", err)
		}
	}
	for _, in := range inputs {
		if err := scene.Post(in); err != nil {
			return formatter.CommandError(ErrCodeInvalidFlag, "invalid --set", err)
		}
	}

	runErr := scene.Run(ctx, opts.Ticks, opts.Rate)
	// A cancelled run still ends its recording; use a context that is not done.
	if err := scene.Close(context.WithoutCancel(ctx), runErr); err != nil {
		return formatter.CommandError(ErrCodeDatabase, "failed to end run", err)
	}

	summary := summarize(scene, tally, runErr)
	summary.Database = opts.Database

	if runErr != nil && summary.Status == engine.RunFailed {
		return formatter.Fail(ExitFailure, ErrCodeRunFailed, runErr.Error(), summary, func(w io.Writer) {
			renderRunSummary(w, summary)
		})
	}
	return formatter.Success(summary, func(w io.Writer) {
		renderRunSummary(w, summary)
	})
}

// resumeFrom restores the last recorded state of runID into scene.
func resumeFrom(ctx context.Context, st *store.Store, scene *engine.Scene, runID string, logger *slog.Logger) error {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Scene != scene.Name() {
		return fmt.Errorf("run %s recorded scene %q, not %q", runID, run.Scene, scene.Name())
	}
	if run.ProgramHash != scene.Program().Hash {
		logger.Warn("resuming with a different program",
			"run_id", runID,
			"recorded_hash", run.ProgramHash,
			"program_hash", scene.Program().Hash,
		)
	}
	snap, err := st.LoadLatest(ctx, runID)
	if err != nil {
		return err
	}
	return scene.Restore(snap)
}

func summarize(scene *engine.Scene, tally *tallyRecorder, runErr error) RunSummary {
	snap := scene.Snapshot()
	status := engine.RunCompleted
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		status = engine.RunCancelled
	case runErr != nil:
		status = engine.RunFailed
	}

	summary := RunSummary{
		RunID:       scene.RunID(),
		Scene:       scene.Name(),
		ProgramHash: scene.Program().Hash,
		ResumedFrom: scene.ResumedFrom(),
		Status:      status,
		Tick:        snap.Tick,
		Warnings:    tally.Warnings(),
		Global:      snap.Global,
		Variables:   snap.Scene,
	}
	for _, inst := range snap.Instances {
		summary.Instances = append(summary.Instances, InstanceVariable{
			Index:     inst.Index,
			Object:    inst.Object,
			Variables: inst.Variables,
		})
	}
	return summary
}

func renderRunSummary(w io.Writer, s RunSummary) {
	fmt.Fprintf(w, "Run %s: scene %s, tick %d, %s\n", s.RunID, s.Scene, s.Tick, s.Status)
	if s.ResumedFrom != "" {
		fmt.Fprintf(w, "Resumed from %s\n", s.ResumedFrom)
	}
	fmt.Fprintln(w)

	tbl := newTable(w, "Scope", "Name", "Value")
	for _, v := range s.Global {
		tbl.AddRow("global", v.Name, formatVariable(v.Value))
	}
	for _, v := range s.Variables {
		tbl.AddRow("scene", v.Name, formatVariable(v.Value))
	}
	for _, inst := range s.Instances {
		for _, v := range inst.Variables {
			tbl.AddRow(fmt.Sprintf("%s#%d", inst.Object, inst.Index), v.Name, formatVariable(v.Value))
		}
	}
	tbl.Print()

	if len(s.Warnings) > 0 {
		fmt.Fprintf(w, "\n%d warning(s):\n", len(s.Warnings))
		for _, warn := range s.Warnings {
			fmt.Fprintf(w, "  %s\n", warn)
		}
	}
	if s.Database != "" {
		fmt.Fprintf(w, "\nRecorded to %s\n", s.Database)
	}
}

// formatVariable renders numbers and strings plainly and containers as
// their variable JSON.
func formatVariable(v ir.Variable) string {
	switch val := v.(type) {
	case ir.Number:
		return ir.FormatNumber(float64(val))
	case ir.String:
		return strconv.Quote(string(val))
	}
	data, err := ir.MarshalVariable(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

// parseSets parses --set values of the form [global:]name=value.
func parseSets(sets []string) ([]engine.Input, error) {
	inputs := make([]engine.Input, 0, len(sets))
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%q: expected name=value", s)
		}
		scope := variables.Scene
		if rest, found := strings.CutPrefix(name, "global:"); found {
			scope, name = variables.Global, rest
		}
		if _, err := variables.ParsePath(name); err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		inputs = append(inputs, engine.Input{Scope: scope, Name: name, Value: parseSetValue(raw)})
	}
	return inputs, nil
}

func parseSetValue(raw string) ir.Variable {
	if unquoted, err := strconv.Unquote(raw); err == nil && strings.HasPrefix(raw, `"`) {
		return ir.String(unquoted)
	}
	if f, ok := ir.ParseNumber(raw); ok {
		return ir.Number(f)
	}
	return ir.String(raw)
}

// tallyRecorder collects warnings and forwards to next, if set.
type tallyRecorder struct {
	next engine.Recorder

	mu       sync.Mutex
	warnings []engine.Warning
}

func (r *tallyRecorder) BeginRun(ctx context.Context, info engine.RunInfo) error {
	if r.next == nil {
		return nil
	}
	return r.next.BeginRun(ctx, info)
}

func (r *tallyRecorder) RecordTick(ctx context.Context, rec engine.TickRecord) error {
	r.mu.Lock()
	r.warnings = append(r.warnings, rec.Warnings...)
	r.mu.Unlock()
	if r.next == nil {
		return nil
	}
	return r.next.RecordTick(ctx, rec)
}

func (r *tallyRecorder) EndRun(ctx context.Context, runID string, status engine.RunStatus, lastTick uint64) error {
	if r.next == nil {
		return nil
	}
	return r.next.EndRun(ctx, runID, status, lastTick)
}

// Warnings returns the collected warnings.
func (r *tallyRecorder) Warnings() []engine.Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Warning{}, r.warnings...)
}
