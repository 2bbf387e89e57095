package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsheet/internal/harness"
	"github.com/roach88/eventsheet/internal/queryir"
	"github.com/roach88/eventsheet/internal/store"
	"github.com/roach88/eventsheet/internal/variables"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Vars     []string // optional - filter to these root variable names
	Scope    string   // optional - global, scene or object
	Since    uint64
	Until    uint64
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run    store.Run            `json:"run"`
	Events []harness.TraceEvent `json:"events"`
	Stats  TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Initial     int `json:"initial"`
	Changes     int `json:"changes"`
	Warnings    int `json:"warnings"`
	Aborted     int `json:"aborted"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the recorded variable changes of a run",
		Long: `Show what a recorded run did, tick by tick.

The timeline lists the run's initial state, every variable change,
every warning and every abandoned tick. Variable and scope filters
apply to changes only; tick bounds apply to everything.

Examples:
  eventsheet trace --db runs.db --run <run-id>
  eventsheet trace --db runs.db --run <run-id> --var Score --var Lives
  eventsheet trace --db runs.db --run <run-id> --scope global --since 10 --until 20
  eventsheet trace --db runs.db --run <run-id> --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "only changes of this root variable (repeatable)")
	cmd.Flags().StringVar(&opts.Scope, "scope", "", "only changes in this scope (global|scene|object)")
	cmd.Flags().Uint64Var(&opts.Since, "since", 0, "first tick, inclusive")
	cmd.Flags().Uint64Var(&opts.Until, "until", 0, "last tick, inclusive (0 for no bound)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	if opts.Scope != "" {
		if _, err := variables.ParseScope(opts.Scope); err != nil {
			return formatter.CommandError(ErrCodeInvalidFlag, "invalid --scope", err)
		}
	}
	if opts.Until > 0 && opts.Until < opts.Since {
		return formatter.CommandError(ErrCodeInvalidFlag,
			fmt.Sprintf("--until %d is before --since %d", opts.Until, opts.Since), nil)
	}

	st, err := openExisting(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.CommandError(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.CommandError(ErrCodeDatabase, "failed to read run", err)
	}

	events, err := harness.QueryTrace(ctx, st, queryir.TraceFilter{
		RunID: opts.RunID,
		Names: opts.Vars,
		Scope: opts.Scope,
		Since: opts.Since,
		Until: opts.Until,
	})
	if err != nil {
		return formatter.CommandError(ErrCodeDatabase, "failed to read trace", err)
	}

	result := TraceResult{Run: run, Events: events}
	for _, e := range events {
		switch e.Type {
		case harness.TraceInitial:
			result.Stats.Initial++
		case harness.TraceChange:
			result.Stats.Changes++
		case harness.TraceWarning:
			result.Stats.Warnings++
		case harness.TraceAbort:
			result.Stats.Aborted++
		}
	}
	result.Stats.TotalEvents = len(events)
	if result.Events == nil {
		result.Events = []harness.TraceEvent{}
	}

	return formatter.Success(result, func(w io.Writer) {
		outputTraceText(w, result)
	})
}

// openExisting opens a run database that must already exist.
func openExisting(f *OutputFormatter, path string) (*store.Store, error) {
	if !fileExists(path) {
		return nil, f.CommandError(ErrCodeNotFound, fmt.Sprintf("database not found: %s", path), nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, f.CommandError(ErrCodeDatabase, "failed to open database", err)
	}
	return st, nil
}

func outputTraceText(w io.Writer, result TraceResult) {
	run := result.Run
	fmt.Fprintf(w, "Trace for Run: %s\n", run.ID)
	fmt.Fprintf(w, "Scene: %s  Program: %s\n", run.Scene, run.ProgramHash)
	fmt.Fprintf(w, "Ticks: %d..%d  Status: %s\n", run.StartTick, run.LastTick, run.Status)
	if run.ResumedFrom != "" {
		fmt.Fprintf(w, "Resumed from: %s\n", run.ResumedFrom)
	}
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		tbl := newTable(w, "Tick", "Type", "Scope", "Variable", "Value")
		for _, e := range result.Events {
			switch e.Type {
			case harness.TraceWarning:
				tbl.AddRow(e.Tick, e.Type, "", e.Event, fmt.Sprintf("%s: %s", e.Code, e.Message))
			case harness.TraceAbort:
				tbl.AddRow(e.Tick, e.Type, "", "", e.Message)
			default:
				target := e.Name
				if e.Owner != "" {
					target = fmt.Sprintf("%s#%d.%s", e.Owner, e.Instance, e.Name)
				}
				value := e.Value
				if e.Deleted {
					value = "(deleted)"
				}
				tbl.AddRow(e.Tick, e.Type, e.Scope, target, value)
			}
		}
		tbl.Print()
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Initial:      %d\n", result.Stats.Initial)
	fmt.Fprintf(w, "  Changes:      %d\n", result.Stats.Changes)
	fmt.Fprintf(w, "  Warnings:     %d\n", result.Stats.Warnings)
	fmt.Fprintf(w, "  Aborted:      %d\n", result.Stats.Aborted)
}
