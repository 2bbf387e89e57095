package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsheet/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	LogFormat string // "text" | "json" | "pretty"; empty picks by terminal
	LogFile   string

	// Logger is installed by the root command before any subcommand runs.
	Logger *slog.Logger

	logCloser io.Closer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the eventsheet CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "eventsheet",
		Short: "Compile and run event sheets",
		Long: `eventsheet compiles declarative event sheets into closure trees and runs
them against scoped variable stores, one pass per tick.

Runs can be recorded to SQLite, inspected with trace and resumed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.LogFormat != "" && !slices.Contains(ValidLogFormats, opts.LogFormat) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid log format %q: must be one of %v", opts.LogFormat, ValidLogFormats))
			}
			return opts.configureLogging(cmd.ErrOrStderr(), config.Default().Log)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.closeLog()
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json|pretty)")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "write logs to a rotated file instead of stderr")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))

	return cmd
}

// configureLogging installs a logger from the config's log section. Flags
// take precedence over cfg.
func (o *RootOptions) configureLogging(stderr io.Writer, cfg config.LogConfig) error {
	lo := LogOptions{Level: cfg.Level, Format: cfg.Format, File: cfg.File}
	if o.Verbose {
		lo.Level = "debug"
	}
	if o.LogFormat != "" {
		lo.Format = o.LogFormat
	}
	if o.LogFile != "" {
		lo.File = o.LogFile
	}

	logger, closer, err := NewLogger(stderr, lo)
	if err != nil {
		return WrapExitError(ExitCommandError, "configure logging", err)
	}
	if err := o.closeLog(); err != nil {
		closer.Close()
		return err
	}
	o.Logger, o.logCloser = logger, closer
	return nil
}

func (o *RootOptions) closeLog() error {
	if o.logCloser == nil {
		return nil
	}
	err := o.logCloser.Close()
	o.logCloser = nil
	return err
}

// logger returns the installed logger, or a discarding one when the
// command runs without the root's pre-run hook.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// Execute runs cmd and returns the process exit code. Errors not already
// written to the output are printed to stderr. Errors raised by cobra
// itself (unknown commands, bad arguments, missing required flags) are
// command errors.
func Execute(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(stderr, "Error:", err)
		return ExitCommandError
	}
	if !exitErr.Reported {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitErr.Code
}
