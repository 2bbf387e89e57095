package cli

import (
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
	"github.com/rodaine/table"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation errors, failed scenarios, failed runs
	ExitCommandError = 2 // Bad flags, unreadable files, missing runs
)

// Error codes reported in JSON output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path, scene or run not found
	ErrCodeLoadFailed  = "E004" // Project could not be read or decoded
	ErrCodeInvalidFlag = "E008" // Flag value rejected
	ErrCodeDatabase    = "E009" // Run database error
	ErrCodeRunFailed   = "E010" // A tick was abandoned
	ErrCodeTestsFailed = "E011" // One or more scenarios failed
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the error was already written to the output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload, or details of an error
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w}
}

// JSON reports whether the formatter emits JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success writes data as an ok response in JSON mode. In text mode render
// is called instead.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	render(f.Writer)
	return nil
}

// Fail writes an error response carrying data and returns an ExitError with
// exitCode. In text mode render is called before the error line when set.
func (f *OutputFormatter) Fail(exitCode int, code, message string, data any, render func(w io.Writer)) error {
	if f.JSON() {
		if err := f.encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: message},
		}); err != nil {
			return err
		}
	} else {
		if render != nil {
			render(f.Writer)
		}
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	}
	return &ExitError{Code: exitCode, Message: message, Reported: true}
}

// CommandError reports err as a command error (exit code 2).
func (f *OutputFormatter) CommandError(code, message string, err error) error {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return f.Fail(ExitCommandError, code, message, nil, nil)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := gojson.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// newTable returns a text table writing to w.
func newTable(w io.Writer, columns ...any) table.Table {
	return table.New(columns...).WithWriter(w)
}
