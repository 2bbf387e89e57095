package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/eventsheet/internal/compiler"
)

// ValidationIssue is one validation problem in command output.
type ValidationIssue struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <project>",
		Short: "List every problem in a project",
		Long: `Validate every scene and external events list of a project without
stopping at the first error.

Each problem names the offending event path, for example
layouts[0].events[2].conditions[1], and carries an error code.
Link cycles are reported after document order problems.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout())

	project, err := loadProject(formatter, path)
	if err != nil {
		return err
	}

	errs := compiler.Validate(project, nil)
	opts.logger().Debug("validated project", "project", project.Name, "errors", len(errs))

	if len(errs) == 0 {
		return formatter.Success(ValidationResult{Valid: true}, func(w io.Writer) {
			fmt.Fprintln(w, "✓ Validation passed")
		})
	}

	result := ValidationResult{Errors: make([]ValidationIssue, len(errs))}
	for i, e := range errs {
		result.Errors[i] = ValidationIssue{Code: e.Code, Path: e.Path, Message: e.Message}
	}
	message := fmt.Sprintf("validation failed with %d error(s)", len(errs))
	return formatter.Fail(ExitFailure, errs[0].Code, message, result, func(w io.Writer) {
		fmt.Fprintln(w, "✗ Validation failed")
		fmt.Fprintln(w)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  [%s] %s: %s\n", e.Code, e.Path, e.Message)
		}
		fmt.Fprintln(w)
	})
}
