package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/eventsheet/internal/compiler"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Scene  string // compile one scene only
	Output string // output file path
}

// SceneSummary describes one compiled scene.
type SceneSummary struct {
	Scene       string         `json:"scene"`
	ProgramHash string         `json:"program_hash"`
	Stats       compiler.Stats `json:"stats"`
}

// CompilationResult holds the compiled scenes of a project.
type CompilationResult struct {
	Project string         `json:"project"`
	Scenes  []SceneSummary `json:"scenes"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <project>",
		Short: "Compile every scene of a project",
		Long: `Compile the scenes of a JSON or CUE project into closure trees.

Prints each scene's program hash and how many events, conditions,
actions and links were compiled. Compilation stops at the first error
of a scene; use validate to list every problem.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scene, "scene", "", "compile only this scene")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the summary as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	logger := opts.logger()

	project, err := loadProject(formatter, path)
	if err != nil {
		return err
	}
	scenes, err := selectScenes(project, opts.Scene)
	if err != nil {
		return formatter.CommandError(ErrCodeNotFound, err.Error(), nil)
	}

	result := &CompilationResult{Project: project.Name, Scenes: []SceneSummary{}}
	c := compiler.New(nil)
	for _, name := range scenes {
		logger.Debug("compiling scene", "scene", name)
		prog, err := c.CompileScene(project, name)
		if err != nil {
			return outputCompileError(formatter, name, err)
		}
		result.Scenes = append(result.Scenes, SceneSummary{
			Scene:       prog.Scene,
			ProgramHash: prog.Hash,
			Stats:       prog.Stats,
		})
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeSummary(result, opts.Output); err != nil {
			return formatter.CommandError(ErrCodeGeneric, "writing output file", err)
		}
	}

	return formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Compiled %d scene(s)\n\n", len(result.Scenes))
		tbl := newTable(w, "Scene", "Program Hash", "Events", "Conditions", "Actions", "Links")
		for _, s := range result.Scenes {
			tbl.AddRow(s.Scene, s.ProgramHash, s.Stats.Events, s.Stats.Conditions, s.Stats.Actions, s.Stats.Links)
		}
		tbl.Print()
		if opts.Output != "" {
			fmt.Fprintf(w, "\nWrote summary to %s\n", opts.Output)
		}
	})
}

// outputCompileError reports the first compile error of a scene.
func outputCompileError(f *OutputFormatter, scene string, err error) error {
	code := ErrCodeGeneric
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		code = ce.Code
	}
	message := fmt.Sprintf("scene %q: %v", scene, err)
	return f.Fail(ExitFailure, code, message, nil, func(w io.Writer) {
		fmt.Fprintln(w, "✗ Compilation failed")
		fmt.Fprintln(w)
	})
}

func writeSummary(result *CompilationResult, filename string) error {
	data, err := gojson.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
