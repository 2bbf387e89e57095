package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/eventsheet/internal/compiler"
	"github.com/roach88/eventsheet/internal/ir"
)

// loadProject reads a JSON or CUE project or bare scene. Failures are
// reported through f: CUE errors are content failures (exit 1), anything
// else is a command error.
func loadProject(f *OutputFormatter, path string) (*ir.Project, error) {
	p, err := compiler.LoadFile(path)
	if err == nil {
		return p, nil
	}
	if ce, ok := cueError(err); ok {
		return nil, f.Fail(ExitFailure, ce.Code, ce.Error(), nil, nil)
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil, f.CommandError(ErrCodeNotFound, fmt.Sprintf("project file not found: %s", path), nil)
	}
	return nil, f.CommandError(ErrCodeLoadFailed, "failed to load project", err)
}

// cueError returns the CUE CompileError inside err, if any.
func cueError(err error) (*compiler.CompileError, bool) {
	var ce *compiler.CompileError
	if errors.As(err, &ce) && ce.Code == compiler.ErrCUE {
		return ce, true
	}
	return nil, false
}

// selectScenes returns the named scene, or every scene when name is empty.
func selectScenes(p *ir.Project, name string) ([]string, error) {
	if name == "" {
		return p.SceneNames(), nil
	}
	if _, ok := p.Scene(name); !ok {
		return nil, fmt.Errorf("%w: %q", compiler.ErrSceneNotFound, name)
	}
	return []string{name}, nil
}
