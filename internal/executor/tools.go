package executor

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

// Runner runs an external command in dir and returns its combined output.
type Runner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Tools locates node tool binaries: <projectRoot>/node_modules/.bin first, then PATH.
type Tools struct {
	fs          afero.Fs
	projectRoot string
	run         Runner
	lookPath    func(string) (string, error)
}

// NewTools creates a tool locator.
func NewTools(fs afero.Fs, projectRoot string, run Runner) *Tools {
	return &Tools{fs: fs, projectRoot: projectRoot, run: run, lookPath: exec.LookPath}
}

// Find returns the path of the named tool.
func (t *Tools) Find(name string) (string, error) {
	local := filepath.Join(t.projectRoot, "node_modules", ".bin", name)
	if runtime.GOOS == "windows" {
		local += ".cmd"
	}
	if ok, _ := afero.Exists(t.fs, local); ok {
		return local, nil
	}
	p, err := t.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in node_modules/.bin or PATH: %w", name, err)
	}
	return p, nil
}

// Run locates name and runs it from the project root.
func (t *Tools) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	bin, err := t.Find(name)
	if err != nil {
		return nil, err
	}
	return t.run(ctx, t.projectRoot, bin, args...)
}
