package executor

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

// LowerRequest rewrites Input as es5 into Output. Input and Output may be the same file.
type LowerRequest struct {
	Input     string
	Output    string
	SourceMap bool
}

// ES5Lowerer lowers JavaScript to es5. esbuild cannot lower classes,
// let/const or destructuring to es5, so this runs through tsc.
type ES5Lowerer interface {
	Lower(ctx context.Context, req LowerRequest) error
}

// TSCLowerer lowers JS files with "tsc --allowJs --target es5". The module
// syntax of the input is kept.
type TSCLowerer struct {
	fs     afero.Fs
	tools  *Tools
	logger *zap.Logger
}

// NewTSCLowerer creates a tsc-backed ES5Lowerer.
func NewTSCLowerer(fs afero.Fs, tools *Tools, logger *zap.Logger) *TSCLowerer {
	return &TSCLowerer{fs: fs, tools: tools, logger: logger}
}

var sourceMapComment = []byte("//# sourceMappingURL=")

// Lower emits into a scratch directory and copies the result to req.Output.
func (l *TSCLowerer) Lower(ctx context.Context, req LowerRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := afero.TempDir(l.fs, "", "ngb-es5-")
	if err != nil {
		return &errs.BundleError{Step: "transform", Message: "create scratch dir", Err: err}
	}
	defer func() { _ = l.fs.RemoveAll(tmp) }()

	args := []string{
		"--allowJs",
		"--noResolve",
		"--skipLibCheck",
		"--downlevelIteration",
		"--target", "es5",
		"--module", "es2015",
		"--rootDir", filepath.Dir(req.Input),
		"--outDir", tmp,
	}
	if req.SourceMap {
		args = append(args, "--sourceMap")
	}
	args = append(args, req.Input)

	l.logger.Debug("lowering to es5", zap.String("input", req.Input))
	out, err := l.tools.Run(ctx, "tsc", args...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := string(bytes.TrimSpace(out))
		if msg == "" {
			msg = err.Error()
		}
		return &errs.BundleError{Step: "transform", Message: msg, Err: err}
	}

	emitted := filepath.Join(tmp, filepath.Base(req.Input))
	code, err := afero.ReadFile(l.fs, emitted)
	if err != nil {
		return &errs.BundleError{Step: "transform", Message: fmt.Sprintf("tsc emitted no %s", filepath.Base(req.Input)), Err: err}
	}
	if i := bytes.LastIndex(code, sourceMapComment); i >= 0 {
		code = code[:i]
	}

	var sourceMap []byte
	if req.SourceMap {
		if sourceMap, err = afero.ReadFile(l.fs, emitted+".map"); err != nil {
			return &errs.BundleError{Step: "transform", Message: "tsc emitted no source map", Err: err}
		}
	}
	if err := writeWithMap(l.fs, req.Output, req.Output, code, sourceMap); err != nil {
		return &errs.BundleError{Step: "transform", Message: "write output", Err: err}
	}
	return nil
}
