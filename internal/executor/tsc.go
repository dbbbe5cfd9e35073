package executor

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

// TSC compiles TypeScript by running the tsc binary.
type TSC struct {
	tools  *Tools
	logger *zap.Logger
}

// NewTSC creates a tsc-backed Compiler.
func NewTSC(tools *Tools, logger *zap.Logger) *TSC {
	return &TSC{tools: tools, logger: logger}
}

// Compile runs "tsc -p <tsconfig>" with the pass options as overrides.
func (c *TSC) Compile(ctx context.Context, req CompileRequest) error {
	args := []string{"-p", req.TsConfig}
	if req.Target != "" {
		args = append(args, "--target", req.Target)
	}
	if req.Module != "" {
		args = append(args, "--module", req.Module)
	}
	if req.OutDir != "" {
		args = append(args, "--outDir", req.OutDir)
	}
	args = append(args,
		"--declaration", strconv.FormatBool(req.Declaration),
		"--sourceMap", strconv.FormatBool(req.SourceMap),
	)

	c.logger.Debug("running tsc", zap.Strings("args", args))
	out, err := c.tools.Run(ctx, "tsc", args...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		diag := string(out)
		if diag == "" {
			diag = err.Error()
		}
		return &errs.TypescriptCompileError{TsConfig: req.TsConfig, Diagnostics: diag}
	}
	return nil
}
