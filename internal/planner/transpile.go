package planner

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/errs"
	"github.com/josephgoksu/ngbuild/internal/pathutil"
)

// ResolvedTranspilation is a TypeScript emit pass with every path absolute
// and target/module filled from the tsconfig when undeclared.
type ResolvedTranspilation struct {
	Index       int    `json:"index" yaml:"index"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	TsConfig    string `json:"tsconfig" yaml:"tsconfig"`
	Target      string `json:"target" yaml:"target"`
	Module      string `json:"module" yaml:"module"`
	Declaration bool   `json:"declaration" yaml:"declaration"`
	SourceMap   bool   `json:"sourceMap" yaml:"sourceMap"`
	OutDir      string `json:"outDir" yaml:"outDir"`
}

// StepID returns the ID of the step running this pass.
func (t ResolvedTranspilation) StepID() StepRef {
	return fmt.Sprintf("%s:%d", KindTranspile, t.Index)
}

// ResolveTranspilations resolves the declared passes of lib.
// tsconfig paths are relative to srcDir and must exist.
func ResolveTranspilations(ctx context.Context, fs afero.Fs, lib *Library) ([]ResolvedTranspilation, error) {
	cfg := lib.Config
	out := make([]ResolvedTranspilation, 0, len(cfg.TsTranspilations))
	for i, t := range cfg.TsTranspilations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		field := fmt.Sprintf("%s.tsTranspilations[%d]", lib.Path, i)

		tsconfig := t.TsConfig
		if tsconfig == "" {
			tsconfig = config.DefaultTsConfig
		}
		tsconfig = pathutil.Resolve(lib.SrcDir, tsconfig)
		exists, err := afero.Exists(fs, tsconfig)
		if err != nil {
			return nil, fmt.Errorf("check tsconfig %s: %w", tsconfig, err)
		}
		if !exists {
			return nil, errs.InvalidConfig(field+".tsconfig", "tsconfig file %s not found", tsconfig)
		}
		opts, err := readCompilerOptions(fs, tsconfig)
		if err != nil {
			return nil, errs.InvalidConfig(field+".tsconfig", "%v", err)
		}

		rt := ResolvedTranspilation{
			Index:       i,
			Name:        t.Name,
			TsConfig:    tsconfig,
			Target:      firstNonEmpty(t.Target, opts.Target, config.DefaultScriptTarget),
			Module:      firstNonEmpty(t.Module, opts.Module, config.DefaultModule),
			Declaration: t.Declaration.Or(i == 0),
			SourceMap:   t.SourceMap.Or(cfg.SourceMap.IsTrue()),
		}
		switch {
		case t.OutDir != "":
			rt.OutDir = pathutil.Resolve(lib.OutDir, t.OutDir)
		case opts.OutDir != "":
			rt.OutDir = opts.OutDir
		default:
			rt.OutDir = lib.OutDir
		}
		out = append(out, rt)
	}
	return out, nil
}

// findTranspilation looks a pass up by name, or by index (default 0).
func findTranspilation(passes []ResolvedTranspilation, res config.EntryResolution) (ResolvedTranspilation, bool) {
	if res.TsTranspilationName != "" {
		for _, p := range passes {
			if p.Name == res.TsTranspilationName {
				return p, true
			}
		}
		return ResolvedTranspilation{}, false
	}
	idx := 0
	if res.TsTranspilationIndex != nil {
		idx = *res.TsTranspilationIndex
	}
	if idx < 0 || idx >= len(passes) {
		return ResolvedTranspilation{}, false
	}
	return passes[idx], true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
