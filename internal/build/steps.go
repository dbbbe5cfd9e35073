package build

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/errs"
	"github.com/josephgoksu/ngbuild/internal/executor"
	"github.com/josephgoksu/ngbuild/internal/pkgjson"
	"github.com/josephgoksu/ngbuild/internal/planner"
)

func (o *Orchestrator) runStep(ctx context.Context, step planner.Step) error {
	switch {
	case step.Clean != nil:
		return executor.Clean(o.bc.Fs, step.Clean.Paths, step.Clean.Exclude)
	case step.Transpile != nil:
		t := step.Transpile
		return o.tools.Compiler.Compile(ctx, executor.CompileRequest{
			TsConfig:    t.TsConfig,
			Target:      t.Target,
			Module:      t.Module,
			Declaration: t.Declaration,
			SourceMap:   t.SourceMap,
			OutDir:      t.OutDir,
		})
	case step.Bundle != nil:
		return o.bundle(ctx, step.ID, step.Bundle)
	case step.Transform != nil:
		t := step.Transform
		if t.VerifyInput {
			if err := o.requireFile(step.ID, t.Input); err != nil {
				return err
			}
		}
		return o.tools.Transformer.Transform(ctx, executor.TransformRequest{
			Input:        t.Input,
			Output:       t.Output,
			TempPath:     t.TempPath,
			ScriptTarget: t.ScriptTarget,
			SourceMap:    t.SourceMap,
		})
	case step.Minify != nil:
		return o.tools.Minifier.Minify(ctx, executor.MinifyRequest{
			Input:        step.Minify.Input,
			Output:       step.Minify.Output,
			ScriptTarget: step.Minify.ScriptTarget,
			SourceMap:    step.Minify.SourceMap,
		})
	case step.Styles != nil:
		for _, b := range step.Styles.Bundles {
			err := o.tools.Styles.CompileStyles(ctx, executor.StyleRequest{
				Sources:   b.Sources,
				OutFile:   b.OutFile,
				Minify:    step.Styles.Minify,
				SourceMap: step.Styles.SourceMap,
			})
			if err != nil {
				return err
			}
		}
		return nil
	case step.Scripts != nil:
		return o.scripts(ctx, step.Scripts)
	case step.Assets != nil:
		n, err := o.tools.Assets.Copy(ctx, step.Assets.Entries, step.Assets.OutDir)
		if err != nil {
			return err
		}
		o.bc.Logger.Debug("assets copied", zap.Int("files", n))
		return nil
	case step.PackageJSON != nil:
		return o.packageJSON(step.PackageJSON)
	}
	return errs.Internal("step %s has no payload", step.ID)
}

func (o *Orchestrator) bundle(ctx context.Context, id string, b *planner.BundleStep) error {
	if b.VerifyEntry {
		if err := o.requireFile(id, b.Entry); err != nil {
			return err
		}
	}
	cfg := executor.BundleConfig{
		Modules:      b.Modules,
		ResolveDir:   o.bc.ProjectRoot,
		OutFile:      b.OutFile,
		Format:       b.Format,
		ScriptTarget: b.ScriptTarget,
		GlobalName:   b.GlobalName,
		Platform:     b.Platform,
		TsConfig:     b.TsConfig,
		Externals:    b.Externals,
		Define:       b.Define,
		Banner:       b.Banner,
		SourceMap:    b.SourceMap,
		Minify:       b.Minify,
	}
	if b.Entry != "" {
		cfg.EntryPoints = []string{b.Entry}
	}

	res, err := o.tools.Bundler.Bundle(ctx, cfg)
	if err != nil {
		return &errs.BundleError{Step: id, Err: err}
	}
	if res == nil {
		return errs.Internal("bundler returned no result for %s", id)
	}
	for _, w := range res.Warnings {
		o.bc.Logger.Warn("bundler warning", zap.String("step", id), zap.String("warning", w))
	}
	if res.HadErrors {
		return &errs.BundleError{Step: id, Message: res.Errors}
	}
	return nil
}

// requireFile fails when an entry produced by an earlier step is missing.
func (o *Orchestrator) requireFile(id, p string) error {
	ok, err := afero.Exists(o.bc.Fs, p)
	if err != nil {
		return fmt.Errorf("check %s: %w", p, err)
	}
	if !ok {
		return &errs.BundleError{Step: id, Message: fmt.Sprintf("entry file %s does not exist", p)}
	}
	return nil
}

// scripts concatenates global scripts into one file per bundle.
func (o *Orchestrator) scripts(ctx context.Context, s *planner.BundleSetStep) error {
	for _, b := range s.Bundles {
		var buf bytes.Buffer
		for _, src := range b.Sources {
			data, err := afero.ReadFile(o.bc.Fs, src)
			if err != nil {
				return fmt.Errorf("read script %s: %w", src, err)
			}
			buf.Write(data)
			buf.WriteString("\n;\n")
		}
		if err := o.bc.Fs.MkdirAll(filepath.Dir(b.OutFile), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		if err := afero.WriteFile(o.bc.Fs, b.OutFile, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", b.OutFile, err)
		}
		if s.Minify {
			err := o.tools.Minifier.Minify(ctx, executor.MinifyRequest{Input: b.OutFile, Output: b.OutFile})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) packageJSON(s *planner.PackageJSONStep) error {
	base := &pkgjson.Package{Data: map[string]any{}}
	if s.Copy && s.Source != "" {
		loaded, err := pkgjson.Load(o.bc.Fs, s.Source)
		if err != nil {
			return err
		}
		base = loaded
	} else {
		if s.Name != "" {
			base.Data["name"] = s.Name
		}
		if s.Version != "" {
			base.Data["version"] = s.Version
		}
	}

	content, err := pkgjson.Synthesize(base, s.OutDir, s.Entrypoints)
	if err != nil {
		return err
	}
	p, err := pkgjson.Write(o.bc.Fs, s.OutDir, content)
	if err != nil {
		return err
	}
	o.bc.Logger.Debug("package.json written", zap.String("path", p))
	return nil
}
