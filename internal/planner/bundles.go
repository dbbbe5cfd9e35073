package planner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/errs"
	"github.com/josephgoksu/ngbuild/internal/pathutil"
	"github.com/josephgoksu/ngbuild/internal/pkgjson"
)

// Library is the planner input for one library project.
type Library struct {
	Config config.ProjectConfig
	// Path is the config path of the project, e.g. "libs[0]".
	Path   string
	SrcDir string
	OutDir string
	// Package is the discovered package.json, nil when none exists.
	Package        *pkgjson.Package
	Transpilations []ResolvedTranspilation
}

// ResolvedBundleTarget is the fully computed form of one declared bundle target.
type ResolvedBundleTarget struct {
	Index          int    `json:"index" yaml:"index"`
	Name           string `json:"name,omitempty" yaml:"name,omitempty"`
	EntryFilePath  string `json:"entryFilePath" yaml:"entryFilePath"`
	OutputFilePath string `json:"outputFilePath" yaml:"outputFilePath"`
	LibraryTarget  string `json:"libraryTarget" yaml:"libraryTarget"`
	ScriptTarget   string `json:"scriptTarget" yaml:"scriptTarget"`
	// ExpectedScriptTarget is the script target the entry is believed to be written in.
	ExpectedScriptTarget string `json:"expectedScriptTarget,omitempty" yaml:"expectedScriptTarget,omitempty"`
	// ExactScriptTarget is false when ExpectedScriptTarget was guessed from file names.
	ExactScriptTarget bool `json:"exactScriptTarget" yaml:"exactScriptTarget"`
	// DependsOn is the step producing the entry file, empty for source entries.
	DependsOn         StepRef  `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	NeedsTransform    bool     `json:"needsTransform" yaml:"needsTransform"`
	TransformOnly     bool     `json:"transformOnly,omitempty" yaml:"transformOnly,omitempty"`
	TransformTempPath string   `json:"transformTempPath,omitempty" yaml:"transformTempPath,omitempty"`
	MinifyFilePath    string   `json:"minifyFilePath,omitempty" yaml:"minifyFilePath,omitempty"`
	UmdID             string   `json:"umdId,omitempty" yaml:"umdId,omitempty"`
	Externals         []string `json:"externals,omitempty" yaml:"externals,omitempty"`
	SourceMap         bool     `json:"sourceMap" yaml:"sourceMap"`
	// Skipped targets keep their index but produce no steps.
	Skipped bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// fromSource is set for entries under srcDir.
	fromSource bool
}

// BundleStepID returns the ID of the bundle step of the target.
func (b ResolvedBundleTarget) BundleStepID() StepRef {
	return fmt.Sprintf("%s:%d", KindBundle, b.Index)
}

// TransformStepID returns the ID of the transform step of the target.
func (b ResolvedBundleTarget) TransformStepID() StepRef {
	return fmt.Sprintf("%s:%d", KindTransform, b.Index)
}

// MinifyStepID returns the ID of the minify step of the target.
func (b ResolvedBundleTarget) MinifyStepID() StepRef {
	return fmt.Sprintf("%s:%d", KindMinify, b.Index)
}

// OutputStepID returns the step that leaves OutputFilePath in its final state.
func (b ResolvedBundleTarget) OutputStepID() StepRef {
	if b.NeedsTransform || b.TransformOnly {
		return b.TransformStepID()
	}
	return b.BundleStepID()
}

// PlanBundles resolves every bundle target of lib in declaration order.
// Entries under srcDir must exist; entries under output roots are produced
// by earlier steps and are checked when the build runs.
func PlanBundles(ctx context.Context, fs afero.Fs, lib *Library) ([]ResolvedBundleTarget, error) {
	targets := lib.Config.BundleTargets
	resolved := make([]ResolvedBundleTarget, 0, len(targets))
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rb, err := planBundle(fs, lib, i, target, resolved)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rb)
	}
	return resolved, nil
}

func planBundle(fs afero.Fs, lib *Library, index int, target config.BundleTarget, prev []ResolvedBundleTarget) (ResolvedBundleTarget, error) {
	field := fmt.Sprintf("%s.bundleTargets[%d]", lib.Path, index)
	rb := ResolvedBundleTarget{
		Index:     index,
		Name:      target.Name,
		Skipped:   target.Skip.IsTrue(),
		Externals: mergeExternals(lib.Config.Externals, target.Externals),
		SourceMap: target.SourceMap.Or(lib.Config.SourceMap.IsTrue()),
	}

	// 1. entry and expected script target
	if err := resolveEntry(fs, lib, field, target, prev, &rb); err != nil {
		return rb, err
	}

	// 2. final script target
	rb.LibraryTarget = target.LibraryTarget
	if rb.LibraryTarget == "" {
		rb.LibraryTarget = config.DefaultLibraryTarget
	}
	rb.ScriptTarget = firstNonEmpty(target.ScriptTarget, rb.ExpectedScriptTarget, config.DefaultScriptTarget)

	// 3. output directory
	tokens := namingTokens(lib.Package)
	outDir := lib.OutDir
	if target.OutDir != "" {
		outDir = pathutil.Resolve(lib.OutDir, pathutil.ReplaceTokens(target.OutDir, tokens))
	}

	// 4-5. file name
	suffix := formatSuffix(outDir, index, target, rb.LibraryTarget, rb.ScriptTarget)
	rb.OutputFilePath = filepath.Join(outDir, outputFileName(target, rb.LibraryTarget, suffix, rb.EntryFilePath, lib.Package))

	if rb.LibraryTarget == config.LibraryTargetUMD || rb.LibraryTarget == config.LibraryTargetIIFE {
		rb.UmdID = target.UmdID
		if rb.UmdID == "" {
			rb.UmdID = umdGlobalName(lib.Package, pathutil.StripExt(rb.EntryFilePath))
		}
	}

	// 6. transform
	if target.TransformScriptTargetOnly.IsTrue() {
		if target.ScriptTarget == "" {
			return rb, errs.InvalidConfig(field+".scriptTarget", "scriptTarget is required when transformScriptTargetOnly is set")
		}
		rb.TransformOnly = true
	} else if rb.ExpectedScriptTarget != "" && rb.ExpectedScriptTarget != rb.ScriptTarget {
		rb.NeedsTransform = true
	}
	if rb.NeedsTransform || (rb.TransformOnly && pathutil.IsSamePath(rb.EntryFilePath, rb.OutputFilePath)) {
		rb.TransformTempPath = rb.OutputFilePath + ".tmp"
	}

	// 7. minify
	if rb.LibraryTarget == config.LibraryTargetUMD && rb.ScriptTarget == "es5" {
		rb.MinifyFilePath = minifiedPath(rb.OutputFilePath)
	}
	return rb, nil
}

func resolveEntry(fs afero.Fs, lib *Library, field string, target config.BundleTarget, prev []ResolvedBundleTarget, rb *ResolvedBundleTarget) error {
	res := target.ResolvedEntry()
	entryField := field + ".entry"

	switch res.EntryRoot {
	case config.EntryRootTsTranspilationOutDir:
		if target.Entry == "" {
			return errs.InvalidConfig(entryField, "entry is required")
		}
		pass, ok := findTranspilation(lib.Transpilations, res)
		if !ok {
			return errs.InvalidConfig(field+".entryResolution", "no tsTranspilation matches %s", describeTranspilationRef(res))
		}
		rb.EntryFilePath = pathutil.Resolve(pass.OutDir, target.Entry)
		rb.ExpectedScriptTarget = pass.Target
		rb.ExactScriptTarget = true
		rb.DependsOn = pass.StepID()

	case config.EntryRootBundleTargetOutDir, config.EntryRootPrevBundleOutDir:
		ref := rb.Index - 1
		if res.BundleTargetIndex != nil {
			ref = *res.BundleTargetIndex
		}
		if ref < 0 || ref >= rb.Index || ref >= len(prev) {
			return errs.InvalidConfig(field+".entryResolution.bundleTargetIndex", "bundle target %d has no previous bundle target %d", rb.Index, ref)
		}
		upstream := prev[ref]
		if upstream.Skipped {
			return errs.InvalidConfig(field+".entryResolution.bundleTargetIndex", "bundle target %d is skipped", ref)
		}
		rb.EntryFilePath = upstream.OutputFilePath
		if target.Entry != "" {
			rb.EntryFilePath = pathutil.Resolve(filepath.Dir(upstream.OutputFilePath), target.Entry)
		}
		rb.ExpectedScriptTarget = upstream.ScriptTarget
		rb.ExactScriptTarget = true
		rb.DependsOn = upstream.OutputStepID()

	case config.EntryRootOutDir:
		if target.Entry == "" {
			return errs.InvalidConfig(entryField, "entry is required")
		}
		rb.EntryFilePath = pathutil.Resolve(lib.OutDir, target.Entry)
		rb.ExpectedScriptTarget = inferScriptTarget(target.Entry)
		if len(lib.Transpilations) > 0 {
			rb.DependsOn = lib.Transpilations[len(lib.Transpilations)-1].StepID()
		}

	default:
		if target.Entry == "" {
			return errs.InvalidConfig(entryField, "entry is required")
		}
		rb.EntryFilePath = pathutil.Resolve(lib.SrcDir, target.Entry)
		rb.fromSource = true
		exists, err := afero.Exists(fs, rb.EntryFilePath)
		if err != nil {
			return fmt.Errorf("check entry %s: %w", rb.EntryFilePath, err)
		}
		if !exists {
			return errs.InvalidConfig(entryField, "entry file %s not found", rb.EntryFilePath)
		}
	}
	return nil
}

func describeTranspilationRef(res config.EntryResolution) string {
	if res.TsTranspilationName != "" {
		return fmt.Sprintf("name %q", res.TsTranspilationName)
	}
	idx := 0
	if res.TsTranspilationIndex != nil {
		idx = *res.TsTranspilationIndex
	}
	return fmt.Sprintf("index %d", idx)
}

func mergeExternals(project, target []string) []string {
	if len(target) == 0 {
		return project
	}
	out := make([]string, 0, len(project)+len(target))
	seen := make(map[string]bool, len(project)+len(target))
	for _, list := range [][]string{project, target} {
		for _, e := range list {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}
