// Package planner expands a resolved project config into an ordered Plan of
// build steps with computed paths, names and explicit dependencies.
package planner

import (
	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/entry"
	"github.com/josephgoksu/ngbuild/internal/pkgjson"
)

// StepKind identifies what a step does.
type StepKind string

const (
	KindClean       StepKind = "clean"
	KindTranspile   StepKind = "transpile"
	KindBundle      StepKind = "bundle"
	KindTransform   StepKind = "transform"
	KindMinify      StepKind = "minify"
	KindStyles      StepKind = "styles"
	KindScripts     StepKind = "scripts"
	KindAssets      StepKind = "assets"
	KindPackageJSON StepKind = "packageJson"
)

// StepRef is the ID of a step in the same plan.
type StepRef = string

// Well-known step IDs. Indexed steps use "<kind>:<index>".
const (
	StepClean       StepRef = "clean"
	StepStyles      StepRef = "styles"
	StepScripts     StepRef = "scripts"
	StepAssets      StepRef = "assets"
	StepPackageJSON StepRef = "package-json"
	StepAppBundle   StepRef = "app-bundle"
	StepDllBundle   StepRef = "dll-bundle"
)

// Plan is the ordered step list of one project.
type Plan struct {
	Project        string                  `json:"project" yaml:"project"`
	Type           config.ProjectType      `json:"type" yaml:"type"`
	SrcDir         string                  `json:"srcDir" yaml:"srcDir"`
	OutDir         string                  `json:"outDir" yaml:"outDir"`
	Steps          []Step                  `json:"steps" yaml:"steps"`
	Transpilations []ResolvedTranspilation `json:"transpilations,omitempty" yaml:"transpilations,omitempty"`
	Bundles        []ResolvedBundleTarget  `json:"bundles,omitempty" yaml:"bundles,omitempty"`
}

// Step returns the step with the given ID.
func (p *Plan) Step(id StepRef) (Step, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

// WatchSteps returns the steps re-run when sources change, in plan order:
// everything except clean and package.json.
func (p *Plan) WatchSteps() []Step {
	var out []Step
	for _, s := range p.Steps {
		switch s.Kind {
		case KindTranspile, KindBundle, KindTransform, KindMinify, KindStyles, KindScripts, KindAssets:
			out = append(out, s)
		}
	}
	return out
}

// Step is one unit of work. Exactly one payload field is set, matching Kind.
type Step struct {
	ID        StepRef   `json:"id" yaml:"id"`
	Kind      StepKind  `json:"kind" yaml:"kind"`
	Project   string    `json:"project" yaml:"project"`
	DependsOn []StepRef `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`

	Clean       *CleanStep       `json:"clean,omitempty" yaml:"clean,omitempty"`
	Transpile   *TranspileStep   `json:"transpile,omitempty" yaml:"transpile,omitempty"`
	Bundle      *BundleStep      `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	Transform   *TransformStep   `json:"transform,omitempty" yaml:"transform,omitempty"`
	Minify      *MinifyStep      `json:"minify,omitempty" yaml:"minify,omitempty"`
	Styles      *BundleSetStep   `json:"styles,omitempty" yaml:"styles,omitempty"`
	Scripts     *BundleSetStep   `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	Assets      *AssetsStep      `json:"assets,omitempty" yaml:"assets,omitempty"`
	PackageJSON *PackageJSONStep `json:"packageJson,omitempty" yaml:"packageJson,omitempty"`
}

// Outputs returns the files or directories the step writes.
func (s Step) Outputs() []string {
	switch {
	case s.Clean != nil:
		return nil
	case s.Transpile != nil:
		return []string{s.Transpile.OutDir}
	case s.Bundle != nil:
		return []string{s.Bundle.OutFile}
	case s.Transform != nil:
		return []string{s.Transform.Output}
	case s.Minify != nil:
		return []string{s.Minify.Output}
	case s.Styles != nil:
		return s.Styles.OutFiles()
	case s.Scripts != nil:
		return s.Scripts.OutFiles()
	case s.Assets != nil:
		return []string{s.Assets.OutDir}
	case s.PackageJSON != nil:
		return []string{s.PackageJSON.OutDir}
	}
	return nil
}

// CleanStep removes paths before the build. Exclude lists paths kept inside them.
type CleanStep struct {
	Paths   []string `json:"paths" yaml:"paths"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// TranspileStep runs one TypeScript emit pass.
type TranspileStep struct {
	ResolvedTranspilation `yaml:",inline"`
}

// BundleStep runs the module bundler for one output file.
type BundleStep struct {
	// Entry is the absolute entry file. Empty for dll bundles, which bundle Modules.
	Entry   string   `json:"entry,omitempty" yaml:"entry,omitempty"`
	Modules []string `json:"modules,omitempty" yaml:"modules,omitempty"`
	OutFile string   `json:"outFile" yaml:"outFile"`
	// Format is a library target: es, umd, commonjs or iife.
	Format       string            `json:"format" yaml:"format"`
	ScriptTarget string            `json:"scriptTarget" yaml:"scriptTarget"`
	GlobalName   string            `json:"globalName,omitempty" yaml:"globalName,omitempty"`
	Platform     string            `json:"platform" yaml:"platform"`
	TsConfig     string            `json:"tsconfig,omitempty" yaml:"tsconfig,omitempty"`
	Externals    []string          `json:"externals,omitempty" yaml:"externals,omitempty"`
	Define       map[string]string `json:"define,omitempty" yaml:"define,omitempty"`
	Banner       string            `json:"banner,omitempty" yaml:"banner,omitempty"`
	SourceMap    bool              `json:"sourceMap" yaml:"sourceMap"`
	Minify       bool              `json:"minify" yaml:"minify"`
	// VerifyEntry is set when the entry is produced by an earlier step and
	// must be checked right before the step runs.
	VerifyEntry bool `json:"verifyEntry,omitempty" yaml:"verifyEntry,omitempty"`
}

// TransformStep rewrites a JS file for another script target.
// When Input equals Output the result is written to TempPath and renamed.
type TransformStep struct {
	Input        string `json:"input" yaml:"input"`
	Output       string `json:"output" yaml:"output"`
	TempPath     string `json:"tempPath,omitempty" yaml:"tempPath,omitempty"`
	ScriptTarget string `json:"scriptTarget" yaml:"scriptTarget"`
	SourceMap    bool   `json:"sourceMap" yaml:"sourceMap"`
	VerifyInput  bool   `json:"verifyInput,omitempty" yaml:"verifyInput,omitempty"`
}

// MinifyStep writes a minified copy of Input to Output.
type MinifyStep struct {
	Input        string `json:"input" yaml:"input"`
	Output       string `json:"output" yaml:"output"`
	ScriptTarget string `json:"scriptTarget" yaml:"scriptTarget"`
	SourceMap    bool   `json:"sourceMap" yaml:"sourceMap"`
}

// NamedBundle is one global style or script output built from Sources in order.
type NamedBundle struct {
	Name    string   `json:"name" yaml:"name"`
	OutFile string   `json:"outFile" yaml:"outFile"`
	Sources []string `json:"sources" yaml:"sources"`
}

// BundleSetStep compiles global styles or concatenates global scripts.
type BundleSetStep struct {
	Bundles   []NamedBundle `json:"bundles" yaml:"bundles"`
	SourceMap bool          `json:"sourceMap" yaml:"sourceMap"`
	Minify    bool          `json:"minify" yaml:"minify"`
}

// OutFiles returns the output file of every bundle.
func (b *BundleSetStep) OutFiles() []string {
	out := make([]string, 0, len(b.Bundles))
	for _, nb := range b.Bundles {
		out = append(out, nb.OutFile)
	}
	return out
}

// AssetsStep copies asset entries into OutDir. Globs are expanded when the step runs.
type AssetsStep struct {
	Entries []entry.Entry `json:"entries" yaml:"entries"`
	OutDir  string        `json:"outDir" yaml:"outDir"`
}

// PackageJSONStep writes the library package.json.
type PackageJSONStep struct {
	OutDir string `json:"outDir" yaml:"outDir"`
	// Source is the discovered package.json, copied when Copy is set.
	Source      string              `json:"source,omitempty" yaml:"source,omitempty"`
	Copy        bool                `json:"copy" yaml:"copy"`
	Name        string              `json:"name,omitempty" yaml:"name,omitempty"`
	Version     string              `json:"version,omitempty" yaml:"version,omitempty"`
	Entrypoints pkgjson.Entrypoints `json:"entrypoints" yaml:"entrypoints"`
}
