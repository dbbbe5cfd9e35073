// Package executor provides the collaborators that do the actual work of a
// build step: bundling, TypeScript compilation, script-target transforms,
// minification, style compilation and asset copying.
package executor

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/entry"
)

// BundleConfig is the resolved input of one bundler invocation.
type BundleConfig struct {
	// EntryPoints are absolute entry files. Modules are bundled instead when set.
	EntryPoints []string
	Modules     []string
	// ResolveDir is where Modules are resolved from.
	ResolveDir string
	OutFile    string
	// Format is a library target: es, umd, commonjs or iife.
	Format       string
	ScriptTarget string
	GlobalName   string
	Platform     string
	TsConfig     string
	Externals    []string
	Define       map[string]string
	Banner       string
	SourceMap    bool
	Minify       bool
}

// BundleResult reports the outcome of a bundler run. Compilation problems
// set HadErrors; the error return is kept for failures to run at all.
type BundleResult struct {
	HadErrors bool
	Errors    string
	Warnings  []string
	Outputs   []string
}

// Bundler bundles an entry graph into one output file.
type Bundler interface {
	Bundle(ctx context.Context, cfg BundleConfig) (*BundleResult, error)
}

// CompileRequest describes one TypeScript emit pass.
type CompileRequest struct {
	TsConfig    string
	Target      string
	Module      string
	Declaration bool
	SourceMap   bool
	OutDir      string
}

// Compiler runs the TypeScript compiler. Failures are *errs.TypescriptCompileError.
type Compiler interface {
	Compile(ctx context.Context, req CompileRequest) error
}

// TransformRequest rewrites Input for ScriptTarget. When TempPath is set the
// result is written there first and then renamed to Output.
type TransformRequest struct {
	Input        string
	Output       string
	TempPath     string
	ScriptTarget string
	SourceMap    bool
}

// Transformer lowers or raises the script target of a JS file.
type Transformer interface {
	Transform(ctx context.Context, req TransformRequest) error
}

// MinifyRequest writes a minified copy of Input to Output. ScriptTarget, when
// set, bounds the syntax the minifier may emit.
type MinifyRequest struct {
	Input        string
	Output       string
	ScriptTarget string
	SourceMap    bool
}

// Minifier minifies JS files.
type Minifier interface {
	Minify(ctx context.Context, req MinifyRequest) error
}

// StyleRequest compiles Sources in order into one stylesheet.
type StyleRequest struct {
	Sources   []string
	OutFile   string
	Minify    bool
	SourceMap bool
}

// StyleCompiler emits CSS for global stylesheets.
type StyleCompiler interface {
	CompileStyles(ctx context.Context, req StyleRequest) error
}

// AssetCopier copies asset entries into an output directory and returns the
// number of files copied.
type AssetCopier interface {
	Copy(ctx context.Context, entries []entry.Entry, outDir string) (int, error)
}

// Toolchain groups the collaborators used by the orchestrator.
type Toolchain struct {
	Bundler     Bundler
	Compiler    Compiler
	Transformer Transformer
	Minifier    Minifier
	Styles      StyleCompiler
	Assets      AssetCopier
}

// NewToolchain returns the default collaborators: esbuild for bundling,
// transforms, minification and CSS; tsc, sass and lessc from node_modules/.bin
// or PATH; an afero-backed asset copier.
func NewToolchain(fs afero.Fs, projectRoot string, logger *zap.Logger) Toolchain {
	if logger == nil {
		logger = zap.NewNop()
	}
	tools := NewTools(fs, projectRoot, ExecRunner)
	es := NewESBuild(fs, projectRoot, logger).WithES5Lowering(NewTSCLowerer(fs, tools, logger))
	return Toolchain{
		Bundler:     es,
		Compiler:    NewTSC(tools, logger),
		Transformer: es,
		Minifier:    es,
		Styles:      NewStyleCompiler(fs, es, tools),
		Assets:      NewCopier(fs, DefaultCopyConcurrency),
	}
}
