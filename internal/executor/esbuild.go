package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

// ESBuild implements Bundler, Transformer and Minifier on top of esbuild.
// esbuild reads sources from disk; every output goes through fs.
type ESBuild struct {
	fs      afero.Fs
	workDir string
	logger  *zap.Logger
	es5     ES5Lowerer
}

// NewESBuild creates an esbuild-backed collaborator rooted at workDir.
func NewESBuild(fs afero.Fs, workDir string, logger *zap.Logger) *ESBuild {
	return &ESBuild{fs: fs, workDir: workDir, logger: logger}
}

// WithES5Lowering routes every es5 output through l. esbuild builds at es2015
// first and l lowers the result.
func (e *ESBuild) WithES5Lowering(l ES5Lowerer) *ESBuild {
	e.es5 = l
	return e
}

func (e *ESBuild) lowersES5(target string) bool {
	return e.es5 != nil && strings.EqualFold(target, "es5")
}

var scriptTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

func toTarget(t string) api.Target {
	if target, ok := scriptTargets[strings.ToLower(t)]; ok {
		return target
	}
	return api.ES2015
}

// toFormat maps a library target onto an esbuild format. umd has no esbuild
// equivalent and is emitted as an iife assigning GlobalName.
func toFormat(libraryTarget string) api.Format {
	switch libraryTarget {
	case "es":
		return api.FormatESModule
	case "commonjs":
		return api.FormatCommonJS
	case "umd", "iife":
		return api.FormatIIFE
	default:
		return api.FormatDefault
	}
}

func toPlatform(p string) api.Platform {
	if p == "node" {
		return api.PlatformNode
	}
	return api.PlatformBrowser
}

// Bundle runs an esbuild build and writes its output files through fs.
func (e *ESBuild) Bundle(ctx context.Context, cfg BundleConfig) (*BundleResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := toTarget(cfg.ScriptTarget)
	lower := e.lowersES5(cfg.ScriptTarget)
	if lower {
		target = api.ES2015
	}

	opts := api.BuildOptions{
		EntryPoints:   cfg.EntryPoints,
		Outfile:       cfg.OutFile,
		AbsWorkingDir: e.workDir,
		Bundle:        true,
		Write:         false,
		LogLevel:      api.LogLevelSilent,
		Format:        toFormat(cfg.Format),
		GlobalName:    cfg.GlobalName,
		Target:        target,
		Platform:      toPlatform(cfg.Platform),
		Tsconfig:      cfg.TsConfig,
		External:      cfg.Externals,
		Define:        cfg.Define,

		MinifyWhitespace:  cfg.Minify,
		MinifyIdentifiers: cfg.Minify,
		MinifySyntax:      cfg.Minify,
	}
	if cfg.SourceMap {
		opts.Sourcemap = api.SourceMapLinked
	}
	if cfg.Banner != "" {
		opts.Banner = map[string]string{"js": cfg.Banner}
	}
	if len(cfg.Modules) > 0 {
		var b strings.Builder
		for _, m := range cfg.Modules {
			fmt.Fprintf(&b, "import %q;\n", m)
		}
		resolveDir := cfg.ResolveDir
		if resolveDir == "" {
			resolveDir = e.workDir
		}
		opts.EntryPoints = nil
		opts.Stdin = &api.StdinOptions{
			Contents:   b.String(),
			ResolveDir: resolveDir,
			Sourcefile: "dll-entry.js",
			Loader:     api.LoaderJS,
		}
	}

	result := api.Build(opts)
	out := &BundleResult{Warnings: formatMessages(result.Warnings, api.WarningMessage)}
	if len(result.Errors) > 0 {
		out.HadErrors = true
		out.Errors = strings.Join(formatMessages(result.Errors, api.ErrorMessage), "\n")
		return out, nil
	}

	for _, f := range result.OutputFiles {
		if err := writeFile(e.fs, f.Path, f.Contents); err != nil {
			return out, err
		}
		out.Outputs = append(out.Outputs, f.Path)
	}
	if lower {
		err := e.es5.Lower(ctx, LowerRequest{Input: cfg.OutFile, Output: cfg.OutFile, SourceMap: cfg.SourceMap})
		if err != nil {
			return out, err
		}
	}
	e.logger.Debug("bundle written", zap.String("outfile", cfg.OutFile), zap.Int("files", len(out.Outputs)))
	return out, nil
}

// Transform rewrites a JS file for another script target. The module format is kept.
func (e *ESBuild) Transform(ctx context.Context, req TransformRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.lowersES5(req.ScriptTarget) {
		return e.es5.Lower(ctx, LowerRequest{Input: req.Input, Output: req.Output, SourceMap: req.SourceMap})
	}
	code, err := afero.ReadFile(e.fs, req.Input)
	if err != nil {
		return &errs.BundleError{Step: "transform", Message: fmt.Sprintf("read %s", req.Input), Err: err}
	}

	result := api.Transform(string(code), api.TransformOptions{
		Loader:     api.LoaderJS,
		Target:     toTarget(req.ScriptTarget),
		Sourcefile: filepath.Base(req.Input),
		Sourcemap:  sourceMapOption(req.SourceMap),
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return &errs.BundleError{Step: "transform", Message: strings.Join(formatMessages(result.Errors, api.ErrorMessage), "\n")}
	}

	target := req.Output
	if req.TempPath != "" {
		target = req.TempPath
	}
	if err := writeWithMap(e.fs, target, req.Output, result.Code, result.Map); err != nil {
		return &errs.BundleError{Step: "transform", Message: "write output", Err: err}
	}
	if req.TempPath != "" {
		if err := e.fs.Rename(req.TempPath, req.Output); err != nil {
			return &errs.BundleError{Step: "transform", Message: fmt.Sprintf("rename %s", req.TempPath), Err: err}
		}
	}
	return nil
}

// Minify writes a minified copy of a JS file.
func (e *ESBuild) Minify(ctx context.Context, req MinifyRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	code, err := afero.ReadFile(e.fs, req.Input)
	if err != nil {
		return &errs.BundleError{Step: "minify", Message: fmt.Sprintf("read %s", req.Input), Err: err}
	}
	result := e.minify(code, api.LoaderJS, filepath.Base(req.Input), req.SourceMap, req.ScriptTarget)
	if len(result.Errors) > 0 {
		return &errs.BundleError{Step: "minify", Message: strings.Join(formatMessages(result.Errors, api.ErrorMessage), "\n")}
	}
	if err := writeWithMap(e.fs, req.Output, req.Output, result.Code, result.Map); err != nil {
		return &errs.BundleError{Step: "minify", Message: "write output", Err: err}
	}
	return nil
}

// minify keeps the output within scriptTarget when one is given.
func (e *ESBuild) minify(code []byte, loader api.Loader, name string, sourceMap bool, scriptTarget string) api.TransformResult {
	target := api.DefaultTarget
	if scriptTarget != "" {
		target = toTarget(scriptTarget)
	}
	return api.Transform(string(code), api.TransformOptions{
		Loader:            loader,
		Target:            target,
		Sourcefile:        name,
		Sourcemap:         sourceMapOption(sourceMap),
		MinifyWhitespace:  true,
		MinifyIdentifiers: loader == api.LoaderJS,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
}

// BundleCSS bundles a plain CSS file, inlining its @import rules.
func (e *ESBuild) BundleCSS(ctx context.Context, src string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := api.Build(api.BuildOptions{
		EntryPoints:   []string{src},
		Outfile:       strings.TrimSuffix(src, filepath.Ext(src)) + ".out.css",
		AbsWorkingDir: e.workDir,
		Bundle:        true,
		Write:         false,
		LogLevel:      api.LogLevelSilent,
		Loader:        map[string]api.Loader{".css": api.LoaderCSS},
		External:      []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.woff", "*.woff2", "*.ttf", "*.eot"},
	})
	if len(result.Errors) > 0 {
		return nil, &errs.BundleError{Step: "styles", Message: strings.Join(formatMessages(result.Errors, api.ErrorMessage), "\n")}
	}
	for _, f := range result.OutputFiles {
		if filepath.Ext(f.Path) == ".css" {
			return f.Contents, nil
		}
	}
	return nil, &errs.BundleError{Step: "styles", Message: "no css output for " + src}
}

// MinifyCSS minifies a stylesheet.
func (e *ESBuild) MinifyCSS(css []byte, name string) ([]byte, error) {
	result := e.minify(css, api.LoaderCSS, name, false, "")
	if len(result.Errors) > 0 {
		return nil, &errs.BundleError{Step: "styles", Message: strings.Join(formatMessages(result.Errors, api.ErrorMessage), "\n")}
	}
	return result.Code, nil
}

func sourceMapOption(enabled bool) api.SourceMap {
	if enabled {
		return api.SourceMapExternal
	}
	return api.SourceMapNone
}

func formatMessages(msgs []api.Message, kind api.MessageKind) []string {
	if len(msgs) == 0 {
		return nil
	}
	return api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: kind})
}

// writeWithMap writes code to path and, when sourceMap is non-empty, writes
// "<final>.map" and links it from the code.
func writeWithMap(fs afero.Fs, path, final string, code, sourceMap []byte) error {
	if len(sourceMap) > 0 {
		mapPath := final + ".map"
		if err := writeFile(fs, mapPath, sourceMap); err != nil {
			return err
		}
		code = append(code, []byte("//# sourceMappingURL="+filepath.Base(mapPath)+"\n")...)
	}
	return writeFile(fs, path, code)
}

func writeFile(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
