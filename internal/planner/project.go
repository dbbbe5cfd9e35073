package planner

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/app"
	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/entry"
	"github.com/josephgoksu/ngbuild/internal/errs"
	"github.com/josephgoksu/ngbuild/internal/pathutil"
	"github.com/josephgoksu/ngbuild/internal/pkgjson"
	"github.com/josephgoksu/ngbuild/internal/resolve"
)

// Planner builds plans against the filesystem of a BuildContext.
type Planner struct {
	bc *app.BuildContext
}

// New creates a Planner.
func New(bc *app.BuildContext) *Planner {
	return &Planner{bc: bc}
}

// PlanProject expands one resolved project into a topologically sorted Plan.
// Libraries: clean, transpile passes, bundle/transform/minify per target,
// styles, scripts, assets, package.json. Apps: clean, styles, scripts, assets,
// app bundle. With the dll environment active an app plans its vendor bundle only.
func (p *Planner) PlanProject(ctx context.Context, project resolve.Project) (*Plan, error) {
	if project.Err != nil {
		return nil, project.Err
	}
	cfg := project.Config
	srcDir := p.bc.Abs(cfg.SrcDir)
	outDir := p.bc.Abs(cfg.OutDir)
	name := project.DisplayName()

	b := &stepBuilder{project: name}
	plan := &Plan{Project: name, Type: project.Type, SrcDir: srcDir, OutDir: outDir}

	clean, err := p.cleanStep(cfg, project.Path, srcDir, outDir)
	if err != nil {
		return nil, err
	}
	if clean != nil {
		b.add(Step{ID: StepClean, Kind: KindClean, Clean: clean})
	}

	if project.Type == config.ProjectTypeLib {
		if err := p.planLibrary(ctx, project, srcDir, outDir, b, plan); err != nil {
			return nil, err
		}
	} else {
		if err := p.planApp(ctx, project, srcDir, outDir, b); err != nil {
			return nil, err
		}
	}

	steps, err := TopologicalSort(b.steps)
	if err != nil {
		return nil, err
	}
	plan.Steps = steps
	p.bc.Logger.Debug("project planned",
		zap.String("project", name),
		zap.Int("steps", len(steps)),
		zap.Int("bundles", len(plan.Bundles)))
	return plan, nil
}

// stepBuilder collects steps; every step but clean depends on clean.
type stepBuilder struct {
	project  string
	steps    []Step
	hasClean bool
}

func (b *stepBuilder) add(s Step, deps ...StepRef) {
	s.Project = b.project
	if s.ID == StepClean {
		b.hasClean = true
	} else if b.hasClean {
		s.DependsOn = append(s.DependsOn, StepClean)
	}
	for _, d := range deps {
		if d != "" {
			s.DependsOn = append(s.DependsOn, d)
		}
	}
	b.steps = append(b.steps, s)
}

func (b *stepBuilder) ids(kinds ...StepKind) []StepRef {
	var out []StepRef
	for _, s := range b.steps {
		for _, k := range kinds {
			if s.Kind == k {
				out = append(out, s.ID)
			}
		}
	}
	return out
}

func (p *Planner) planLibrary(ctx context.Context, project resolve.Project, srcDir, outDir string, b *stepBuilder, plan *Plan) error {
	cfg := project.Config
	pkg, err := pkgjson.Discover(p.bc.Fs, srcDir, p.bc.ProjectRoot)
	if err != nil {
		return fmt.Errorf("discover package.json: %w", err)
	}
	if pkg == nil {
		p.bc.Logger.Debug("no package.json found", zap.String("project", b.project))
	}

	lib := &Library{Config: cfg, Path: project.Path, SrcDir: srcDir, OutDir: outDir, Package: pkg}
	lib.Transpilations, err = ResolveTranspilations(ctx, p.bc.Fs, lib)
	if err != nil {
		return err
	}
	for _, t := range lib.Transpilations {
		b.add(Step{ID: t.StepID(), Kind: KindTranspile, Transpile: &TranspileStep{ResolvedTranspilation: t}})
	}

	bundles, err := PlanBundles(ctx, p.bc.Fs, lib)
	if err != nil {
		return err
	}
	for _, rb := range bundles {
		if rb.Skipped {
			continue
		}
		addBundleSteps(b, cfg, rb)
	}
	plan.Transpilations = lib.Transpilations
	plan.Bundles = bundles

	if err := p.addGlobalSteps(cfg, project.Path, srcDir, outDir, b); err != nil {
		return err
	}

	if len(bundles) > 0 || len(lib.Transpilations) > 0 {
		step := packageJSONStep(cfg, outDir, pkg, lib.Transpilations, bundles)
		b.add(Step{ID: StepPackageJSON, Kind: KindPackageJSON, PackageJSON: step},
			b.ids(KindTranspile, KindBundle, KindTransform, KindMinify)...)
	}
	return nil
}

func addBundleSteps(b *stepBuilder, cfg config.ProjectConfig, rb ResolvedBundleTarget) {
	if !rb.TransformOnly {
		bundleTarget := rb.ScriptTarget
		if rb.NeedsTransform {
			bundleTarget = rb.ExpectedScriptTarget
		}
		b.add(Step{ID: rb.BundleStepID(), Kind: KindBundle, Bundle: &BundleStep{
			Entry:        rb.EntryFilePath,
			OutFile:      rb.OutputFilePath,
			Format:       rb.LibraryTarget,
			ScriptTarget: bundleTarget,
			GlobalName:   rb.UmdID,
			Platform:     cfg.PlatformTarget,
			Externals:    rb.Externals,
			Define:       cfg.Define,
			Banner:       cfg.Banner,
			SourceMap:    rb.SourceMap,
			VerifyEntry:  !rb.fromSource,
		}}, rb.DependsOn)
	}

	if rb.NeedsTransform || rb.TransformOnly {
		input, dep := rb.OutputFilePath, rb.BundleStepID()
		if rb.TransformOnly {
			input, dep = rb.EntryFilePath, rb.DependsOn
		}
		b.add(Step{ID: rb.TransformStepID(), Kind: KindTransform, Transform: &TransformStep{
			Input:        input,
			Output:       rb.OutputFilePath,
			TempPath:     rb.TransformTempPath,
			ScriptTarget: rb.ScriptTarget,
			SourceMap:    rb.SourceMap,
			VerifyInput:  rb.TransformOnly && !rb.fromSource,
		}}, dep)
	}

	if rb.MinifyFilePath != "" {
		b.add(Step{ID: rb.MinifyStepID(), Kind: KindMinify, Minify: &MinifyStep{
			Input:        rb.OutputFilePath,
			Output:       rb.MinifyFilePath,
			ScriptTarget: rb.ScriptTarget,
			SourceMap:    rb.SourceMap,
		}}, rb.OutputStepID())
	}
}

// packageJSONStep fills module entry fields from the bundle plan:
// main from the first umd or commonjs bundle, module from the first es bundle
// targeting es5 (else the first es bundle), es2015 from the first es bundle
// targeting es2015 and typings from the first declaration pass.
func packageJSONStep(cfg config.ProjectConfig, outDir string, pkg *pkgjson.Package, passes []ResolvedTranspilation, bundles []ResolvedBundleTarget) *PackageJSONStep {
	step := &PackageJSONStep{
		OutDir: outDir,
		Copy:   cfg.PackageJsonCopy.Or(true),
	}
	if cfg.PackageJsonOutDir != "" {
		step.OutDir = pathutil.Resolve(outDir, pathutil.ReplaceTokens(cfg.PackageJsonOutDir, namingTokens(pkg)))
	}
	if pkg != nil {
		step.Source, step.Name, step.Version = pkg.Path, pkg.Name, pkg.Version
	}

	var firstES string
	for _, rb := range bundles {
		if rb.Skipped {
			continue
		}
		ep := &step.Entrypoints
		switch rb.LibraryTarget {
		case config.LibraryTargetUMD, config.LibraryTargetCommonJS:
			if ep.Main == "" {
				ep.Main = rb.OutputFilePath
			}
		case config.LibraryTargetES:
			if firstES == "" {
				firstES = rb.OutputFilePath
			}
			if rb.ScriptTarget == "es5" && ep.Module == "" {
				ep.Module = rb.OutputFilePath
			}
			if rb.ScriptTarget == "es2015" && ep.ES2015 == "" {
				ep.ES2015 = rb.OutputFilePath
			}
		}
	}
	if step.Entrypoints.Module == "" {
		step.Entrypoints.Module = firstES
	}

	for _, t := range passes {
		if !t.Declaration {
			continue
		}
		entryName := "index"
		for _, rb := range bundles {
			if rb.DependsOn == t.StepID() {
				entryName = pathutil.StripExt(rb.EntryFilePath)
				break
			}
		}
		step.Entrypoints.Typings = pathutil.Resolve(t.OutDir, entryName+".d.ts")
		break
	}
	return step
}

func (p *Planner) planApp(ctx context.Context, project resolve.Project, srcDir, outDir string, b *stepBuilder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := project.Config

	if p.bc.Env.Has(config.EnvDll) {
		modules, err := entry.ParseDlls(cfg.Dlls, p.bc.ProjectRoot, project.Path+".dlls")
		if err != nil {
			return err
		}
		if len(modules) > 0 {
			names := make([]string, 0, len(modules))
			for _, m := range modules {
				names = append(names, m.From)
			}
			b.add(Step{ID: StepDllBundle, Kind: KindBundle, Bundle: &BundleStep{
				Modules:      names,
				OutFile:      pathutil.Resolve(outDir, config.DefaultDllBundle+".js"),
				Format:       appFormat(cfg.PlatformTarget),
				ScriptTarget: config.DefaultScriptTarget,
				Platform:     cfg.PlatformTarget,
				Define:       cfg.Define,
				SourceMap:    cfg.SourceMap.IsTrue(),
				Minify:       cfg.Optimization.IsTrue(),
			}})
			return nil
		}
		p.bc.Logger.Info("dll environment active but no dlls declared", zap.String("project", b.project))
	}

	if err := p.addGlobalSteps(cfg, project.Path, srcDir, outDir, b); err != nil {
		return err
	}

	entryFile := pathutil.Resolve(srcDir, cfg.Entry)
	exists, err := afero.Exists(p.bc.Fs, entryFile)
	if err != nil {
		return fmt.Errorf("check entry %s: %w", entryFile, err)
	}
	if !exists {
		return errs.InvalidConfig(project.Path+".entry", "entry file %s not found", entryFile)
	}

	scriptTarget := config.DefaultScriptTarget
	tsconfig := pathutil.Resolve(srcDir, cfg.TsConfig)
	if ok, _ := afero.Exists(p.bc.Fs, tsconfig); ok {
		opts, err := readCompilerOptions(p.bc.Fs, tsconfig)
		if err != nil {
			return errs.InvalidConfig(project.Path+".tsconfig", "%v", err)
		}
		scriptTarget = firstNonEmpty(opts.Target, scriptTarget)
	} else {
		tsconfig = ""
	}

	b.add(Step{ID: StepAppBundle, Kind: KindBundle, Bundle: &BundleStep{
		Entry:        entryFile,
		OutFile:      pathutil.Resolve(outDir, pathutil.StripExt(entryFile)+".js"),
		Format:       appFormat(cfg.PlatformTarget),
		ScriptTarget: scriptTarget,
		Platform:     cfg.PlatformTarget,
		TsConfig:     tsconfig,
		Externals:    cfg.Externals,
		Define:       cfg.Define,
		Banner:       cfg.Banner,
		SourceMap:    cfg.SourceMap.IsTrue(),
		Minify:       cfg.Optimization.IsTrue(),
	}})
	return nil
}

func appFormat(platform string) string {
	if platform == "node" {
		return config.LibraryTargetCommonJS
	}
	return config.LibraryTargetIIFE
}

// addGlobalSteps plans global styles, global scripts and assets.
func (p *Planner) addGlobalSteps(cfg config.ProjectConfig, path, srcDir, outDir string, b *stepBuilder) error {
	styles, err := entry.ParseStyles(cfg.Styles, srcDir, path+".styles")
	if err != nil {
		return err
	}
	if len(styles) > 0 {
		bundles, err := p.namedBundles(styles, path+".styles", config.DefaultStylesBundle, ".css", outDir)
		if err != nil {
			return err
		}
		b.add(Step{ID: StepStyles, Kind: KindStyles, Styles: &BundleSetStep{
			Bundles:   bundles,
			SourceMap: cfg.SourceMap.IsTrue(),
			Minify:    cfg.Optimization.IsTrue(),
		}})
	}

	scripts, err := entry.ParseScripts(cfg.Scripts, srcDir, path+".scripts")
	if err != nil {
		return err
	}
	if len(scripts) > 0 {
		bundles, err := p.namedBundles(scripts, path+".scripts", config.DefaultScriptsBundle, ".js", outDir)
		if err != nil {
			return err
		}
		b.add(Step{ID: StepScripts, Kind: KindScripts, Scripts: &BundleSetStep{
			Bundles: bundles,
			Minify:  cfg.Optimization.IsTrue(),
		}})
	}

	assets, err := entry.ParseAssets(cfg.Assets, srcDir, path+".assets")
	if err != nil {
		return err
	}
	if len(assets) > 0 {
		b.add(Step{ID: StepAssets, Kind: KindAssets, Assets: &AssetsStep{Entries: assets, OutDir: outDir}})
	}
	return nil
}

// namedBundles groups entries by bundle name ("to"), keeping first-seen order.
// Sources must exist.
func (p *Planner) namedBundles(entries []entry.Entry, field, defaultName, ext, outDir string) ([]NamedBundle, error) {
	var bundles []NamedBundle
	index := map[string]int{}
	for i, e := range entries {
		if e.IsGlob() {
			return nil, errs.InvalidConfig(fmt.Sprintf("%s[%d]", field, i), "glob patterns are not supported here")
		}
		src := e.Source()
		exists, err := afero.Exists(p.bc.Fs, src)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", src, err)
		}
		if !exists {
			return nil, errs.InvalidConfig(fmt.Sprintf("%s[%d]", field, i), "file %s not found", src)
		}

		name := e.To
		if name == "" {
			name = defaultName
		}
		pos, ok := index[name]
		if !ok {
			pos = len(bundles)
			index[name] = pos
			bundles = append(bundles, NamedBundle{Name: name, OutFile: pathutil.Resolve(outDir, name+ext)})
		}
		bundles[pos].Sources = append(bundles[pos].Sources, src)
	}
	return bundles, nil
}

// cleanStep plans output cleaning. Every path must stay inside the project
// root and must not be the project root, srcDir or a parent of srcDir.
func (p *Planner) cleanStep(cfg config.ProjectConfig, path, srcDir, outDir string) (*CleanStep, error) {
	if cfg.Clean == nil || cfg.Clean.BeforeBuild == nil {
		return nil, nil
	}
	opts := cfg.Clean.BeforeBuild
	step := &CleanStep{}
	if opts.CleanOutDir.Or(true) {
		if !pathutil.IsInFolder(p.bc.ProjectRoot, outDir) {
			return nil, errs.InvalidConfig(path+".outDir", "refusing to clean %s outside the project root", outDir)
		}
		step.Paths = append(step.Paths, outDir)
	}
	for i, rel := range opts.Paths {
		abs := pathutil.Resolve(outDir, rel)
		field := fmt.Sprintf("%s.clean.beforeBuild.paths[%d]", path, i)
		switch {
		case !pathutil.IsInFolder(p.bc.ProjectRoot, abs):
			return nil, errs.InvalidConfig(field, "clean path %s is outside the project root", abs)
		case pathutil.IsSamePath(abs, srcDir), pathutil.IsInFolder(abs, srcDir):
			return nil, errs.InvalidConfig(field, "clean path %s would remove srcDir", abs)
		}
		step.Paths = append(step.Paths, abs)
	}
	for _, rel := range opts.Exclude {
		step.Exclude = append(step.Exclude, pathutil.Resolve(outDir, rel))
	}
	if len(step.Paths) == 0 {
		return nil, nil
	}
	return step, nil
}
