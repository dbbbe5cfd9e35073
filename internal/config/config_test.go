package config

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

func TestBool_AcceptsStrings(t *testing.T) {
	var v struct {
		A *Bool `json:"a"`
		B *Bool `json:"b"`
		C *Bool `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": true, "b": "false", "c": " TRUE "}`), &v))
	assert.True(t, v.A.IsTrue())
	assert.True(t, v.B.IsFalse())
	assert.True(t, v.C.IsTrue())

	err := json.Unmarshal([]byte(`{"a": "yes please"}`), &v)
	assert.Error(t, err)

	var unset *Bool
	assert.True(t, unset.Or(true))
	assert.False(t, unset.IsTrue())
	assert.False(t, unset.IsFalse())
}

func TestStringList(t *testing.T) {
	var v struct {
		A StringList `json:"a"`
		B StringList `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "prod, aot", "b": ["dll"]}`), &v))
	assert.Equal(t, StringList{"prod", "aot"}, v.A)
	assert.Equal(t, StringList{"dll"}, v.B)
}

func TestParseManifest_JSONC(t *testing.T) {
	data := []byte(`{
		// comment
		"apps": [{"name": "web", "outDir": "dist/web",}],
		"libs": [{"name": "core", "outDir": "dist/core", "bundleTargets": [{"entry": "index.ts"}]}],
	}`)
	cfg, err := ParseManifest(data, false)
	require.NoError(t, err)
	require.Len(t, cfg.Apps, 1)
	require.Len(t, cfg.Libs, 1)
	assert.Equal(t, ProjectTypeApp, cfg.Apps[0].ProjectType)
	assert.Equal(t, ProjectTypeLib, cfg.Libs[0].ProjectType)
	assert.Equal(t, "index.ts", cfg.Libs[0].BundleTargets[0].Entry)
}

func TestParseManifest_Legacy(t *testing.T) {
	data := []byte(`{"project": {"name": "x"}, "apps": [{"root": "src", "main": "main.ts", "outDir": "dist"}]}`)
	cfg, err := ParseManifest(data, true)
	require.NoError(t, err)
	require.Len(t, cfg.Apps, 1)
	assert.Equal(t, "src", cfg.Apps[0].SrcDir)
	assert.Equal(t, "main.ts", cfg.Apps[0].Entry)
}

func TestParseManifest_Invalid(t *testing.T) {
	_, err := ParseManifest([]byte(`{"apps": 3}`), false)
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestFindManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := filepath.FromSlash("/work/project")
	_ = afero.WriteFile(fs, filepath.Join(root, "angular-build.json"), []byte(`{}`), 0644)
	_ = fs.MkdirAll(filepath.Join(root, "src", "app"), 0755)

	got, err := FindManifest(fs, filepath.Join(root, "src", "app"), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "angular-build.json"), got)

	got, err = FindManifest(fs, "/", filepath.Join(root, "angular-build.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "angular-build.json"), got)

	got, err = FindManifest(fs, root, ".")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "angular-build.json"), got)

	_, err = FindManifest(fs, root, "missing.json")
	assert.True(t, errors.Is(err, errs.ErrConfigNotFound))

	_, err = FindManifest(afero.NewMemMapFs(), root, "")
	assert.True(t, errors.Is(err, errs.ErrConfigNotFound))
}

func TestOverlay_TargetFieldsWin(t *testing.T) {
	base := ProjectConfig{
		Name:      "base",
		SrcDir:    "src",
		OutDir:    "dist/base",
		Banner:    "/* base */",
		Externals: []string{"rxjs"},
	}
	over := ProjectConfig{
		Name:    "child",
		Extends: "base",
		OutDir:  "dist/child",
	}

	got := Overlay(base, over)
	assert.Equal(t, "child", got.Name)
	assert.Equal(t, "base", got.Extends)
	assert.Equal(t, "src", got.SrcDir)
	assert.Equal(t, "dist/child", got.OutDir)
	assert.Equal(t, "/* base */", got.Banner)
	assert.Equal(t, []string{"rxjs"}, got.Externals)
	assert.Empty(t, got.Entry, "unset in both stays unset")

	got.Externals[0] = "mutated"
	assert.Equal(t, "rxjs", base.Externals[0], "overlay must not alias base slices")
}

func TestOverlayEnv_DeniedKeysAndIdempotence(t *testing.T) {
	base := ProjectConfig{Name: "core", Extends: "shared", OutDir: "dist", SourceMap: BoolPtr(true)}
	block := ProjectConfig{Name: "hijack", Extends: "other", OutDir: "dist/prod", SourceMap: BoolPtr(false),
		EnvOverrides: map[string]ProjectConfig{"x": {}}}

	once := OverlayEnv(base, block)
	assert.Equal(t, "core", once.Name)
	assert.Equal(t, "shared", once.Extends)
	assert.Nil(t, once.EnvOverrides)
	assert.Equal(t, "dist/prod", once.OutDir)
	assert.True(t, once.SourceMap.IsFalse())

	twice := OverlayEnv(once, block)
	assert.Equal(t, once, twice)
}

func TestNormalizeEnvironment(t *testing.T) {
	env := NormalizeEnvironment([]string{"Production,aot"}, false)
	assert.True(t, env.Prod())
	assert.False(t, env.Dev())
	assert.True(t, env.Has("aot"))
	assert.Equal(t, []string{"prod", "aot"}, env.Ordered())

	env = NormalizeEnvironment(nil, false)
	assert.True(t, env.Dev())
	assert.Equal(t, "dev", env.String())

	env = NormalizeEnvironment([]string{"dev", "prod"}, false)
	assert.Equal(t, []string{"prod"}, env.Ordered(), "prod and dev are mutually exclusive")

	env = NormalizeEnvironment([]string{"zeta", "Staging", "dll", "aot=false", "aot"}, true)
	assert.Equal(t, []string{"prod", "aot", "dll", "Staging", "zeta"}, env.Ordered())

	env = NormalizeEnvironment([]string{"aot", "aot=false"}, false)
	assert.False(t, env.Has("aot"))
}

func TestCanonicalEnvName(t *testing.T) {
	assert.Equal(t, "prod", CanonicalEnvName("PRODUCTION"))
	assert.Equal(t, "dev", CanonicalEnvName("development"))
	assert.Equal(t, "aot", CanonicalEnvName("env.AOT"))
	assert.Equal(t, "MyEnv", CanonicalEnvName(" MyEnv "))
}

func TestValidateSchema(t *testing.T) {
	cfg := &AngularBuildConfig{
		Libs: []ProjectConfig{{
			OutDir:        "dist",
			BundleTargets: []BundleTarget{{Entry: "index.js"}, {LibraryTarget: "amd"}},
		}},
	}
	err := ValidateSchema(cfg)
	var cfgErr *errs.InvalidConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "libs[0].bundleTargets[1].libraryTarget", cfgErr.Path)

	cfg.Libs[0].BundleTargets[1].LibraryTarget = "umd"
	cfg.Libs[0].BundleTargets[1].ScriptTarget = "es3"
	require.ErrorAs(t, ValidateSchema(cfg), &cfgErr)
	assert.Equal(t, "libs[0].bundleTargets[1].scriptTarget", cfgErr.Path)

	cfg.Libs[0].BundleTargets[1].ScriptTarget = "es5"
	assert.NoError(t, ValidateSchema(cfg))

	cfg.Apps = []ProjectConfig{{OutDir: "dist/app", BundleTargets: []BundleTarget{{}}}}
	require.ErrorAs(t, ValidateSchema(cfg), &cfgErr)
	assert.Equal(t, "apps[0]", cfgErr.Path)
}

func TestValidateBuildOptions(t *testing.T) {
	assert.NoError(t, ValidateBuildOptions(&BuildOptions{LogLevel: "debug"}))
	assert.Error(t, ValidateBuildOptions(&BuildOptions{LogLevel: "loud"}))
	assert.Error(t, ValidateBuildOptions(&BuildOptions{Poll: -1}))
}

func TestApplyDefaults(t *testing.T) {
	prod := NormalizeEnvironment(nil, true)
	lib := ProjectConfig{
		ProjectType:      ProjectTypeLib,
		OutDir:           "dist",
		TsTranspilations: []TsTranspilation{{OutDir: "esm2015"}, {OutDir: "esm5", Target: "es5"}},
		BundleTargets:    []BundleTarget{{Entry: "index.js"}},
	}
	got := ApplyDefaults(lib, prod)

	assert.True(t, got.SourceMap.IsFalse())
	assert.True(t, got.Optimization.IsTrue())
	assert.True(t, got.Clean.BeforeBuild.CleanOutDir.IsTrue())
	assert.True(t, got.PackageJsonCopy.IsTrue())
	assert.Equal(t, DefaultTsConfig, got.TsTranspilations[0].TsConfig)
	assert.True(t, got.TsTranspilations[0].Declaration.IsTrue())
	assert.True(t, got.TsTranspilations[1].Declaration.IsFalse())
	assert.Equal(t, "esm2015", got.TsTranspilations[0].Name)
	assert.Empty(t, got.BundleTargets[0].LibraryTarget, "library target is defaulted by the planner")
	assert.True(t, got.BundleTargets[0].SourceMap.IsFalse())

	assert.Nil(t, lib.BundleTargets[0].SourceMap, "defaults must not leak into the input")

	app := ApplyDefaults(ProjectConfig{ProjectType: ProjectTypeApp, OutDir: "dist"}, NormalizeEnvironment(nil, false))
	assert.Equal(t, DefaultAppEntry, app.Entry)
	assert.True(t, app.SourceMap.IsTrue())
	assert.Equal(t, "web", app.PlatformTarget)
}
