package resolve

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/errs"
)

var projectRoot = filepath.FromSlash("/work/project")

func TestResolveExtends(t *testing.T) {
	base := config.ProjectConfig{Name: "base", SrcDir: "src", OutDir: "dist/base", Banner: "b", Extends: "grandparent"}
	child := config.ProjectConfig{Name: "child", Extends: "base", OutDir: "dist/child"}
	siblings := []config.ProjectConfig{base, child}

	got, found, err := ResolveExtends(siblings, child, "apps[1]", true)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "child", got.Name)
	assert.Equal(t, "base", got.Extends, "extends is the target's own")
	assert.Equal(t, "src", got.SrcDir)
	assert.Equal(t, "dist/child", got.OutDir)
	assert.Equal(t, "b", got.Banner)
	assert.Empty(t, got.Entry)
}

func TestResolveExtends_Unresolved(t *testing.T) {
	orphan := config.ProjectConfig{Name: "orphan", Extends: "missing", OutDir: "dist", ProjectType: config.ProjectTypeApp}

	_, _, err := ResolveExtends(nil, orphan, "apps[0]", true)
	var cfgErr *errs.InvalidConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "apps[0].extends", cfgErr.Path)

	got, found, err := ResolveExtends(nil, orphan, "apps[0]", false)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, orphan, got)

	self := config.ProjectConfig{Name: "loop", Extends: "loop", OutDir: "dist"}
	_, _, err = ResolveExtends([]config.ProjectConfig{self}, self, "libs[0]", true)
	assert.True(t, errs.IsInvalidConfig(err))
}

func TestApplyEnvOverrides_Precedence(t *testing.T) {
	cfg := config.ProjectConfig{
		Name:   "core",
		OutDir: "dist",
		Banner: "base",
		EnvOverrides: map[string]config.ProjectConfig{
			"production": {Banner: "prod", OutDir: "dist/prod"},
			"aot":        {Banner: "aot", Name: "renamed", Extends: "other"},
			"custom":     {Banner: "custom"},
			"dev":        {Banner: "dev"},
		},
	}

	env := config.NormalizeEnvironment([]string{"aot", "prod"}, false)
	got, applied := ApplyEnvOverrides(cfg, env)
	assert.Equal(t, []string{"production", "aot"}, applied)
	assert.Equal(t, "aot", got.Banner, "aot is applied after prod")
	assert.Equal(t, "dist/prod", got.OutDir)
	assert.Equal(t, "core", got.Name, "name is never overridden")
	assert.Empty(t, got.Extends, "extends is never overridden")

	again, _ := ApplyEnvOverrides(got, env)
	assert.Equal(t, got.Banner, again.Banner)
	assert.Equal(t, got.OutDir, again.OutDir)

	got, applied = ApplyEnvOverrides(cfg, config.NormalizeEnvironment([]string{"custom"}, false))
	assert.Equal(t, []string{"dev", "custom"}, applied)
	assert.Equal(t, "custom", got.Banner)
}

func TestApplyEnvOverrides_KeyMatching(t *testing.T) {
	cfg := config.ProjectConfig{
		OutDir: "dist",
		EnvOverrides: map[string]config.ProjectConfig{
			"PROD":    {Banner: "prod"},
			"Staging": {OutDir: "dist/staging"},
		},
	}

	got, applied := ApplyEnvOverrides(cfg, config.NormalizeEnvironment([]string{"production", "staging"}, false))
	assert.Equal(t, []string{"PROD"}, applied, "built-in names match in any case, custom names match literally")
	assert.Equal(t, "prod", got.Banner)
	assert.Equal(t, "dist", got.OutDir)

	got, applied = ApplyEnvOverrides(cfg, config.NormalizeEnvironment([]string{"Staging"}, false))
	assert.Equal(t, []string{"Staging"}, applied)
	assert.Equal(t, "dist/staging", got.OutDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ProjectConfig
		wantErr bool
	}{
		{"normal layout", config.ProjectConfig{SrcDir: "src", OutDir: "dist"}, false},
		{"nested out dir", config.ProjectConfig{SrcDir: "projects/core/src", OutDir: "dist/core"}, false},
		{"missing outDir", config.ProjectConfig{SrcDir: "src"}, true},
		{"dot outDir", config.ProjectConfig{SrcDir: "src", OutDir: "."}, true},
		{"dot slash outDir", config.ProjectConfig{SrcDir: "src", OutDir: "./"}, true},
		{"outDir equals srcDir", config.ProjectConfig{SrcDir: "src", OutDir: "src"}, true},
		{"outDir equals srcDir after cleaning", config.ProjectConfig{SrcDir: "src", OutDir: "dist/../src"}, true},
		{"absolute outDir", config.ProjectConfig{SrcDir: "src", OutDir: filepath.FromSlash("/tmp/dist")}, true},
		{"absolute srcDir", config.ProjectConfig{SrcDir: filepath.FromSlash("/work/project/src"), OutDir: "dist"}, true},
		{"outDir contains project root", config.ProjectConfig{SrcDir: "src", OutDir: ".."}, true},
		{"outDir contains srcDir", config.ProjectConfig{SrcDir: "src/app", OutDir: "src"}, true},
		{"outDir is filesystem root", config.ProjectConfig{SrcDir: "src", OutDir: "../../.."}, true},
		{"outDir is a sibling of the project root", config.ProjectConfig{SrcDir: "src", OutDir: "../victim"}, true},
		{"outDir escapes through dist", config.ProjectConfig{SrcDir: "src", OutDir: "dist/../../victim"}, true},
		{"empty srcDir means project root", config.ProjectConfig{OutDir: "dist"}, false},
		{"outDir inside srcDir is allowed", config.ProjectConfig{SrcDir: "src", OutDir: "src/dist"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(projectRoot, tt.cfg, "apps[2]")
			if tt.wantErr {
				require.Error(t, err)
				var cfgErr *errs.InvalidConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Contains(t, cfgErr.Path, "apps[2].")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_LibTranspilationCollision(t *testing.T) {
	cfg := config.ProjectConfig{
		ProjectType: config.ProjectTypeLib,
		SrcDir:      "src",
		OutDir:      "dist",
		TsTranspilations: []config.TsTranspilation{
			{OutDir: "esm2015"},
			{OutDir: "./esm2015/"},
		},
	}
	err := Validate(projectRoot, cfg, "libs[0]")
	var cfgErr *errs.InvalidConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "libs[0].tsTranspilations[1].outDir", cfgErr.Path)

	cfg.TsTranspilations[1].OutDir = "../escape"
	require.ErrorAs(t, Validate(projectRoot, cfg, "libs[0]"), &cfgErr)
	assert.Contains(t, cfgErr.Reason, "inside the project outDir")
}

func TestResolve(t *testing.T) {
	manifest := &config.AngularBuildConfig{
		Apps: []config.ProjectConfig{
			{Name: "shell", SrcDir: "src", OutDir: "dist/shell", Banner: "shell"},
			{Name: "admin", Extends: "shell", OutDir: "dist/admin"},
			{Name: "broken", SrcDir: "src", OutDir: "src"},
			{Name: "off", OutDir: "dist/off", Skip: config.BoolPtr(true)},
		},
		Libs: []config.ProjectConfig{
			{Name: "core", SrcDir: "projects/core", OutDir: "dist/core",
				EnvOverrides: map[string]config.ProjectConfig{"prod": {OutDir: "dist/core-prod"}}},
		},
	}

	opts := Options{ProjectRoot: projectRoot, Env: config.NormalizeEnvironment(nil, true), StrictExtends: true}
	projects, err := Resolve(manifest, opts)
	require.NoError(t, err)
	require.Len(t, projects, 4)

	assert.Equal(t, "shell", projects[0].DisplayName())
	assert.NoError(t, projects[0].Err)

	admin := projects[1]
	assert.NoError(t, admin.Err)
	assert.Equal(t, "src", admin.Config.SrcDir)
	assert.Equal(t, "shell", admin.Config.Banner)
	assert.Equal(t, config.ProjectTypeApp, admin.Type)

	assert.True(t, errs.IsInvalidConfig(projects[2].Err), "invalid project is reported, siblings continue")

	core := projects[3]
	require.NoError(t, core.Err)
	assert.Equal(t, "libs[0]", core.Path)
	assert.Equal(t, "dist/core-prod", core.Config.OutDir)
	assert.Equal(t, config.ProjectTypeLib, core.Config.ProjectType)
}

func TestResolve_OutDirOutsideProjectRoot(t *testing.T) {
	manifest := &config.AngularBuildConfig{
		Apps: []config.ProjectConfig{
			{Name: "escape", SrcDir: "src", OutDir: "../victim"},
			{Name: "shell", SrcDir: "src", OutDir: "dist"},
		},
	}
	opts := Options{ProjectRoot: projectRoot, Env: config.NormalizeEnvironment(nil, false), StrictExtends: true}

	projects, err := Resolve(manifest, opts)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	var cfgErr *errs.InvalidConfigError
	require.ErrorAs(t, projects[0].Err, &cfgErr)
	assert.Equal(t, "apps[0].outDir", cfgErr.Path)
	assert.Contains(t, cfgErr.Reason, "outside the project root")
	assert.NoError(t, projects[1].Err)
}

func TestResolve_Filter(t *testing.T) {
	manifest := &config.AngularBuildConfig{
		Apps: []config.ProjectConfig{{Name: "shell", OutDir: "dist/shell"}},
		Libs: []config.ProjectConfig{{Name: "core", OutDir: "dist/core"}},
	}
	opts := Options{ProjectRoot: projectRoot, Env: config.NormalizeEnvironment(nil, false), Filter: []string{"core"}}

	projects, err := Resolve(manifest, opts)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "core", projects[0].DisplayName())

	opts.Filter = []string{"apps"}
	projects, err = Resolve(manifest, opts)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "shell", projects[0].DisplayName())

	opts.Filter = []string{"lib"}
	projects, err = Resolve(manifest, opts)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "core", projects[0].DisplayName())

	opts.Filter = []string{"nothing"}
	_, err = Resolve(manifest, opts)
	assert.True(t, errors.Is(err, errs.ErrNoProjects))
}
