// Package config defines the manifest schema, its loading, default values and
// the build options layer. All default values are defined here to keep a
// single source of truth.
package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default values for project and bundle fields.
const (
	DefaultAppEntry        = "main.ts"
	DefaultTsConfig        = "tsconfig.json"
	DefaultPlatformTarget  = "web"
	DefaultLibraryTarget   = LibraryTargetES
	DefaultScriptTarget    = "es2015"
	DefaultModule          = "es2015"
	DefaultLogLevel        = "info"
	DefaultStylesBundle    = "styles"
	DefaultScriptsBundle   = "scripts"
	DefaultDllBundle       = "vendor"
	DefaultStateDir        = ".ngb"
	DefaultWatchDebounceMs = 300
)

// EnvPrefix is the prefix for environment variables bound through viper (NGB_ENV, NGB_LOGLEVEL, ...).
const EnvPrefix = "NGB"

// RegisterDefaults sets the build option defaults on v.
func RegisterDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyStrictExtends, true)
	v.SetDefault(KeyPoll, 0)
	v.SetDefault(KeyProgress, false)
	v.SetDefault(KeyWatch, false)
	v.SetDefault(KeyBeep, false)
}

// ApplyDefaults fills unset fields of a resolved project config.
// It must run after inheritance and environment overrides so that only
// fields left unset by every layer receive defaults.
func ApplyDefaults(cfg ProjectConfig, env Environment) ProjectConfig {
	out := cfg.Clone()

	if out.PlatformTarget == "" {
		out.PlatformTarget = DefaultPlatformTarget
	}
	if out.SourceMap == nil {
		out.SourceMap = BoolPtr(!env.Prod())
	}
	if out.Optimization == nil {
		out.Optimization = BoolPtr(env.Prod())
	}
	if out.Clean == nil {
		out.Clean = &CleanOptions{}
	}
	if out.Clean.BeforeBuild == nil {
		out.Clean.BeforeBuild = &BeforeBuildCleanOptions{}
	}
	if out.Clean.BeforeBuild.CleanOutDir == nil {
		out.Clean.BeforeBuild.CleanOutDir = BoolPtr(true)
	}

	switch out.ProjectType {
	case ProjectTypeApp:
		if out.Entry == "" {
			out.Entry = DefaultAppEntry
		}
		if out.TsConfig == "" {
			out.TsConfig = DefaultTsConfig
		}
	case ProjectTypeLib:
		if out.PackageJsonCopy == nil {
			out.PackageJsonCopy = BoolPtr(true)
		}
		for i := range out.TsTranspilations {
			out.TsTranspilations[i] = transpilationDefaults(out.TsTranspilations[i], i, out.TsConfig)
		}
		// LibraryTarget stays empty when undeclared; output naming depends on it.
		for i := range out.BundleTargets {
			if out.BundleTargets[i].SourceMap == nil {
				out.BundleTargets[i].SourceMap = out.SourceMap
			}
		}
	}
	return out
}

// transpilationDefaults fills tsconfig, declaration and name. Target and
// module defaults depend on the tsconfig contents and are filled by the planner.
func transpilationDefaults(t TsTranspilation, index int, projectTsConfig string) TsTranspilation {
	if t.TsConfig == "" {
		t.TsConfig = projectTsConfig
	}
	if t.TsConfig == "" {
		t.TsConfig = DefaultTsConfig
	}
	if t.Declaration == nil {
		t.Declaration = BoolPtr(index == 0)
	}
	if t.Name == "" && t.OutDir != "" {
		t.Name = strings.ReplaceAll(filepath.ToSlash(filepath.Clean(t.OutDir)), "/", "-")
	}
	return t
}
