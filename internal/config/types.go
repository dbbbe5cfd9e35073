package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ProjectType tags a project config as an application or a library.
type ProjectType string

const (
	ProjectTypeApp ProjectType = "app"
	ProjectTypeLib ProjectType = "lib"
)

// AngularBuildConfig is the top-level shape of angular-build.json.
type AngularBuildConfig struct {
	Schema       string          `json:"$schema,omitempty"`
	Apps         []ProjectConfig `json:"apps,omitempty" validate:"omitempty,dive"`
	Libs         []ProjectConfig `json:"libs,omitempty" validate:"omitempty,dive"`
	BuildOptions *BuildOptions   `json:"buildOptions,omitempty" validate:"omitempty"`
}

// Bool is an optional boolean that also accepts the strings "true" and "false".
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("expected boolean, got %s", string(data))
	}
	*b = Bool(v)
	return nil
}

// BoolPtr returns a pointer to a Bool holding v.
func BoolPtr(v bool) *Bool {
	b := Bool(v)
	return &b
}

// IsTrue reports whether b is set and true.
func (b *Bool) IsTrue() bool {
	return b != nil && bool(*b)
}

// IsFalse reports whether b is set and false.
func (b *Bool) IsFalse() bool {
	return b != nil && !bool(*b)
}

// Or returns the value of b, or def when b is unset.
func (b *Bool) Or(def bool) bool {
	if b == nil {
		return def
	}
	return bool(*b)
}

// StringList decodes either a single string (comma separated) or an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*l = SplitList(s)
		return nil
	}
	var items []string
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("expected string or string array: %w", err)
	}
	*l = items
	return nil
}

// SplitList splits comma separated values and drops empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CleanOptions controls output cleaning.
type CleanOptions struct {
	BeforeBuild *BeforeBuildCleanOptions `json:"beforeBuild,omitempty"`
}

// BeforeBuildCleanOptions controls what is removed before a project builds.
type BeforeBuildCleanOptions struct {
	CleanOutDir *Bool    `json:"cleanOutDir,omitempty"`
	Paths       []string `json:"paths,omitempty"`
	Exclude     []string `json:"exclude,omitempty"`
}

// ProjectConfig is one app or lib build unit. Lib-only fields are ignored
// (and rejected by schema validation) on apps.
type ProjectConfig struct {
	ProjectType ProjectType `json:"-" yaml:"-"`

	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Extends string `json:"extends,omitempty" yaml:"extends,omitempty"`
	Skip    *Bool  `json:"skip,omitempty" yaml:"skip,omitempty"`

	SrcDir string `json:"srcDir,omitempty" yaml:"srcDir,omitempty"`
	OutDir string `json:"outDir,omitempty" yaml:"outDir,omitempty"`

	Entry          string `json:"entry,omitempty" yaml:"entry,omitempty"`
	TsConfig       string `json:"tsconfig,omitempty" yaml:"tsconfig,omitempty"`
	PlatformTarget string `json:"platformTarget,omitempty" yaml:"platformTarget,omitempty" validate:"omitempty,oneof=web node"`

	Assets  json.RawMessage `json:"assets,omitempty" yaml:"-"`
	Styles  json.RawMessage `json:"styles,omitempty" yaml:"-"`
	Scripts json.RawMessage `json:"scripts,omitempty" yaml:"-"`
	Dlls    json.RawMessage `json:"dlls,omitempty" yaml:"-"`

	Clean        *CleanOptions     `json:"clean,omitempty" yaml:"clean,omitempty"`
	SourceMap    *Bool             `json:"sourceMap,omitempty" yaml:"sourceMap,omitempty"`
	Optimization *Bool             `json:"optimization,omitempty" yaml:"optimization,omitempty"`
	Banner       string            `json:"banner,omitempty" yaml:"banner,omitempty"`
	Externals    []string          `json:"externals,omitempty" yaml:"externals,omitempty"`
	Define       map[string]string `json:"define,omitempty" yaml:"define,omitempty"`

	EnvOverrides map[string]ProjectConfig `json:"envOverrides,omitempty" yaml:"-" validate:"omitempty,dive"`

	// Lib only.
	TsTranspilations  []TsTranspilation `json:"tsTranspilations,omitempty" yaml:"tsTranspilations,omitempty" validate:"omitempty,dive"`
	BundleTargets     []BundleTarget    `json:"bundleTargets,omitempty" yaml:"bundleTargets,omitempty" validate:"omitempty,dive"`
	PackageJsonOutDir string            `json:"packageJsonOutDir,omitempty" yaml:"packageJsonOutDir,omitempty"`
	PackageJsonCopy   *Bool             `json:"packageJsonCopy,omitempty" yaml:"packageJsonCopy,omitempty"`
}

// TsTranspilation is one TypeScript emit pass of a library.
type TsTranspilation struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	TsConfig    string `json:"tsconfig,omitempty" yaml:"tsconfig,omitempty"`
	Target      string `json:"target,omitempty" yaml:"target,omitempty" validate:"omitempty,script_target"`
	Module      string `json:"module,omitempty" yaml:"module,omitempty" validate:"omitempty,oneof=es2015 esnext commonjs umd"`
	Declaration *Bool  `json:"declaration,omitempty" yaml:"declaration,omitempty"`
	SourceMap   *Bool  `json:"sourceMap,omitempty" yaml:"sourceMap,omitempty"`
	OutDir      string `json:"outDir,omitempty" yaml:"outDir,omitempty"`
}

// Entry roots a bundle target entry can be resolved against.
const (
	EntryRootTsTranspilationOutDir = "tsTranspilationOutDir"
	EntryRootBundleTargetOutDir    = "bundleTargetOutDir"
	EntryRootPrevBundleOutDir      = "prevBundleOutDir"
	EntryRootOutDir                = "outDir"
)

// EntryResolution tells the planner where a bundle target entry comes from.
type EntryResolution struct {
	EntryRoot            string `json:"entryRoot,omitempty" yaml:"entryRoot,omitempty" validate:"omitempty,oneof=tsTranspilationOutDir bundleTargetOutDir prevBundleOutDir outDir"`
	TsTranspilationIndex *int   `json:"tsTranspilationIndex,omitempty" yaml:"tsTranspilationIndex,omitempty" validate:"omitempty,min=0"`
	TsTranspilationName  string `json:"tsTranspilationName,omitempty" yaml:"tsTranspilationName,omitempty"`
	BundleTargetIndex    *int   `json:"bundleTargetIndex,omitempty" yaml:"bundleTargetIndex,omitempty" validate:"omitempty,min=0"`
}

// Library targets.
const (
	LibraryTargetES       = "es"
	LibraryTargetUMD      = "umd"
	LibraryTargetCommonJS = "commonjs"
	LibraryTargetIIFE     = "iife"
)

// BundleTarget is one declared library bundle step.
type BundleTarget struct {
	// Entry resolution may be declared flat on the target or nested under
	// "entryResolution"; the nested block wins when present.
	EntryResolution `yaml:",inline"`

	Name                      string           `json:"name,omitempty" yaml:"name,omitempty"`
	Resolution                *EntryResolution `json:"entryResolution,omitempty" yaml:"entryResolution,omitempty"`
	Entry                     string           `json:"entry,omitempty" yaml:"entry,omitempty"`
	LibraryTarget             string           `json:"libraryTarget,omitempty" yaml:"libraryTarget,omitempty" validate:"omitempty,oneof=es umd commonjs iife"`
	ScriptTarget              string           `json:"scriptTarget,omitempty" yaml:"scriptTarget,omitempty" validate:"omitempty,script_target"`
	TransformScriptTargetOnly *Bool            `json:"transformScriptTargetOnly,omitempty" yaml:"transformScriptTargetOnly,omitempty"`
	OutDir                    string           `json:"outDir,omitempty" yaml:"outDir,omitempty"`
	OutFileName               string           `json:"outFileName,omitempty" yaml:"outFileName,omitempty"`
	UmdID                     string           `json:"umdId,omitempty" yaml:"umdId,omitempty"`
	Externals                 []string         `json:"externals,omitempty" yaml:"externals,omitempty"`
	SourceMap                 *Bool            `json:"sourceMap,omitempty" yaml:"sourceMap,omitempty"`
	Skip                      *Bool            `json:"skip,omitempty" yaml:"skip,omitempty"`
}

// ResolvedEntry returns the effective entry resolution of the target.
func (b BundleTarget) ResolvedEntry() EntryResolution {
	if b.Resolution != nil {
		return *b.Resolution
	}
	return b.EntryResolution
}

// BuildOptions is the manifest "buildOptions" block merged with CLI flags.
type BuildOptions struct {
	Environment   StringList `json:"environment,omitempty" mapstructure:"env"`
	Production    bool       `json:"production,omitempty" mapstructure:"prod"`
	Filter        StringList `json:"filter,omitempty" mapstructure:"filter"`
	Progress      bool       `json:"progress,omitempty" mapstructure:"progress"`
	LogLevel      string     `json:"logLevel,omitempty" mapstructure:"loglevel" validate:"omitempty,oneof=debug info warn error"`
	Verbose       bool       `json:"verbose,omitempty" mapstructure:"verbose"`
	Watch         bool       `json:"watch,omitempty" mapstructure:"watch"`
	Poll          int        `json:"poll,omitempty" mapstructure:"poll" validate:"min=0"`
	Beep          bool       `json:"beep,omitempty" mapstructure:"beep"`
	StrictExtends *bool      `json:"strictExtends,omitempty" mapstructure:"strictextends"`
}

// Clone returns a copy whose slices and maps can be modified without
// affecting c. Pointed-to option values are shared and must not be mutated.
func (c ProjectConfig) Clone() ProjectConfig {
	out := c
	out.Externals = cloneSlice(c.Externals)
	out.TsTranspilations = cloneSlice(c.TsTranspilations)
	out.BundleTargets = cloneSlice(c.BundleTargets)
	if c.Define != nil {
		out.Define = make(map[string]string, len(c.Define))
		for k, v := range c.Define {
			out.Define[k] = v
		}
	}
	if c.EnvOverrides != nil {
		out.EnvOverrides = make(map[string]ProjectConfig, len(c.EnvOverrides))
		for k, v := range c.EnvOverrides {
			out.EnvOverrides[k] = v
		}
	}
	if c.Clean != nil {
		clean := *c.Clean
		if clean.BeforeBuild != nil {
			bb := *clean.BeforeBuild
			bb.Paths = cloneSlice(bb.Paths)
			bb.Exclude = cloneSlice(bb.Exclude)
			clean.BeforeBuild = &bb
		}
		out.Clean = &clean
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
