package config

import "encoding/json"

// DeniedOverrideKeys lists the fields an environment override block may never change.
var DeniedOverrideKeys = []string{"name", "extends", "envOverrides", "projectType"}

// Overlay returns base with every field set in over replacing the base value.
// Identity fields (name, extends) and envOverrides are taken from over when set.
// This is the merge used for "extends" resolution.
func Overlay(base, over ProjectConfig) ProjectConfig {
	out := base.Clone()
	overlayFields(&out, over)
	setString(&out.Name, over.Name)
	setString(&out.Extends, over.Extends)
	setMap(&out.EnvOverrides, over.EnvOverrides)
	if over.ProjectType != "" {
		out.ProjectType = over.ProjectType
	}
	return out
}

// OverlayEnv applies an environment override block onto base.
// Denied keys in over are dropped silently.
func OverlayEnv(base, over ProjectConfig) ProjectConfig {
	out := base.Clone()
	overlayFields(&out, over)
	return out
}

// overlayFields copies every non-identity field that is set in src onto dst.
// Values are replaced, never appended, so applying the same block twice is a no-op.
func overlayFields(dst *ProjectConfig, src ProjectConfig) {
	setPtr(&dst.Skip, src.Skip)

	setString(&dst.SrcDir, src.SrcDir)
	setString(&dst.OutDir, src.OutDir)

	setString(&dst.Entry, src.Entry)
	setString(&dst.TsConfig, src.TsConfig)
	setString(&dst.PlatformTarget, src.PlatformTarget)

	setRaw(&dst.Assets, src.Assets)
	setRaw(&dst.Styles, src.Styles)
	setRaw(&dst.Scripts, src.Scripts)
	setRaw(&dst.Dlls, src.Dlls)

	setPtr(&dst.Clean, src.Clean)
	setPtr(&dst.SourceMap, src.SourceMap)
	setPtr(&dst.Optimization, src.Optimization)
	setString(&dst.Banner, src.Banner)
	setSlice(&dst.Externals, src.Externals)
	setMap(&dst.Define, src.Define)

	setSlice(&dst.TsTranspilations, src.TsTranspilations)
	setSlice(&dst.BundleTargets, src.BundleTargets)
	setString(&dst.PackageJsonOutDir, src.PackageJsonOutDir)
	setPtr(&dst.PackageJsonCopy, src.PackageJsonCopy)
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func setPtr[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

func setSlice[T any](dst *[]T, src []T) {
	if src != nil {
		*dst = cloneSlice(src)
	}
}

func setMap[K comparable, V any](dst *map[K]V, src map[K]V) {
	if src == nil {
		return
	}
	m := make(map[K]V, len(src))
	for k, v := range src {
		m[k] = v
	}
	*dst = m
}

func setRaw(dst *json.RawMessage, src json.RawMessage) {
	if len(src) > 0 {
		*dst = src
	}
}
