package planner

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
)

// compilerOptions is the subset of tsconfig compilerOptions the planner reads.
type compilerOptions struct {
	Target      string `json:"target"`
	Module      string `json:"module"`
	OutDir      string `json:"outDir"`
	Declaration *bool  `json:"declaration"`
}

type tsconfigFile struct {
	Extends         string          `json:"extends"`
	CompilerOptions compilerOptions `json:"compilerOptions"`
}

// maxTsConfigDepth bounds "extends" chains.
const maxTsConfigDepth = 8

// readCompilerOptions reads compilerOptions from a tsconfig file, following
// relative "extends" references. Values of the extending file win.
// Target and module are lower-cased and "es6" is mapped to "es2015".
func readCompilerOptions(fs afero.Fs, path string) (compilerOptions, error) {
	var merged compilerOptions
	seen := map[string]bool{}
	for depth := 0; path != ""; depth++ {
		if seen[path] {
			return merged, fmt.Errorf("tsconfig extends cycle at %s", path)
		}
		if depth >= maxTsConfigDepth {
			return merged, fmt.Errorf("tsconfig extends chain too deep at %s", path)
		}
		seen[path] = true

		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return merged, fmt.Errorf("read tsconfig: %w", err)
		}
		var file tsconfigFile
		if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
			return merged, fmt.Errorf("parse tsconfig %s: %w", path, err)
		}

		opts := file.CompilerOptions
		if merged.Target == "" {
			merged.Target = opts.Target
		}
		if merged.Module == "" {
			merged.Module = opts.Module
		}
		if merged.OutDir == "" && opts.OutDir != "" {
			merged.OutDir = filepath.Join(filepath.Dir(path), opts.OutDir)
		}
		if merged.Declaration == nil {
			merged.Declaration = opts.Declaration
		}

		path = nextTsConfig(path, file.Extends)
	}

	merged.Target = normalizeTarget(merged.Target)
	merged.Module = normalizeTarget(merged.Module)
	return merged, nil
}

// nextTsConfig resolves an "extends" value. Package references are not followed.
func nextTsConfig(from, extends string) string {
	if extends == "" || !(strings.HasPrefix(extends, ".") || filepath.IsAbs(extends)) {
		return ""
	}
	next := extends
	if !filepath.IsAbs(next) {
		next = filepath.Join(filepath.Dir(from), next)
	}
	if filepath.Ext(next) != ".json" {
		next += ".json"
	}
	return next
}

func normalizeTarget(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "es6" {
		return "es2015"
	}
	return t
}
