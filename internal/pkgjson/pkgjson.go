// Package pkgjson discovers a library's package.json and synthesizes the
// package.json written next to its build output.
package pkgjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/josephgoksu/ngbuild/internal/pathutil"
)

// FileName is the npm package manifest name.
const FileName = "package.json"

// Package is a discovered package.json.
type Package struct {
	// Path is the absolute path of the package.json file.
	Path string
	// Name is the full npm name, e.g. "@acme/forms/testing".
	Name    string
	Version string
	Identity
	// Data holds every field of the file as decoded JSON.
	Data map[string]any
}

// Identity splits an npm package name into the parts used by naming tokens.
type Identity struct {
	// Scope includes the leading "@", e.g. "@acme". Empty for unscoped names.
	Scope string
	// ParentName is set for secondary entry points such as "@acme/forms/testing".
	ParentName string
	// PackageName is the last name segment.
	PackageName string
}

// ParseName splits name into scope, parent package and package name.
//
//	"foo"                -> {"", "", "foo"}
//	"@acme/foo"          -> {"@acme", "", "foo"}
//	"@acme/foo/testing"  -> {"@acme", "foo", "testing"}
//	"foo/testing"        -> {"", "foo", "testing"}
func ParseName(name string) Identity {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}
	}
	var id Identity
	parts := strings.Split(name, "/")
	if strings.HasPrefix(parts[0], "@") && len(parts) > 1 {
		id.Scope = parts[0]
		parts = parts[1:]
	}
	id.PackageName = parts[len(parts)-1]
	if len(parts) > 1 {
		id.ParentName = parts[len(parts)-2]
	}
	return id
}

// Tokens returns the naming tokens derived from the identity, keyed without brackets.
func (id Identity) Tokens() map[string]string {
	return map[string]string{
		"package-scope":       id.Scope,
		"parent-package-name": id.ParentName,
		"package-name":        id.PackageName,
	}
}

// Discover finds the nearest package.json, walking up from startDir and
// stopping after projectRoot. It returns (nil, nil) when none exists.
// startDir outside projectRoot is only searched itself.
func Discover(fs afero.Fs, startDir, projectRoot string) (*Package, error) {
	dir := filepath.Clean(startDir)
	root := filepath.Clean(projectRoot)
	for {
		p := filepath.Join(dir, FileName)
		ok, err := afero.Exists(fs, p)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", p, err)
		}
		if ok {
			return Load(fs, p)
		}
		if pathutil.IsSamePath(dir, root) || !pathutil.IsInFolder(root, dir) {
			return nil, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Load reads and decodes the package.json at path.
func Load(fs afero.Fs, path string) (*Package, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	pkg := &Package{Path: path, Data: fields}
	pkg.Name, _ = fields["name"].(string)
	pkg.Version, _ = fields["version"].(string)
	pkg.Identity = ParseName(pkg.Name)
	return pkg, nil
}

// Entrypoints are the module entry fields written into the output package.json.
// Paths are absolute; Synthesize makes them relative to the output directory.
type Entrypoints struct {
	Main    string `json:"main,omitempty" yaml:"main,omitempty"`
	Module  string `json:"module,omitempty" yaml:"module,omitempty"`
	ES2015  string `json:"es2015,omitempty" yaml:"es2015,omitempty"`
	Typings string `json:"typings,omitempty" yaml:"typings,omitempty"`
}

// Fields removed when the source package.json is copied to the output.
var strippedFields = []string{"scripts", "devDependencies"}

// Synthesize builds the output package.json content for outDir. When base is
// non-nil its fields are copied first (minus development-only fields).
func Synthesize(base *Package, outDir string, entries Entrypoints) (map[string]any, error) {
	out := map[string]any{}
	if base != nil {
		for k, v := range base.Data {
			out[k] = v
		}
		for _, k := range strippedFields {
			delete(out, k)
		}
	}

	set := func(key, target string) error {
		if target == "" {
			return nil
		}
		rel, err := filepath.Rel(outDir, target)
		if err != nil {
			return fmt.Errorf("%s entry %s: %w", key, target, err)
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, ".") {
			rel = "./" + rel
		}
		out[key] = rel
		return nil
	}
	for _, f := range []struct{ key, target string }{
		{"main", entries.Main},
		{"module", entries.Module},
		{"es2015", entries.ES2015},
		{"typings", entries.Typings},
	} {
		if err := set(f.key, f.target); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Write encodes content as indented JSON into outDir/package.json.
func Write(fs afero.Fs, outDir string, content map[string]any) (string, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", FileName, err)
	}
	if err := fs.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", outDir, err)
	}
	p := filepath.Join(outDir, FileName)
	if err := afero.WriteFile(fs, p, append(data, '\n'), os.FileMode(0o644)); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}
