package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

// ManifestNames are the manifest file names searched for, in priority order.
var ManifestNames = []string{"angular-build.json", "angular-cli.json"}

const legacyManifestName = "angular-cli.json"

// FindManifest locates the manifest file.
// Resolution order (first match wins):
// 1. Explicit path (file, or directory containing a manifest)
// 2. startDir and each of its parents up to the filesystem root
func FindManifest(fs afero.Fs, startDir, explicit string) (string, error) {
	if explicit != "" {
		p := explicit
		if !filepath.IsAbs(p) {
			p = filepath.Join(startDir, p)
		}
		isDir, err := afero.IsDir(fs, p)
		if err == nil && isDir {
			if found := findIn(fs, p); found != "" {
				return found, nil
			}
			return "", fmt.Errorf("%w in %s", errs.ErrConfigNotFound, p)
		}
		exists, err := afero.Exists(fs, p)
		if err != nil {
			return "", fmt.Errorf("check config file: %w", err)
		}
		if !exists {
			return "", fmt.Errorf("%w: %s", errs.ErrConfigNotFound, p)
		}
		return filepath.Clean(p), nil
	}

	dir := filepath.Clean(startDir)
	for {
		if found := findIn(fs, dir); found != "" {
			return found, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w in %s or any parent directory", errs.ErrConfigNotFound, startDir)
		}
		dir = parent
	}
}

func findIn(fs afero.Fs, dir string) string {
	for _, name := range ManifestNames {
		p := filepath.Join(dir, name)
		if ok, _ := afero.Exists(fs, p); ok {
			return p
		}
	}
	return ""
}

// LoadManifest reads and decodes a manifest. Comments and trailing commas are
// allowed. Legacy angular-cli.json app keys ("root", "main") are mapped onto
// srcDir and entry.
func LoadManifest(fs afero.Fs, path string) (*AngularBuildConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errs.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseManifest(data, filepath.Base(path) == legacyManifestName)
}

// ParseManifest decodes manifest bytes.
func ParseManifest(data []byte, legacy bool) (*AngularBuildConfig, error) {
	data = jsonc.ToJSON(data)

	if legacy {
		var err error
		if data, err = mapLegacyKeys(data); err != nil {
			return nil, err
		}
	}

	var cfg AngularBuildConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &errs.InvalidConfigError{Reason: fmt.Sprintf("cannot parse manifest: %v", err)}
	}
	for i := range cfg.Apps {
		cfg.Apps[i].ProjectType = ProjectTypeApp
	}
	for i := range cfg.Libs {
		cfg.Libs[i].ProjectType = ProjectTypeLib
	}
	return &cfg, nil
}

var legacyKeys = map[string]string{
	"root": "srcDir",
	"main": "entry",
}

func mapLegacyKeys(data []byte) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &errs.InvalidConfigError{Reason: fmt.Sprintf("cannot parse manifest: %v", err)}
	}
	rawApps, ok := doc["apps"]
	if !ok {
		return data, nil
	}
	var apps []map[string]json.RawMessage
	if err := json.Unmarshal(rawApps, &apps); err != nil {
		return nil, errs.InvalidConfig("apps", "must be an array of objects")
	}
	for _, app := range apps {
		for from, to := range legacyKeys {
			if v, ok := app[from]; ok {
				if _, exists := app[to]; !exists {
					app[to] = v
				}
				delete(app, from)
			}
		}
	}
	mapped, err := json.Marshal(apps)
	if err != nil {
		return nil, fmt.Errorf("encode legacy apps: %w", err)
	}
	doc["apps"] = mapped
	return json.Marshal(doc)
}
