package resolve

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/errs"
)

// Options controls project resolution.
type Options struct {
	ProjectRoot   string
	Env           config.Environment
	StrictExtends bool
	Filter        []string
	Logger        *zap.Logger
}

// Project is one fully merged and validated project config.
// Err is set when resolution of this project failed; sibling projects
// are still resolved.
type Project struct {
	Config config.ProjectConfig
	Type   config.ProjectType
	Index  int
	// Path is the config path of the project, e.g. "libs[1]".
	Path string
	Err  error
}

// DisplayName returns the project name, or its config path when unnamed.
func (p Project) DisplayName() string {
	if p.Config.Name != "" {
		return p.Config.Name
	}
	return p.Path
}

// Resolve expands every app and lib of manifest into merged configs:
// inheritance, then environment overrides, then defaults, then validation.
// Skipped projects and projects excluded by the filter are dropped.
// errs.ErrNoProjects is returned when nothing is left to build.
func Resolve(manifest *config.AngularBuildConfig, opts Options) ([]Project, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var projects []Project
	groups := []struct {
		kind    config.ProjectType
		key     string
		configs []config.ProjectConfig
	}{
		{config.ProjectTypeApp, "apps", manifest.Apps},
		{config.ProjectTypeLib, "libs", manifest.Libs},
	}

	for _, g := range groups {
		for i, declared := range g.configs {
			path := fmt.Sprintf("%s[%d]", g.key, i)
			if !matchesFilter(declared, g.kind, opts.Filter) {
				logger.Debug("project filtered out", zap.String("project", path))
				continue
			}
			declared.ProjectType = g.kind
			p := resolveOne(g.configs, declared, path, opts, logger)
			p.Type, p.Index = g.kind, i
			if p.Err == nil && p.Config.Skip.IsTrue() {
				logger.Info("project skipped", zap.String("project", p.DisplayName()))
				continue
			}
			projects = append(projects, p)
		}
	}

	if len(projects) == 0 {
		if len(opts.Filter) > 0 {
			return nil, fmt.Errorf("%w filter %v", errs.ErrNoProjects, opts.Filter)
		}
		return nil, errs.ErrNoProjects
	}
	return projects, nil
}

func resolveOne(siblings []config.ProjectConfig, declared config.ProjectConfig, path string, opts Options, logger *zap.Logger) Project {
	p := Project{Path: path, Config: declared}

	if err := config.ValidateProject(declared, declared.ProjectType, path); err != nil {
		p.Err = err
		return p
	}

	merged, found, err := ResolveExtends(siblings, declared, path, opts.StrictExtends)
	if err != nil {
		p.Err = err
		return p
	}
	if !found {
		logger.Debug("extends reference not found, using config as declared",
			zap.String("project", path), zap.String("extends", declared.Extends))
	}
	merged.ProjectType = declared.ProjectType

	merged, applied := ApplyEnvOverrides(merged, opts.Env)
	if len(applied) > 0 {
		logger.Debug("environment overrides applied", zap.String("project", path), zap.Strings("envs", applied))
	}

	merged = config.ApplyDefaults(merged, opts.Env)
	p.Config = merged

	if err := Validate(opts.ProjectRoot, merged, path); err != nil {
		p.Err = err
	}
	return p
}

// matchesFilter reports whether a project is selected by filter.
// Filter items match project names, or "app"/"lib" ("apps"/"libs") to select a whole kind.
func matchesFilter(cfg config.ProjectConfig, kind config.ProjectType, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	if slices.Contains(filter, string(kind)) || slices.Contains(filter, string(kind)+"s") {
		return true
	}
	return cfg.Name != "" && slices.Contains(filter, cfg.Name)
}
