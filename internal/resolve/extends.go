// Package resolve turns declared project configs into fully merged configs:
// "extends" inheritance, environment overrides, defaults and path validation.
package resolve

import (
	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/errs"
)

// ResolveExtends overlays target onto the sibling config it extends.
// Only one level is resolved: the base's own "extends" is not followed.
// When the reference cannot be resolved, strict mode returns an
// InvalidConfigError at path+".extends"; lenient mode returns target unchanged.
func ResolveExtends(siblings []config.ProjectConfig, target config.ProjectConfig, path string, strict bool) (config.ProjectConfig, bool, error) {
	if target.Extends == "" {
		return target.Clone(), true, nil
	}

	if target.Extends != target.Name {
		for _, candidate := range siblings {
			if candidate.Name != "" && candidate.Name == target.Extends {
				return config.Overlay(candidate, target), true, nil
			}
		}
	}

	if strict {
		if target.Extends == target.Name {
			return target, false, errs.InvalidConfig(path+".extends", "config %q cannot extend itself", target.Name)
		}
		return target, false, errs.InvalidConfig(path+".extends", "no %s config named %q", target.ProjectType, target.Extends)
	}
	return target.Clone(), false, nil
}
