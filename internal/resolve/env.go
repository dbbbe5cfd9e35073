package resolve

import (
	"sort"

	"github.com/josephgoksu/ngbuild/internal/config"
)

// ApplyEnvOverrides merges every active environment block of cfg.EnvOverrides
// into cfg, in config.Environment precedence order. Override keys are matched
// after canonicalization, so a "production" block applies when prod is active.
// Blocks sharing a canonical name are applied in lexical key order.
func ApplyEnvOverrides(cfg config.ProjectConfig, env config.Environment) (config.ProjectConfig, []string) {
	if len(cfg.EnvOverrides) == 0 {
		return cfg.Clone(), nil
	}

	byName := make(map[string][]string, len(cfg.EnvOverrides))
	for key := range cfg.EnvOverrides {
		canonical := config.CanonicalEnvName(key)
		byName[canonical] = append(byName[canonical], key)
	}

	out := cfg.Clone()
	var applied []string
	for _, name := range env.Ordered() {
		keys := byName[name]
		sort.Strings(keys)
		for _, key := range keys {
			out = config.OverlayEnv(out, cfg.EnvOverrides[key])
			applied = append(applied, key)
		}
	}
	return out, applied
}
