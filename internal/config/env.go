package config

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Canonical environment names.
const (
	EnvDev       = "dev"
	EnvProd      = "prod"
	EnvAot       = "aot"
	EnvDll       = "dll"
	EnvTest      = "test"
	EnvUniversal = "universal"
)

// envPrecedence is the order override blocks are applied in; later blocks win.
var envPrecedence = []string{EnvDev, EnvProd, EnvAot, EnvDll, EnvTest, EnvUniversal}

var envSynonyms = map[string]string{
	"production":  EnvProd,
	"development": EnvDev,
}

var folder = cases.Fold()

// Environment is the normalized set of active build environments.
// prod and dev are mutually exclusive; dev is implied when prod is absent.
type Environment struct {
	active map[string]bool
}

// NormalizeEnvironment builds an Environment from raw names such as
// "production", "aot", "dll=false" or comma separated lists.
// Names are case-folded and synonyms are mapped to canonical names;
// unknown names pass through unchanged.
func NormalizeEnvironment(raw []string, production bool) Environment {
	env := Environment{active: map[string]bool{}}
	for _, item := range raw {
		for _, token := range SplitList(item) {
			name, enabled := parseEnvToken(token)
			if name == "" {
				continue
			}
			if enabled {
				env.active[name] = true
			} else {
				delete(env.active, name)
			}
		}
	}
	if production {
		env.active[EnvProd] = true
	}
	if env.active[EnvProd] {
		delete(env.active, EnvDev)
	} else {
		env.active[EnvDev] = true
	}
	return env
}

func parseEnvToken(token string) (string, bool) {
	name, value, hasValue := strings.Cut(token, "=")
	name = CanonicalEnvName(name)
	if !hasValue {
		return name, true
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return name, true
	}
	return name, enabled
}

// CanonicalEnvName maps built-in names and their synonyms, in any case, to
// canonical names. Other names are returned trimmed but otherwise unchanged.
func CanonicalEnvName(name string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(name), "env.")
	folded := folder.String(trimmed)
	if canonical, ok := envSynonyms[folded]; ok {
		return canonical
	}
	for _, known := range envPrecedence {
		if folded == known {
			return known
		}
	}
	return trimmed
}

// Has reports whether name (canonicalized) is active.
func (e Environment) Has(name string) bool {
	return e.active[CanonicalEnvName(name)]
}

// Prod reports whether the production environment is active.
func (e Environment) Prod() bool { return e.active[EnvProd] }

// Dev reports whether the development environment is active.
func (e Environment) Dev() bool { return e.active[EnvDev] }

// Ordered returns the active names in override precedence order:
// dev/prod, aot, dll, test, universal, then custom names lexically.
func (e Environment) Ordered() []string {
	out := make([]string, 0, len(e.active))
	known := make(map[string]bool, len(envPrecedence))
	for _, name := range envPrecedence {
		known[name] = true
		if e.active[name] {
			out = append(out, name)
		}
	}
	var custom []string
	for name := range e.active {
		if !known[name] {
			custom = append(custom, name)
		}
	}
	sort.Strings(custom)
	return append(out, custom...)
}

// String renders the active set in precedence order.
func (e Environment) String() string {
	return strings.Join(e.Ordered(), ",")
}
