// Package errs defines the error taxonomy shared by the resolver, planner and
// orchestrator. Config errors always carry the offending config path.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigNotFound is returned when no manifest file could be located.
	ErrConfigNotFound = errors.New("angular-build.json not found")
	// ErrNoProjects is returned when no app or lib config matches the current filter.
	ErrNoProjects = errors.New("no app or lib config matched")
)

// InvalidConfigError reports a malformed or contradictory configuration.
// Path is the config path of the offending field, e.g. "libs[0].bundleTargets[1].entry".
type InvalidConfigError struct {
	Path   string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	if e.Path == "" {
		return "invalid config: " + e.Reason
	}
	return fmt.Sprintf("invalid config at %s: %s", e.Path, e.Reason)
}

// InvalidConfig is a shorthand constructor for InvalidConfigError.
func InvalidConfig(path, format string, args ...any) error {
	return &InvalidConfigError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// InternalError signals a broken planner/orchestrator invariant, not a user error.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}

// Internal is a shorthand constructor for InternalError.
func Internal(format string, args ...any) error {
	return &InternalError{Msg: fmt.Sprintf(format, args...)}
}

// TypescriptCompileError carries compiler diagnostics for a failed transpilation pass.
type TypescriptCompileError struct {
	TsConfig    string
	Diagnostics string
}

func (e *TypescriptCompileError) Error() string {
	diag := strings.TrimSpace(e.Diagnostics)
	if diag == "" {
		return "typescript compilation failed for " + e.TsConfig
	}
	return fmt.Sprintf("typescript compilation failed for %s:\n%s", e.TsConfig, diag)
}

// BundleError wraps a bundler, script-target transform or minifier failure.
type BundleError struct {
	Step    string
	Message string
	Err     error
}

func (e *BundleError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s failed: %s", e.Step, msg)
}

func (e *BundleError) Unwrap() error {
	return e.Err
}

// UnsupportedStyleExtError is returned for style entries with an unknown extension.
type UnsupportedStyleExtError struct {
	File string
	Ext  string
}

func (e *UnsupportedStyleExtError) Error() string {
	return "unsupported style extension: " + e.Ext + " (file: " + e.File + ")"
}

// IsInvalidConfig reports whether err (or anything it wraps) is an InvalidConfigError.
func IsInvalidConfig(err error) bool {
	var target *InvalidConfigError
	return errors.As(err, &target)
}

// Message returns the most informative single-line message for err.
// Wrapped chains are reduced to the innermost typed error when there is one.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var (
		cfgErr   *InvalidConfigError
		tsErr    *TypescriptCompileError
		bundle   *BundleError
		styleErr *UnsupportedStyleExtError
	)
	switch {
	case errors.As(err, &cfgErr):
		return cfgErr.Error()
	case errors.As(err, &tsErr):
		return tsErr.Error()
	case errors.As(err, &bundle):
		return bundle.Error()
	case errors.As(err, &styleErr):
		return styleErr.Error()
	}
	return err.Error()
}
