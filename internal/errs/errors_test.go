package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidConfigError(t *testing.T) {
	err := InvalidConfig("apps[2].outDir", "must be %s", "relative")
	assert.Equal(t, "invalid config at apps[2].outDir: must be relative", err.Error())
	assert.True(t, IsInvalidConfig(err))
	assert.True(t, IsInvalidConfig(fmt.Errorf("resolve: %w", err)))
	assert.False(t, IsInvalidConfig(errors.New("plain")))
}

func TestMessage_PrefersTypedError(t *testing.T) {
	inner := &BundleError{Step: "bundle:0", Message: "Could not resolve \"x\""}
	wrapped := fmt.Errorf("project core: %w", inner)
	assert.Equal(t, `bundle:0 failed: Could not resolve "x"`, Message(wrapped))
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestTypescriptCompileError(t *testing.T) {
	err := &TypescriptCompileError{TsConfig: "tsconfig.json"}
	assert.Equal(t, "typescript compilation failed for tsconfig.json", err.Error())

	err.Diagnostics = "src/index.ts(1,1): error TS1005\n"
	assert.Contains(t, err.Error(), "TS1005")
}

func TestBundleErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &BundleError{Step: "minify:1", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "minify:1 failed: disk full", err.Error())
}
