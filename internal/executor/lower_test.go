package executor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

// emittingRunner mimics tsc: it writes a lowered copy of the input into --outDir.
func emittingRunner(fs afero.Fs, calls *[]recordedCall) Runner {
	return func(_ context.Context, dir, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{dir: dir, name: name, args: args})
		var outDir string
		sourceMap := false
		for i, a := range args {
			switch a {
			case "--outDir":
				outDir = args[i+1]
			case "--sourceMap":
				sourceMap = true
			}
		}
		base := filepath.Base(args[len(args)-1])
		code := "var FormsModule = /** @class */ (function () {\n    function FormsModule() {}\n    return FormsModule;\n}());\n"
		if sourceMap {
			code += "//# sourceMappingURL=" + base + ".map"
			if err := afero.WriteFile(fs, filepath.Join(outDir, base+".map"), []byte(`{"version":3}`), 0o644); err != nil {
				return nil, err
			}
		}
		return nil, afero.WriteFile(fs, filepath.Join(outDir, base), []byte(code), 0o644)
	}
}

func TestTSCLowerer_Lower(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/node_modules/.bin/tsc", nil, 0o755))
	out := "/work/dist/forms.umd.js"
	require.NoError(t, afero.WriteFile(fs, out, []byte("export class FormsModule {}\n"), 0o644))

	var calls []recordedCall
	lowerer := NewTSCLowerer(fs, newFakeTools(fs, emittingRunner(fs, &calls)), zap.NewNop())
	err := lowerer.Lower(context.Background(), LowerRequest{Input: out, Output: out, SourceMap: true})
	require.NoError(t, err)

	require.Len(t, calls, 1)
	args := calls[0].args
	assert.Contains(t, args, "--allowJs")
	assert.Contains(t, args, "--noResolve")
	assert.Equal(t, out, args[len(args)-1])
	assert.Subset(t, args, []string{"--target", "es5", "--module", "es2015", "--rootDir", "/work/dist"})

	code, err := afero.ReadFile(fs, out)
	require.NoError(t, err)
	assert.Contains(t, string(code), "function FormsModule()")
	assert.Contains(t, string(code), "//# sourceMappingURL=forms.umd.js.map\n")
	assert.NotContains(t, string(code), "class FormsModule")

	exists, _ := afero.Exists(fs, out+".map")
	assert.True(t, exists)

	var scratch string
	for i, a := range args {
		if a == "--outDir" {
			scratch = args[i+1]
		}
	}
	exists, _ = afero.DirExists(fs, scratch)
	assert.False(t, exists, "scratch dir is removed")
}

func TestTSCLowerer_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/node_modules/.bin/tsc", nil, 0o755))

	var calls []recordedCall
	failing := NewTSCLowerer(fs, newFakeTools(fs, fakeRunner("in.js(1,5): error TS1134", errors.New("exit status 2"), &calls)), zap.NewNop())
	err := failing.Lower(context.Background(), LowerRequest{Input: "/work/in.js", Output: "/work/out.js"})
	var bundleErr *errs.BundleError
	require.ErrorAs(t, err, &bundleErr)
	assert.Equal(t, "transform", bundleErr.Step)
	assert.Contains(t, bundleErr.Message, "TS1134")

	silent := NewTSCLowerer(fs, newFakeTools(fs, fakeRunner("", nil, &calls)), zap.NewNop())
	err = silent.Lower(context.Background(), LowerRequest{Input: "/work/in.js", Output: "/work/out.js"})
	require.ErrorAs(t, err, &bundleErr)
	assert.Contains(t, bundleErr.Message, "emitted no in.js")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, silent.Lower(ctx, LowerRequest{Input: "/work/in.js", Output: "/work/out.js"}), context.Canceled)
}
