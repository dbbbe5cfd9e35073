package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

func TestToTargetAndFormat(t *testing.T) {
	assert.Equal(t, api.ES5, toTarget("es5"))
	assert.Equal(t, api.ES2017, toTarget("ES2017"))
	assert.Equal(t, api.ESNext, toTarget("esnext"))
	assert.Equal(t, api.ES2015, toTarget("unknown"))

	assert.Equal(t, api.FormatESModule, toFormat("es"))
	assert.Equal(t, api.FormatCommonJS, toFormat("commonjs"))
	assert.Equal(t, api.FormatIIFE, toFormat("umd"))
	assert.Equal(t, api.FormatIIFE, toFormat("iife"))

	assert.Equal(t, api.PlatformNode, toPlatform("node"))
	assert.Equal(t, api.PlatformBrowser, toPlatform("web"))
}

func TestESBuild_TransformInPlace(t *testing.T) {
	fs := afero.NewMemMapFs()
	out := "/dist/esm2015/index.js"
	require.NoError(t, afero.WriteFile(fs, out, []byte("export const pick = (a, b) => a ?? b;\n"), 0o644))

	es := NewESBuild(fs, "/", zap.NewNop())
	err := es.Transform(context.Background(), TransformRequest{
		Input:        out,
		Output:       out,
		TempPath:     out + ".tmp",
		ScriptTarget: "es2015",
	})
	require.NoError(t, err)

	code, err := afero.ReadFile(fs, out)
	require.NoError(t, err)
	assert.Contains(t, string(code), "=>")
	assert.NotContains(t, string(code), "??")

	exists, _ := afero.Exists(fs, out+".tmp")
	assert.False(t, exists)
}

func TestESBuild_TransformError(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in.js", []byte("var = ;"), 0o644))

	err := NewESBuild(fs, "/", zap.NewNop()).Transform(context.Background(), TransformRequest{Input: "/in.js", Output: "/out.js", ScriptTarget: "es5"})
	var bundleErr *errs.BundleError
	require.ErrorAs(t, err, &bundleErr)
	assert.Equal(t, "transform", bundleErr.Step)

	err = NewESBuild(fs, "/", zap.NewNop()).Transform(context.Background(), TransformRequest{Input: "/missing.js", Output: "/out.js"})
	assert.ErrorAs(t, err, &bundleErr)
}

func TestESBuild_Minify(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := "var someLongVariableName = 1;\nfunction add(first, second) {\n  return first + second;\n}\nconsole.log(add(someLongVariableName, 2));\n"
	require.NoError(t, afero.WriteFile(fs, "/dist/core.umd.js", []byte(src), 0o644))

	err := NewESBuild(fs, "/", zap.NewNop()).Minify(context.Background(), MinifyRequest{
		Input:     "/dist/core.umd.js",
		Output:       "/dist/core.umd.min.js",
		ScriptTarget: "es5",
		SourceMap:    true,
	})
	require.NoError(t, err)

	code, err := afero.ReadFile(fs, "/dist/core.umd.min.js")
	require.NoError(t, err)
	assert.Less(t, len(code), len(src))
	assert.Contains(t, string(code), "sourceMappingURL=core.umd.min.js.map")

	exists, _ := afero.Exists(fs, "/dist/core.umd.min.js.map")
	assert.True(t, exists)
}

func TestESBuild_Bundle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("import { value } from './value.js';\nexport const doubled = value * 2;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "value.js"), []byte("export const value = 21;\n"), 0o644))

	es := NewESBuild(afero.NewOsFs(), dir, zap.NewNop())
	outFile := filepath.Join(dir, "dist", "core.esm.js")
	res, err := es.Bundle(context.Background(), BundleConfig{
		EntryPoints:  []string{filepath.Join(dir, "index.js")},
		OutFile:      outFile,
		Format:       "es",
		ScriptTarget: "es2015",
		Banner:       "/* core */",
		SourceMap:    true,
	})
	require.NoError(t, err)
	require.False(t, res.HadErrors, res.Errors)
	assert.Contains(t, res.Outputs, outFile)
	assert.Contains(t, res.Outputs, outFile+".map")

	code, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(code), "/* core */"))
	assert.Contains(t, string(code), "doubled")
}

func TestESBuild_BundleErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte("import './missing.js';\n"), 0o644))

	res, err := NewESBuild(afero.NewOsFs(), dir, zap.NewNop()).Bundle(context.Background(), BundleConfig{
		EntryPoints: []string{filepath.Join(dir, "index.js")},
		OutFile:     filepath.Join(dir, "out.js"),
		Format:      "es",
	})
	require.NoError(t, err)
	assert.True(t, res.HadErrors)
	assert.Contains(t, res.Errors, "missing.js")
	assert.Empty(t, res.Outputs)
}

func TestESBuild_BundleCSS(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.css"), []byte("@import './base.css';\n.app { color: red; }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.css"), []byte("body { margin: 0; }\n"), 0o644))

	es := NewESBuild(afero.NewOsFs(), dir, zap.NewNop())
	css, err := es.BundleCSS(context.Background(), filepath.Join(dir, "main.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "margin: 0")
	assert.Contains(t, string(css), ".app")

	minified, err := es.MinifyCSS(css, "main.css")
	require.NoError(t, err)
	assert.Less(t, len(minified), len(css))
}

type recordingLowerer struct {
	reqs []LowerRequest
}

func (l *recordingLowerer) Lower(_ context.Context, req LowerRequest) error {
	l.reqs = append(l.reqs, req)
	return nil
}

func TestESBuild_TransformES5UsesLowerer(t *testing.T) {
	fs := afero.NewMemMapFs()
	lowerer := &recordingLowerer{}
	es := NewESBuild(fs, "/", zap.NewNop()).WithES5Lowering(lowerer)

	err := es.Transform(context.Background(), TransformRequest{
		Input:        "/dist/esm2015/core.js",
		Output:       "/dist/esm5/core.js",
		ScriptTarget: "es5",
		SourceMap:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, []LowerRequest{{Input: "/dist/esm2015/core.js", Output: "/dist/esm5/core.js", SourceMap: true}}, lowerer.reqs)
}

func TestESBuild_BundleES5(t *testing.T) {
	dir := t.TempDir()
	src := "export class FormsModule {\n  constructor() { const { x } = { x: 1 }; this.x = x; }\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.js"), []byte(src), 0o644))

	lowerer := &recordingLowerer{}
	es := NewESBuild(afero.NewOsFs(), dir, zap.NewNop()).WithES5Lowering(lowerer)
	outFile := filepath.Join(dir, "dist", "forms.umd.js")
	res, err := es.Bundle(context.Background(), BundleConfig{
		EntryPoints:  []string{filepath.Join(dir, "index.js")},
		OutFile:      outFile,
		Format:       "umd",
		GlobalName:   "forms",
		ScriptTarget: "es5",
	})
	require.NoError(t, err)
	require.False(t, res.HadErrors, res.Errors)
	assert.Equal(t, []LowerRequest{{Input: outFile, Output: outFile}}, lowerer.reqs)

	code, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(code), "class FormsModule", "bundled at es2015 before lowering")
}
