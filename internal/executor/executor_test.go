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

	"github.com/josephgoksu/ngbuild/internal/entry"
	"github.com/josephgoksu/ngbuild/internal/errs"
)

type recordedCall struct {
	dir  string
	name string
	args []string
}

func fakeRunner(out string, err error, calls *[]recordedCall) Runner {
	return func(_ context.Context, dir, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedCall{dir: dir, name: name, args: args})
		return []byte(out), err
	}
}

func newFakeTools(fs afero.Fs, run Runner) *Tools {
	tools := NewTools(fs, "/work", run)
	tools.lookPath = func(name string) (string, error) {
		return "", errors.New("not on PATH")
	}
	return tools
}

func TestTools_Find(t *testing.T) {
	fs := afero.NewMemMapFs()
	tools := newFakeTools(fs, nil)

	_, err := tools.Find("tsc")
	assert.Error(t, err)

	local := filepath.Join("/work", "node_modules", ".bin", "tsc")
	require.NoError(t, afero.WriteFile(fs, local, []byte("#!/bin/sh"), 0o755))
	p, err := tools.Find("tsc")
	require.NoError(t, err)
	assert.Equal(t, local, p)

	tools.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	p, err = tools.Find("lessc")
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/lessc", p)
}

func TestTSC_Compile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/node_modules/.bin/tsc", nil, 0o755))

	var calls []recordedCall
	tsc := NewTSC(newFakeTools(fs, fakeRunner("", nil, &calls)), zap.NewNop())
	err := tsc.Compile(context.Background(), CompileRequest{
		TsConfig:    "/work/src/tsconfig.json",
		Target:      "es5",
		Module:      "es2015",
		Declaration: true,
		OutDir:      "/work/dist/esm5",
	})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "/work", calls[0].dir)
	assert.Equal(t, []string{
		"-p", "/work/src/tsconfig.json",
		"--target", "es5",
		"--module", "es2015",
		"--outDir", "/work/dist/esm5",
		"--declaration", "true",
		"--sourceMap", "false",
	}, calls[0].args)

	failing := NewTSC(newFakeTools(fs, fakeRunner("src/index.ts(1,7): error TS2322", errors.New("exit status 2"), &calls)), zap.NewNop())
	err = failing.Compile(context.Background(), CompileRequest{TsConfig: "/work/src/tsconfig.json"})
	var tsErr *errs.TypescriptCompileError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, "/work/src/tsconfig.json", tsErr.TsConfig)
	assert.Contains(t, tsErr.Diagnostics, "TS2322")
}

type fakeCSS struct{}

func (fakeCSS) BundleCSS(_ context.Context, src string) ([]byte, error) {
	return []byte("/* " + filepath.Base(src) + " */"), nil
}

func (fakeCSS) MinifyCSS(css []byte, _ string) ([]byte, error) {
	return append([]byte("min:"), css...), nil
}

func TestStyles_CompileStyles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/node_modules/.bin/sass", nil, 0o755))
	var calls []recordedCall
	styles := NewStyleCompiler(fs, fakeCSS{}, newFakeTools(fs, fakeRunner(".theme{color:red}\n", nil, &calls)))

	err := styles.CompileStyles(context.Background(), StyleRequest{
		Sources: []string{"/work/src/reset.css", "/work/src/theme.scss"},
		OutFile: "/work/dist/styles.css",
	})
	require.NoError(t, err)

	css, err := afero.ReadFile(fs, "/work/dist/styles.css")
	require.NoError(t, err)
	assert.Equal(t, "/* reset.css */\n.theme{color:red}\n", string(css))
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"--no-source-map", "/work/src/theme.scss"}, calls[0].args)

	err = styles.CompileStyles(context.Background(), StyleRequest{Sources: []string{"/work/src/a.css"}, OutFile: "/work/dist/min.css", Minify: true})
	require.NoError(t, err)
	css, _ = afero.ReadFile(fs, "/work/dist/min.css")
	assert.Equal(t, "min:/* a.css */\n", string(css))

	err = styles.CompileStyles(context.Background(), StyleRequest{Sources: []string{"/work/src/theme.styl"}, OutFile: "/work/dist/x.css"})
	var extErr *errs.UnsupportedStyleExtError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, ".styl", extErr.Ext)
}

func TestCopier_Copy(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, f := range []string{
		"/work/src/favicon.ico",
		"/work/src/assets/logo.svg",
		"/work/src/assets/i18n/en.json",
		"/work/src/assets/.hidden",
	} {
		require.NoError(t, afero.WriteFile(fs, f, []byte(f), 0o644))
	}

	entries := []entry.Entry{
		{From: "favicon.ico", Context: "/work/src"},
		{Glob: &entry.Glob{Pattern: "**/*"}, To: "static", Context: "/work/src/assets"},
		{From: "assets", Context: "/work/src"},
	}
	n, err := NewCopier(fs, 2).Copy(context.Background(), entries, "/work/dist")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	for _, f := range []string{
		"/work/dist/favicon.ico",
		"/work/dist/static/logo.svg",
		"/work/dist/static/i18n/en.json",
		"/work/dist/assets/logo.svg",
		"/work/dist/assets/.hidden",
	} {
		exists, _ := afero.Exists(fs, f)
		assert.True(t, exists, f)
	}
	exists, _ := afero.Exists(fs, "/work/dist/static/.hidden")
	assert.False(t, exists, "dot files are skipped by globs")

	_, err = NewCopier(fs, 0).Copy(context.Background(), []entry.Entry{{From: "favicon.ico", To: "../../escape.ico", Context: "/work/src"}}, "/work/dist")
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, f := range []string{"/work/dist/a.js", "/work/dist/keep/b.js", "/work/dist/sub/c.js", "/work/tmp/x"} {
		require.NoError(t, afero.WriteFile(fs, f, nil, 0o644))
	}

	require.NoError(t, Clean(fs, []string{"/work/dist", "/work/tmp", "/work/none"}, []string{"/work/dist/keep"}))

	for f, want := range map[string]bool{
		"/work/dist/a.js":      false,
		"/work/dist/sub":       false,
		"/work/dist/keep/b.js": true,
		"/work/tmp":            false,
	} {
		exists, _ := afero.Exists(fs, f)
		assert.Equal(t, want, exists, f)
	}
}
