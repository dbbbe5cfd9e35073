package executor

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

// cssEngine is the esbuild subset used for stylesheets.
type cssEngine interface {
	BundleCSS(ctx context.Context, src string) ([]byte, error)
	MinifyCSS(css []byte, name string) ([]byte, error)
}

// Styles compiles .css with esbuild, .scss/.sass with the sass CLI and
// .less with lessc.
type Styles struct {
	fs    afero.Fs
	css   cssEngine
	tools *Tools
}

// NewStyleCompiler creates the default StyleCompiler.
func NewStyleCompiler(fs afero.Fs, css cssEngine, tools *Tools) *Styles {
	return &Styles{fs: fs, css: css, tools: tools}
}

// CompileStyles compiles every source and writes their concatenation to OutFile.
func (s *Styles) CompileStyles(ctx context.Context, req StyleRequest) error {
	var buf bytes.Buffer
	for _, src := range req.Sources {
		css, err := s.compile(ctx, src)
		if err != nil {
			return err
		}
		buf.Write(css)
		if !bytes.HasSuffix(css, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}

	out := buf.Bytes()
	if req.Minify {
		minified, err := s.css.MinifyCSS(out, filepath.Base(req.OutFile))
		if err != nil {
			return err
		}
		out = minified
	}
	return writeFile(s.fs, req.OutFile, out)
}

func (s *Styles) compile(ctx context.Context, src string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(src))
	switch ext {
	case ".css":
		return s.css.BundleCSS(ctx, src)
	case ".scss", ".sass":
		return s.external(ctx, src, "sass", "--no-source-map", src)
	case ".less":
		return s.external(ctx, src, "lessc", src)
	default:
		return nil, &errs.UnsupportedStyleExtError{File: src, Ext: ext}
	}
}

func (s *Styles) external(ctx context.Context, src, tool string, args ...string) ([]byte, error) {
	out, err := s.tools.Run(ctx, tool, args...)
	if err != nil {
		return nil, &errs.BundleError{Step: "styles", Message: fmt.Sprintf("%s %s: %s", tool, src, strings.TrimSpace(string(out))), Err: err}
	}
	return out, nil
}
