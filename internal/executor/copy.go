package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/josephgoksu/ngbuild/internal/entry"
	"github.com/josephgoksu/ngbuild/internal/pathutil"
)

// DefaultCopyConcurrency bounds parallel file copies within one assets step.
const DefaultCopyConcurrency = 8

// Copier copies asset entries with bounded parallelism.
type Copier struct {
	fs    afero.Fs
	limit int
}

// NewCopier creates an AssetCopier.
func NewCopier(fs afero.Fs, limit int) *Copier {
	if limit <= 0 {
		limit = DefaultCopyConcurrency
	}
	return &Copier{fs: fs, limit: limit}
}

// Copy expands entries and copies every file into outDir. When several
// entries target the same destination the last declared one wins.
func (c *Copier) Copy(ctx context.Context, entries []entry.Entry, outDir string) (int, error) {
	byDest := map[string]string{}
	var order []string
	for _, e := range entries {
		files, err := entry.Expand(c.fs, e)
		if err != nil {
			return 0, err
		}
		for _, f := range files {
			dest := filepath.Join(outDir, f.Dest)
			if !pathutil.IsInFolder(outDir, dest) {
				return 0, fmt.Errorf("asset %s would be copied outside %s", f.Src, outDir)
			}
			if _, seen := byDest[dest]; !seen {
				order = append(order, dest)
			}
			byDest[dest] = f.Src
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for _, dest := range order {
		src := byDest[dest]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return copyFile(c.fs, src, dest)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(order), nil
}

func copyFile(fs afero.Fs, src, dest string) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	if err := fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}
	out, err := fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// Clean removes paths, keeping anything listed in exclude. Paths that do not
// exist are ignored.
func Clean(fs afero.Fs, paths, exclude []string) error {
	for _, p := range paths {
		if err := cleanPath(fs, filepath.Clean(p), exclude); err != nil {
			return err
		}
	}
	return nil
}

func cleanPath(fs afero.Fs, p string, exclude []string) error {
	for _, ex := range exclude {
		if pathutil.IsSamePath(p, ex) {
			return nil
		}
	}

	var nested bool
	for _, ex := range exclude {
		if pathutil.IsInFolder(p, ex) {
			nested = true
			break
		}
	}
	if !nested {
		if err := fs.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
		return nil
	}

	children, err := afero.ReadDir(fs, p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", p, err)
	}
	for _, child := range children {
		if err := cleanPath(fs, filepath.Join(p, child.Name()), exclude); err != nil {
			return err
		}
	}
	return nil
}
