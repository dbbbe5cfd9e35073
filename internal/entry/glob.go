package entry

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// File is one concrete copy operation produced by expanding an Entry.
// Dest is relative to the output directory.
type File struct {
	Src  string
	Dest string
}

// Expand resolves e against fsys into concrete files.
// Glob entries are matched relative to the entry context; dot files are
// skipped unless the glob object sets "dot". Directories are copied recursively.
func Expand(fsys afero.Fs, e Entry) ([]File, error) {
	if e.IsGlob() {
		return expandGlob(fsys, e)
	}

	src := e.Source()
	info, err := fsys.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("entry %q not found in %s: %w", e.From, e.Context, err)
		}
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}

	if !info.IsDir() {
		return []File{{Src: src, Dest: fileDest(e)}}, nil
	}

	destRoot := e.To
	if destRoot == "" {
		destRoot = defaultDest(e)
	}

	var files []File
	err = afero.Walk(fsys, src, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		files = append(files, File{Src: p, Dest: filepath.Join(destRoot, rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", src, err)
	}
	return files, nil
}

func expandGlob(fsys afero.Fs, e Entry) ([]File, error) {
	pattern, dot := e.Pattern()
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}

	exists, err := afero.DirExists(fsys, e.Context)
	if err != nil {
		return nil, fmt.Errorf("check glob context %s: %w", e.Context, err)
	}
	if !exists {
		return nil, nil
	}

	iofs := afero.NewIOFS(afero.NewBasePathFs(fsys, e.Context))
	matches, err := doublestar.Glob(iofs, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	var files []File
	for _, m := range matches {
		if !dot && hasDotSegment(m) {
			continue
		}
		src := filepath.Join(e.Context, filepath.FromSlash(m))
		info, err := fsys.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", src, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, File{Src: src, Dest: filepath.FromSlash(path.Join(filepath.ToSlash(e.To), m))})
	}
	return files, nil
}

func fileDest(e Entry) string {
	if e.To == "" {
		return defaultDest(e)
	}
	if strings.HasSuffix(e.To, "/") || strings.HasSuffix(e.To, string(filepath.Separator)) || filepath.Ext(e.To) == "" {
		return filepath.Join(e.To, filepath.Base(e.From))
	}
	return filepath.Clean(e.To)
}

func defaultDest(e Entry) string {
	if filepath.IsAbs(e.From) {
		return filepath.Base(e.From)
	}
	clean := filepath.Clean(e.From)
	if strings.HasPrefix(clean, "..") {
		return filepath.Base(clean)
	}
	return clean
}

func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
