// Package entry normalizes the shorthand asset, style, script and dll
// declarations of a project config into canonical Entry records.
//
// A declaration may be a single string, a single object or an array mixing
// both. Strings are treated as the "from" side; objects may carry "from",
// "to" and "context". For styles and scripts "input" and "bundleName" are
// accepted as aliases of "from" and "to".
package entry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

// Glob is the object form of a glob "from" value.
type Glob struct {
	Pattern string `json:"glob"`
	Dot     bool   `json:"dot,omitempty"`
}

// Entry is the parsed form of one declared entry.
type Entry struct {
	From    string `json:"from,omitempty" yaml:"from,omitempty"`
	Glob    *Glob  `json:"glob,omitempty" yaml:"glob,omitempty"`
	To      string `json:"to,omitempty" yaml:"to,omitempty"`
	Context string `json:"context" yaml:"context"`
}

// IsGlob reports whether the entry must be expanded against the filesystem.
func (e Entry) IsGlob() bool {
	return e.Glob != nil || hasMagic(e.From)
}

// Pattern returns the glob pattern and dot flag for glob entries.
func (e Entry) Pattern() (string, bool) {
	if e.Glob != nil {
		return e.Glob.Pattern, e.Glob.Dot
	}
	return e.From, false
}

// Source returns the absolute source path for non-glob entries.
func (e Entry) Source() string {
	if filepath.IsAbs(e.From) {
		return filepath.Clean(e.From)
	}
	return filepath.Join(e.Context, e.From)
}

// Kind selects the alias set accepted by the object form.
type Kind int

const (
	KindAsset Kind = iota
	KindStyle
	KindScript
)

type rawObject struct {
	From       json.RawMessage `json:"from"`
	Input      json.RawMessage `json:"input"`
	To         string          `json:"to"`
	BundleName string          `json:"bundleName"`
	Context    string          `json:"context"`
}

// Parse normalizes raw into entries resolved against context.
// path is the config path of the declaration and is used in errors.
func Parse(raw json.RawMessage, kind Kind, context, path string) ([]Entry, error) {
	items, err := splitItems(raw, path)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		itemPath := path
		if len(items) > 1 || isArray(raw) {
			itemPath = fmt.Sprintf("%s[%d]", path, i)
		}
		e, err := parseItem(item, kind, context, itemPath)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ParseAssets is Parse for asset declarations.
func ParseAssets(raw json.RawMessage, context, path string) ([]Entry, error) {
	return Parse(raw, KindAsset, context, path)
}

// ParseStyles is Parse for global style declarations.
func ParseStyles(raw json.RawMessage, context, path string) ([]Entry, error) {
	return Parse(raw, KindStyle, context, path)
}

// ParseScripts is Parse for global script declarations.
func ParseScripts(raw json.RawMessage, context, path string) ([]Entry, error) {
	return Parse(raw, KindScript, context, path)
}

func parseItem(item json.RawMessage, kind Kind, context, path string) (Entry, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Entry{}, errs.InvalidConfig(path, "invalid entry: %v", err)
		}
		if strings.TrimSpace(s) == "" {
			return Entry{}, errs.InvalidConfig(path, "entry must not be empty")
		}
		return Entry{From: s, Context: context}, nil
	}

	var obj rawObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return Entry{}, errs.InvalidConfig(path, "entry must be a string or an object")
	}

	from := obj.From
	to := obj.To
	if kind != KindAsset {
		if len(from) == 0 {
			from = obj.Input
		}
		if to == "" {
			to = obj.BundleName
		}
	}
	if len(bytes.TrimSpace(from)) == 0 {
		return Entry{}, errs.InvalidConfig(path+".from", "from is required")
	}

	e := Entry{To: to, Context: context}
	if obj.Context != "" {
		e.Context = resolveContext(context, obj.Context)
	}

	from = bytes.TrimSpace(from)
	switch from[0] {
	case '"':
		if err := json.Unmarshal(from, &e.From); err != nil {
			return Entry{}, errs.InvalidConfig(path+".from", "invalid value: %v", err)
		}
		if strings.TrimSpace(e.From) == "" {
			return Entry{}, errs.InvalidConfig(path+".from", "from must not be empty")
		}
	case '{':
		var g Glob
		if err := json.Unmarshal(from, &g); err != nil {
			return Entry{}, errs.InvalidConfig(path+".from", "invalid glob: %v", err)
		}
		if g.Pattern == "" {
			return Entry{}, errs.InvalidConfig(path+".from.glob", "glob is required")
		}
		if kind != KindAsset {
			return Entry{}, errs.InvalidConfig(path+".from", "glob entries are only supported for assets")
		}
		e.Glob = &g
	default:
		return Entry{}, errs.InvalidConfig(path+".from", "from must be a string or a glob object")
	}
	return e, nil
}

func splitItems(raw json.RawMessage, path string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		return []json.RawMessage{trimmed}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, errs.InvalidConfig(path, "invalid entry list: %v", err)
	}
	return items, nil
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func resolveContext(base, ctx string) string {
	if filepath.IsAbs(ctx) {
		return filepath.Clean(ctx)
	}
	return filepath.Join(base, ctx)
}

func hasMagic(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
