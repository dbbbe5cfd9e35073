package entry

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/josephgoksu/ngbuild/internal/errs"
)

type rawDll struct {
	Entry    json.RawMessage `json:"entry"`
	Excludes []string        `json:"excludes"`
}

// ParseDlls normalizes a dll declaration into module entries.
// Accepted shapes: "module", ["a", "b"] and {"entry": ..., "excludes": [...]}.
// Module names are resolved by the bundler from context (the project root).
func ParseDlls(raw json.RawMessage, context, path string) ([]Entry, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var (
		names    []string
		excludes []string
	)
	switch trimmed[0] {
	case '{':
		var obj rawDll
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, errs.InvalidConfig(path, "invalid dll declaration: %v", err)
		}
		list, err := stringList(obj.Entry, path+".entry")
		if err != nil {
			return nil, err
		}
		names, excludes = list, obj.Excludes
	default:
		list, err := stringList(trimmed, path)
		if err != nil {
			return nil, err
		}
		names = list
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(excludes, name) {
			continue
		}
		entries = append(entries, Entry{From: name, Context: context})
	}
	return entries, nil
}

func stringList(raw json.RawMessage, path string) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errs.InvalidConfig(path, "entry is required")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, errs.InvalidConfig(path, "invalid value: %v", err)
		}
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, errs.InvalidConfig(path, "must be a string or an array of strings")
	}
	return list, nil
}
