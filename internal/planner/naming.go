package planner

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/pathutil"
	"github.com/josephgoksu/ngbuild/internal/pkgjson"
)

// formatDirPattern matches output directory names that already carry the
// module format, such as "esm2015", "fesm5" or "bundles-umd".
var formatDirPattern = regexp.MustCompile(`(^|-)(f?esm\d*|umd)$`)

// scriptTargetHints map path fragments to the script target they imply,
// checked in order.
var scriptTargetHints = []struct {
	fragment string
	target   string
}{
	{"esm2017", "es2017"},
	{"esm2016", "es2016"},
	{"esm2015", "es2015"},
	{"esm5", "es5"},
	{"es5", "es5"},
	{".umd.", "es5"},
}

// inferScriptTarget guesses the script target a file was emitted for from its path.
// It returns "" when nothing matches.
func inferScriptTarget(p string) string {
	lower := strings.ToLower(filepath.ToSlash(p))
	for _, h := range scriptTargetHints {
		if strings.Contains(lower, h.fragment) {
			return h.target
		}
	}
	return ""
}

// formatSuffix returns the module format and script target suffix of a bundle
// file name, e.g. ".esm", ".umd" or ".esm.es5".
func formatSuffix(outDir string, index int, target config.BundleTarget, libraryTarget, scriptTarget string) string {
	var b strings.Builder
	dirName := strings.ToLower(filepath.Base(outDir))
	formatDir := formatDirPattern.MatchString(dirName)
	firstDefault := index == 0 && target.LibraryTarget == ""
	if !formatDir && !firstDefault {
		if libraryTarget == config.LibraryTargetES {
			b.WriteString(".esm")
		} else {
			b.WriteString("." + libraryTarget)
		}
	}
	if target.ScriptTarget != "" && libraryTarget != config.LibraryTargetUMD && !formatDir {
		b.WriteString("." + scriptTarget)
	}
	return b.String()
}

// namingTokens returns the package tokens available to outDir and outFileName.
func namingTokens(pkg *pkgjson.Package) map[string]string {
	if pkg == nil {
		return pkgjson.Identity{}.Tokens()
	}
	return pkg.Tokens()
}

// outputFileName computes the bundle file name (rule order: explicit
// outFileName, package name, entry base name). ".js" is appended when missing.
func outputFileName(target config.BundleTarget, libraryTarget, suffix, entryFile string, pkg *pkgjson.Package) string {
	entryName := pathutil.StripExt(entryFile)

	var name string
	switch {
	case target.OutFileName != "":
		tokens := namingTokens(pkg)
		tokens["name"] = entryName
		name = pathutil.ReplaceTokens(target.OutFileName, tokens)
	case pkg != nil && pkg.PackageName != "":
		name = pkg.PackageName
		if libraryTarget == config.LibraryTargetUMD && pkg.ParentName != "" {
			name = pkg.ParentName + "-" + pkg.PackageName
		}
		name += suffix
	default:
		name = entryName + suffix
	}

	if !strings.HasSuffix(strings.ToLower(name), ".js") {
		name += ".js"
	}
	return name
}

// minifiedPath returns "<file minus .js>.min.js".
func minifiedPath(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ".min.js"
}

// umdGlobalName derives a global name from a package name:
// "@acme/forms-core" becomes "acme.formsCore".
func umdGlobalName(pkg *pkgjson.Package, fallback string) string {
	name := fallback
	if pkg != nil && pkg.Name != "" {
		name = pkg.Name
	}
	name = strings.TrimPrefix(name, "@")
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = camelCase(seg)
	}
	return strings.Join(segments, ".")
}

func camelCase(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		switch {
		case r == '-' || r == '_' || r == '.':
			upper = b.Len() > 0
		case upper:
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
