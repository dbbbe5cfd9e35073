package resolve

import (
	"path/filepath"
	"strconv"

	"github.com/josephgoksu/ngbuild/internal/config"
	"github.com/josephgoksu/ngbuild/internal/errs"
	"github.com/josephgoksu/ngbuild/internal/pathutil"
)

// Validate enforces the path invariants of a fully merged project config.
// It never touches the filesystem. path is the config path of the project,
// e.g. "apps[2]".
func Validate(projectRoot string, cfg config.ProjectConfig, path string) error {
	outField := path + ".outDir"
	srcField := path + ".srcDir"

	if cfg.OutDir == "" {
		return errs.InvalidConfig(outField, "outDir is required")
	}
	if filepath.IsAbs(cfg.OutDir) || filepath.VolumeName(cfg.OutDir) != "" {
		return errs.InvalidConfig(outField, "outDir must be a relative path, got %q", cfg.OutDir)
	}
	if cfg.SrcDir != "" && (filepath.IsAbs(cfg.SrcDir) || filepath.VolumeName(cfg.SrcDir) != "") {
		return errs.InvalidConfig(srcField, "srcDir must be a relative path, got %q", cfg.SrcDir)
	}
	if pathutil.IsDotPath(cfg.OutDir) {
		return errs.InvalidConfig(outField, "outDir must not be the current directory")
	}

	root := filepath.Clean(projectRoot)
	outDir := pathutil.Resolve(root, cfg.OutDir)
	srcDir := pathutil.Resolve(root, cfg.SrcDir)

	switch {
	case pathutil.IsRoot(outDir):
		return errs.InvalidConfig(outField, "outDir must not be a filesystem root")
	case pathutil.IsSamePath(outDir, pathutil.VolumeRoot(srcDir)):
		return errs.InvalidConfig(outField, "outDir must not be the root of the srcDir volume")
	case pathutil.IsSamePath(outDir, root):
		return errs.InvalidConfig(outField, "outDir must not be the project root")
	case pathutil.IsSamePath(outDir, srcDir):
		return errs.InvalidConfig(outField, "outDir must not be the same as srcDir")
	case pathutil.IsInFolder(outDir, root):
		return errs.InvalidConfig(outField, "outDir must not contain the project root")
	case pathutil.IsInFolder(outDir, srcDir):
		return errs.InvalidConfig(outField, "outDir must not contain srcDir")
	case !pathutil.IsInFolder(root, outDir):
		return errs.InvalidConfig(outField, "outDir %s is outside the project root", cfg.OutDir)
	}

	if cfg.ProjectType == config.ProjectTypeLib {
		return validateLibPaths(outDir, cfg, path)
	}
	return nil
}

// validateLibPaths checks library-only output paths.
func validateLibPaths(outDir string, cfg config.ProjectConfig, path string) error {
	seen := make(map[string]int, len(cfg.TsTranspilations))
	for i, t := range cfg.TsTranspilations {
		field := path + ".tsTranspilations[" + strconv.Itoa(i) + "].outDir"
		if filepath.IsAbs(t.OutDir) {
			return errs.InvalidConfig(field, "outDir must be a relative path, got %q", t.OutDir)
		}
		dir := pathutil.Resolve(outDir, t.OutDir)
		if !pathutil.IsSamePath(dir, outDir) && !pathutil.IsInFolder(outDir, dir) {
			return errs.InvalidConfig(field, "transpilation outDir must stay inside the project outDir")
		}
		key := filepath.Clean(dir)
		if prev, dup := seen[key]; dup {
			return errs.InvalidConfig(field, "transpilation outDir collides with tsTranspilations[%d]", prev)
		}
		seen[key] = i
	}
	for i, b := range cfg.BundleTargets {
		if b.OutDir == "" {
			continue
		}
		field := path + ".bundleTargets[" + strconv.Itoa(i) + "].outDir"
		if filepath.IsAbs(b.OutDir) {
			return errs.InvalidConfig(field, "outDir must be a relative path, got %q", b.OutDir)
		}
	}
	if cfg.PackageJsonOutDir != "" && filepath.IsAbs(cfg.PackageJsonOutDir) {
		return errs.InvalidConfig(path+".packageJsonOutDir", "packageJsonOutDir must be a relative path")
	}
	return nil
}
