package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/binder/internal/config"
	"github.com/hpungsan/binder/internal/errors"
)

// ExportExt is the required extension for collection exports.
const ExportExt = ".json"

// DefaultExportsDir returns the directory exports go to when no path is
// given: cfg.ExportDir, or ~/.binder/exports.
func DefaultExportsDir(cfg *config.Config) (string, error) {
	if cfg != nil && filepath.IsAbs(cfg.ExportDir) {
		return filepath.Clean(cfg.ExportDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(home, ".binder", "exports"), nil
}

// defaultExportName names a collection export by its timestamp.
func defaultExportName(now time.Time) string {
	return "binder-" + now.Format("2006-01-02T150405") + ExportExt
}

// ResolveExportPath checks where a collection export may be written and
// returns the absolute destination. An empty path means a timestamped file in
// the exports directory.
//
// The file must sit directly in the exports directory or an allowed_paths
// entry; nested directories are refused so no intermediate component can be
// swapped for a symlink before the write. allow_unsafe_paths lifts the
// directory rule only. A symlinked destination is always refused.
func ResolveExportPath(path string, cfg *config.Config, now time.Time) (string, error) {
	if path == "" {
		dir, err := DefaultExportsDir(cfg)
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, defaultExportName(now))
	}

	if hasTraversal(path) {
		return "", errors.NewInvalidRequest("export path must not contain directory traversal (..)")
	}
	if filepath.Ext(path) != ExportExt {
		return "", errors.NewInvalidRequest("export path must have " + ExportExt + " extension")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid export path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		roots, err := exportRoots(cfg)
		if err != nil {
			return "", err
		}
		parent := filepath.Dir(abs)
		if !roots[parent] {
			return "", errors.NewInvalidRequest(fmt.Sprintf(
				"export must be written directly into the exports directory or an allowed_paths entry (no subdirectories); got %s", parent))
		}
		if isSymlink(parent) {
			return "", errors.NewInvalidRequest("export directory must not be a symlink")
		}
	}

	if isSymlink(abs) {
		return "", errors.NewInvalidRequest("export path must not be a symlink")
	}
	return abs, nil
}

// exportRoots is the set of directories an export may land in, with
// symlinked entries resolved to their targets.
func exportRoots(cfg *config.Config) (map[string]bool, error) {
	exportsDir, err := DefaultExportsDir(cfg)
	if err != nil {
		return nil, err
	}
	dirs := []string{exportsDir}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	roots := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		if isSymlink(d) {
			resolved, err := filepath.EvalSymlinks(d)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve allowed path %s: %v", d, err))
			}
			d = resolved
		}
		roots[d] = true
	}
	return roots, nil
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// hasTraversal reports a ".." component under either separator.
func hasTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}
