// Package pathutil confines backup, restore, and scenario file access to
// known directories.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/metakg/internal/store"
)

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
// "/home/user/.metakg/config.yaml" becomes ".../.metakg/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// Resolve cleans path, resolves symlinks on its existing ancestors, and
// returns the absolute result if it lies inside one of allowedDirs.
func Resolve(path string, allowedDirs []string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path validation failed: path is empty")
	}
	if len(allowedDirs) == 0 {
		return "", fmt.Errorf("path validation failed: no allowed directories configured")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("path validation failed: path contains null byte")
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}

	// The file may not exist yet, so only the parent chain is resolved.
	resolvedDir, err := resolveExisting(filepath.Dir(absPath))
	if err != nil {
		return "", fmt.Errorf("path validation failed: cannot resolve parent directory: %w", err)
	}
	resolved := filepath.Join(resolvedDir, filepath.Base(absPath))

	for _, allowed := range allowedDirs {
		allowedAbs, err := filepath.Abs(filepath.Clean(allowed))
		if err != nil {
			continue
		}
		allowedResolved, err := resolveExisting(allowedAbs)
		if err != nil {
			continue
		}
		if isSubpath(resolved, allowedResolved) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(absPath))
}

// ValidatePath reports whether path lies inside one of allowedDirs.
func ValidatePath(path string, allowedDirs []string) error {
	_, err := Resolve(path, allowedDirs)
	return err
}

// resolveExisting evaluates symlinks on the deepest existing ancestor of dir
// and re-appends the missing tail.
func resolveExisting(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(dir)
	if parent == dir {
		return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
	}
	resolvedParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(dir)), nil
}

// isSubpath reports whether path equals base or sits beneath it.
func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}

// BackupDirs returns ~/.metakg/backups and, when projectRoot is set,
// <projectRoot>/.metakg/backups.
func BackupDirs(projectRoot string) ([]string, error) {
	global, err := store.GlobalMetaKGPath()
	if err != nil {
		return nil, err
	}
	dirs := []string{filepath.Join(global, "backups")}
	if projectRoot != "" {
		dirs = append(dirs, filepath.Join(store.LocalMetaKGPath(projectRoot), "backups"))
	}
	return dirs, nil
}

// ScenarioDirs returns the directories scenario files may be loaded from:
// the project root and ~/.metakg/scenarios.
func ScenarioDirs(projectRoot string) ([]string, error) {
	global, err := store.GlobalMetaKGPath()
	if err != nil {
		return nil, err
	}
	dirs := []string{filepath.Join(global, "scenarios")}
	if projectRoot != "" {
		dirs = append(dirs, projectRoot)
	}
	return dirs, nil
}
