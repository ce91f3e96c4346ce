package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/scribe/internal/config"
	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/errors"
)

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // for import (read file)
	PathCheckWrite                      // for export (write file)
)

// ValidatePath validates a filesystem path used by import or export.
// It checks:
// 1. Path traversal (.. sequences)
// 2. Extension (.txt, .md or .markdown)
// 3. Directory restrictions (file must be DIRECTLY in the default imports/exports
// directory or an allowed_paths entry, no subdirectories)
// 4. Symlink safety (parent dir and file must not be symlinks)
//
// Keeping files directly in a vetted directory means no intermediate component
// can be swapped for a symlink between validation and open; O_NOFOLLOW covers
// the final component.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}

	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if !slices.Contains(docs.AllowedExtensions, strings.ToLower(filepath.Ext(cleaned))) {
		return errors.NewInvalidRequest(
			fmt.Sprintf("path must have one of the extensions %s", strings.Join(docs.AllowedExtensions, ", ")))
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	// Unsafe mode lifts directory checks only; symlinks are still rejected.
	if cfg == nil || !cfg.AllowUnsafePaths {
		allowedDirs, err := getAllowedDirs(mode, cfg)
		if err != nil {
			return err
		}

		parentDir := filepath.Dir(absPath)
		if !isDirectlyInAllowedDir(parentDir, allowedDirs) {
			return errors.NewInvalidRequest(
				fmt.Sprintf("file must be directly in an allowed directory (no subdirectories); allowed: %v",
					allowedDirs))
		}

		if info, err := os.Lstat(parentDir); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	info, err := os.Lstat(absPath)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink != 0:
		return errors.NewInvalidRequest("path must not be a symlink")
	case err != nil && mode == PathCheckRead:
		return errors.NewNotFound(path)
	}
	return nil
}

// DefaultImportsDir returns ~/.scribe/imports.
func DefaultImportsDir() (string, error) {
	return scribeSubdir("imports")
}

// DefaultExportsDir returns ~/.scribe/exports.
func DefaultExportsDir() (string, error) {
	return scribeSubdir("exports")
}

func scribeSubdir(name string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, ".scribe", name), nil
}

// getAllowedDirs returns the allowed directories for mode (absolute, cleaned,
// symlinks resolved).
func getAllowedDirs(mode PathCheckMode, cfg *config.Config) ([]string, error) {
	defaultDir, err := DefaultExportsDir()
	if mode == PathCheckRead {
		defaultDir, err = DefaultImportsDir()
	}
	if err != nil {
		return nil, err
	}
	dirs := []string{defaultDir}

	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, filepath.Clean(p))
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}
	return result, nil
}

// isDirectlyInAllowedDir reports whether parentDir is exactly one of the allowed directories.
func isDirectlyInAllowedDir(parentDir string, allowedDirs []string) bool {
	parentDir = filepath.Clean(parentDir)
	for _, dir := range allowedDirs {
		if parentDir == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// containsTraversal checks if path contains ".." directory traversal.
func containsTraversal(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if part == ".." {
			return true
		}
	}
	if filepath.Separator != '/' {
		for _, part := range strings.Split(path, "/") {
			if part == ".." {
				return true
			}
		}
	}
	return false
}
