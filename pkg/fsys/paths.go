package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrEmptyPath indicates a path argument was empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrPathContainsNUL indicates the path contains a NUL byte.
	ErrPathContainsNUL = errors.New("path contains NUL byte")
)

// ResolveUserPath normalizes a path given on the command line into an
// absolute path that exists on local disk.
func ResolveUserPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", ErrEmptyPath
	}

	if strings.ContainsRune(p, '\x00') {
		return "", fmt.Errorf("%w: %q", ErrPathContainsNUL, p)
	}

	absPath, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}

	//nolint:gosec // absPath is normalized by filepath.Clean + filepath.Abs.
	_, err = os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", absPath, err)
	}

	return absPath, nil
}

// CollectFiles walks dir on local disk and returns the files accepted by
// keep. Hidden directories and directories named in ignoreDirs are skipped,
// and so are entries below dir that vanish or cannot be read mid-walk.
func CollectFiles(dir string, ignoreDirs []string, keep func(path string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if p == dir || !skippableWalkError(err) {
				return err
			}

			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if entry.IsDir() {
			name := entry.Name()
			if p != dir && (isHiddenDir(name) || slices.Contains(ignoreDirs, name)) {
				return filepath.SkipDir
			}

			return nil
		}

		if keep(p) {
			files = append(files, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	return files, nil
}

func skippableWalkError(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}

// isHiddenDir returns true for directories that start with a dot (e.g. .git),
// except for "." and ".." which are filesystem navigation entries.
func isHiddenDir(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}

// FindProjectRoot walks up from start until a directory holding one of the
// marker files is found. It returns start's directory when none is found.
func FindProjectRoot(start string, markers []string) string {
	dir := start

	info, err := os.Stat(start)
	if err == nil && !info.IsDir() {
		dir = filepath.Dir(start)
	}

	for current := dir; ; {
		for _, marker := range markers {
			//nolint:gosec // current is derived from an already-resolved absolute path.
			if _, statErr := os.Stat(filepath.Join(current, marker)); statErr == nil {
				return current
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}

		current = parent
	}
}
