package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateScratchDir checks that dir is safe to remove recursively: it must be
// a direct child of baseDir whose name starts with prefix. Symlinks in baseDir
// are resolved when it exists, so a scratch path reached through a symlinked
// base is compared against the same canonical parent.
func ValidateScratchDir(dir, baseDir, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("scratch prefix must not be empty")
	}

	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory path: %w", err)
	}

	parent := filepath.Dir(absDir)
	if resolved, err := filepath.EvalSymlinks(parent); err == nil {
		parent = resolved
	}
	if resolved, err := filepath.EvalSymlinks(absBase); err == nil {
		absBase = resolved
	}

	if parent != absBase {
		return fmt.Errorf("path traversal detected: %s is not directly inside %s", dir, baseDir)
	}
	name := filepath.Base(absDir)
	if !strings.HasPrefix(name, prefix) || name == prefix {
		return fmt.Errorf("refusing to remove %s: name does not look like a %q scratch directory", dir, prefix)
	}
	return nil
}
