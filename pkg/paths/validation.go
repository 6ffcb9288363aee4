package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yumet023/proplate/pkg/errors"
)

// ValidatePath rejects empty paths, null bytes and paths over 4096 bytes
func ValidatePath(p string) error {
	if p == "" {
		return errors.New(errors.ErrInvalidInput, "path cannot be empty")
	}

	if strings.Contains(p, "\x00") {
		return errors.New(errors.ErrInvalidInput, "path contains null bytes")
	}

	// common filesystem limit
	if len(p) > 4096 {
		return errors.New(errors.ErrInvalidInput, "path exceeds maximum length")
	}

	return nil
}

// SanitizePath expands a leading ~ and cleans the path
func SanitizePath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	cleaned := filepath.Clean(p)
	if cleaned == "" {
		return "."
	}
	return cleaned
}

// ContainsPath reports whether child is parent or lies below it
func ContainsPath(parent, child string) bool {
	rel, err := filepath.Rel(SanitizePath(parent), SanitizePath(child))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func unsafePath(p, reason string) *errors.ProplateError {
	return errors.Newf(errors.ErrUnsafePath, "unsafe path %q: %s", p, reason).
		WithDetail("path", p)
}

// CleanRelative validates a slash-separated path meant to live under a root.
// Absolute paths, ".." segments and paths that clean to the root itself are rejected.
func CleanRelative(rel string) (string, error) {
	if err := ValidatePath(rel); err != nil {
		return "", unsafePath(rel, err.Error())
	}
	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", unsafePath(rel, "absolute path")
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", unsafePath(rel, "parent directory segment")
		}
	}
	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return "", unsafePath(rel, "path resolves to the root itself")
	}
	return cleaned, nil
}

// ResolveWithin joins rel onto root and verifies that no existing symlink
// along the way leads outside root. It returns the absolute joined path.
func ResolveWithin(root, rel string) (string, error) {
	cleaned, err := CleanRelative(rel)
	if err != nil {
		return "", err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.IO(err, "resolve", root)
	}
	realRoot := absRoot
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		realRoot = resolved
	}

	current := absRoot
	for _, seg := range strings.Split(cleaned, "/") {
		current = filepath.Join(current, seg)
		info, err := os.Lstat(current)
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			return "", errors.IO(err, "stat", current)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			continue
		}
		resolved, err := filepath.EvalSymlinks(current)
		if err != nil {
			return "", unsafePath(rel, "dangling symlink")
		}
		if !ContainsPath(realRoot, resolved) {
			return "", unsafePath(rel, "symlink leads outside "+root)
		}
	}

	return filepath.Join(absRoot, filepath.FromSlash(cleaned)), nil
}
