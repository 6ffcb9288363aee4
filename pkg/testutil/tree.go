package testutil

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tree maps slash-separated paths to file contents. A path ending in "/"
// is an empty directory; content starting with "->" makes a symlink to
// the rest of the string; a "*" suffix on the path marks the file
// executable.
type Tree map[string]string

// WriteTree materializes tree under root
func WriteTree(t *testing.T, root string, tree Tree) {
	t.Helper()

	names := make([]string, 0, len(tree))
	for name := range tree {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		content := tree[name]
		switch {
		case strings.HasSuffix(name, "/"):
			CreateDir(t, root, strings.TrimSuffix(name, "/"))
		case strings.HasPrefix(content, "->"):
			CreateSymlink(t, strings.TrimSpace(strings.TrimPrefix(content, "->")),
				filepath.Join(root, filepath.FromSlash(name)))
		case strings.HasSuffix(name, "*"):
			CreateExecutable(t, root, strings.TrimSuffix(name, "*"), content)
		default:
			CreateFile(t, root, name, content)
		}
	}
}

// SnapshotEntry describes one path in a Snapshot
type SnapshotEntry struct {
	Kind     string // "file", "dir" or "symlink"
	Mode     fs.FileMode
	Checksum string // sha256 of file content or symlink target
}

func (e SnapshotEntry) String() string {
	return fmt.Sprintf("%s %s %.12s", e.Kind, e.Mode.Perm(), e.Checksum)
}

// Snapshot records every path below a root. A missing root yields nil.
type Snapshot map[string]SnapshotEntry

// TakeSnapshot walks root without following symlinks
func TakeSnapshot(t *testing.T, root string) Snapshot {
	t.Helper()

	if _, err := os.Lstat(root); os.IsNotExist(err) {
		return nil
	}

	snap := make(Snapshot)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		entry := SnapshotEntry{Mode: info.Mode().Perm()}
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entry.Kind = "symlink"
			entry.Checksum = checksum([]byte(target))
			// link permissions are platform noise
			entry.Mode = 0
		case d.IsDir():
			entry.Kind = "dir"
		default:
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			entry.Kind = "file"
			entry.Checksum = checksum(content)
		}
		snap[rel] = entry
		return nil
	})
	require.NoError(t, err, "snapshot %s", root)
	return snap
}

// Paths returns the recorded paths, sorted, without the root itself
func (s Snapshot) Paths() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		if p != "." {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// AssertUnchanged checks that root still matches before
func AssertUnchanged(t *testing.T, before Snapshot, root string) {
	t.Helper()

	after := TakeSnapshot(t, root)
	assert.Equal(t, before, after, "%s changed", root)
}

func checksum(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
