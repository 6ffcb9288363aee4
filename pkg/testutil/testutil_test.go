package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumet023/proplate/pkg/errors"
)

func TestWriteTree(t *testing.T) {
	SkipOnWindows(t)
	root := t.TempDir()

	WriteTree(t, root, Tree{
		"README.md":   "hello\n",
		"src/main.go": "package main\n",
		"bin/run.sh*": "#!/bin/sh\n",
		"empty/":      "",
		"link":        "-> README.md",
	})

	AssertFileContent(t, filepath.Join(root, "README.md"), "hello\n")
	AssertFileContent(t, filepath.Join(root, "src", "main.go"), "package main\n")

	info, err := os.Stat(filepath.Join(root, "bin", "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	info, err = os.Stat(filepath.Join(root, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	target, err := os.Readlink(filepath.Join(root, "link"))
	require.NoError(t, err)
	assert.Equal(t, "README.md", target)
}

func TestSnapshot(t *testing.T) {
	SkipOnWindows(t)
	root := t.TempDir()
	WriteTree(t, root, Tree{
		"a.txt": "a",
		"dir/b": "b",
		"ln":    "-> a.txt",
	})

	snap := TakeSnapshot(t, root)
	assert.Equal(t, []string{"a.txt", "dir", "dir/b", "ln"}, snap.Paths())
	assert.Equal(t, "file", snap["a.txt"].Kind)
	assert.Equal(t, "dir", snap["dir"].Kind)
	assert.Equal(t, "symlink", snap["ln"].Kind)

	AssertUnchanged(t, snap, root)

	CreateFile(t, root, "dir/b", "changed")
	after := TakeSnapshot(t, root)
	assert.NotEqual(t, snap["dir/b"].Checksum, after["dir/b"].Checksum)
	assert.Equal(t, snap["a.txt"], after["a.txt"])
}

func TestSnapshotMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "absent")
	assert.Nil(t, TakeSnapshot(t, root))
	AssertUnchanged(t, nil, root)
}

func TestAssertErrorCode(t *testing.T) {
	AssertErrorCode(t, errors.New(errors.ErrHookFailed, "boom"), errors.ErrHookFailed)
	AssertNoFile(t, filepath.Join(t.TempDir(), "nothing"))
}
