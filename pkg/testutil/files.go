package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumet023/proplate/pkg/errors"
)

// CreateFile writes content to dir/name, creating parent directories.
// name uses forward slashes.
func CreateFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	return writeFile(t, dir, name, content, 0644)
}

// CreateExecutable is CreateFile with mode 0755
func CreateExecutable(t *testing.T, dir, name, content string) string {
	t.Helper()
	return writeFile(t, dir, name, content, 0755)
}

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "create parent of %s", path)
	require.NoError(t, os.WriteFile(path, []byte(content), mode), "write %s", path)
	// WriteFile honours the umask; tests rely on the exact bits
	require.NoError(t, os.Chmod(path, mode))
	return path
}

// CreateDir creates parent/name and returns its path
func CreateDir(t *testing.T, parent, name string) string {
	t.Helper()

	path := filepath.Join(parent, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(path, 0755), "create %s", path)
	return path
}

// CreateSymlink creates link pointing at target
func CreateSymlink(t *testing.T, target, link string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(t, os.Symlink(target, link), "symlink %s -> %s", link, target)
}

// ReadFile returns the content of path
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err, "read %s", path)
	return string(content)
}

// AssertFileContent checks that path exists with the expected content
func AssertFileContent(t *testing.T, path, expected string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if !assert.NoError(t, err, "read %s", path) {
		return
	}
	assert.Equal(t, expected, string(content), "content of %s", path)
}

// AssertNoFile checks that nothing exists at path
func AssertNoFile(t *testing.T, path string) {
	t.Helper()

	_, err := os.Lstat(path)
	assert.True(t, os.IsNotExist(err), "%s exists but should not", path)
}

// AssertErrorCode checks that err carries code
func AssertErrorCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()

	if !assert.Error(t, err) {
		return
	}
	assert.Equal(t, code, errors.GetErrorCode(err), "error: %v", err)
}

// SkipOnWindows skips tests that depend on POSIX modes or symlinks
func SkipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("not supported on windows")
	}
}
