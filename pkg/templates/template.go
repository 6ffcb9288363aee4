package templates

import (
	"io/fs"

	"github.com/yumet023/proplate/pkg/manifest"
)

// Source tells where a template came from
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceLocal   Source = "local"
	SourceGit     Source = "git"
	SourceArchive Source = "archive"
)

// ReadmeNames are tried in order by Template.Readme
var ReadmeNames = []string{"README.md", "readme.md", "README"}

// Template is a loaded template ready for planning
type Template struct {
	// ID is the identifier the template was requested with
	ID     string
	Source Source
	FS     fs.FS
	// Root is the template directory on disk, empty for built-ins
	Root         string
	Manifest     *manifest.Manifest
	ManifestFile string

	cleanup func() error
}

// Cleanup removes fetched files. It is safe to call more than once.
func (t *Template) Cleanup() error {
	if t == nil || t.cleanup == nil {
		return nil
	}
	fn := t.cleanup
	t.cleanup = nil
	return fn()
}

// Readme returns the template's README, if it has one
func (t *Template) Readme() ([]byte, bool) {
	for _, name := range ReadmeNames {
		if data, err := fs.ReadFile(t.FS, name); err == nil {
			return data, true
		}
	}
	return nil, false
}
