package templates

import (
	"io/fs"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/registry"
	"github.com/yumet023/proplate/pkg/templates/builtin"
)

// Catalog is the read-only table of built-in templates
type Catalog struct {
	reg registry.Registry[fs.FS]
}

// Summary describes a catalog entry for listings
type Summary struct {
	Name        string
	Description string
	Variables   int
	Err         error
}

// NewCatalog registers every top-level directory of fsys that holds a
// manifest, then seals the catalog
func NewCatalog(fsys fs.FS) (*Catalog, error) {
	logger := logging.GetLogger("templates.catalog")
	reg := registry.New[fs.FS]()

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, errors.IO(err, "read", "built-in templates")
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub, err := fs.Sub(fsys, entry.Name())
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInternal, "template %s", entry.Name())
		}
		if _, err := manifest.Find(sub); err != nil {
			logger.Debug().Str("dir", entry.Name()).Msg("Ignoring directory without manifest")
			continue
		}
		if err := reg.Register(entry.Name(), sub); err != nil {
			return nil, err
		}
	}
	reg.Seal()

	logger.Debug().Int("count", reg.Count()).Msg("Catalog ready")
	return &Catalog{reg: reg}, nil
}

// DefaultCatalog returns the catalog of embedded templates
func DefaultCatalog() (*Catalog, error) {
	return NewCatalog(builtin.FS)
}

// Names returns the registered template names, sorted
func (c *Catalog) Names() []string {
	return c.reg.List()
}

func (c *Catalog) Has(name string) bool {
	return c.reg.Has(name)
}

// Get returns the tree of a built-in template
func (c *Catalog) Get(name string) (fs.FS, error) {
	fsys, err := c.reg.Get(name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTemplateNotFound, "no built-in template %q", name).
			WithDetail("template", name)
	}
	return fsys, nil
}

// Register adds a template. Catalogs built by NewCatalog are sealed, so this
// always fails with PERMISSION for them.
func (c *Catalog) Register(name string, fsys fs.FS) error {
	return c.reg.Register(name, fsys)
}

// Summaries parses every manifest for listing. A broken manifest is
// reported in its summary rather than failing the listing.
func (c *Catalog) Summaries() []Summary {
	names := c.Names()
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		s := Summary{Name: name}
		fsys, err := c.Get(name)
		if err == nil {
			var m *manifest.Manifest
			m, _, err = manifest.Load(fsys, manifest.Options{})
			if err == nil {
				s.Description = m.Description
				s.Variables = len(m.Variables)
			}
		}
		s.Err = err
		out = append(out, s)
	}
	return out
}
