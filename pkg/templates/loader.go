package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agext/levenshtein"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/paths"
)

// MaxSuggestionDistance bounds the edit distance of "did you mean" hints
const MaxSuggestionDistance = 3

// Fetcher retrieves remote templates
type Fetcher interface {
	// Name identifies the fetcher in logs and as the template source
	Name() string
	// Supports reports whether the fetcher handles id
	Supports(id string) bool
	// Fetch materializes id under dest, which exists and is empty, and
	// returns the template root, dest itself or a directory below it
	Fetch(ctx context.Context, id, dest string) (string, error)
}

// Loader resolves identifiers to templates
type Loader struct {
	logger   zerolog.Logger
	catalog  *Catalog
	fetchers []Fetcher
	fetchDir string
	version  string
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithFetchers appends remote fetchers, tried in order
func WithFetchers(fetchers ...Fetcher) LoaderOption {
	return func(l *Loader) { l.fetchers = append(l.fetchers, fetchers...) }
}

// WithFetchDir sets where fetched templates are unpacked
func WithFetchDir(dir string) LoaderOption {
	return func(l *Loader) { l.fetchDir = dir }
}

// WithVersion sets the proplate version checked against manifest requires
func WithVersion(v string) LoaderOption {
	return func(l *Loader) { l.version = v }
}

// NewLoader creates a loader over catalog
func NewLoader(catalog *Catalog, opts ...LoaderOption) *Loader {
	l := &Loader{
		logger:   logging.GetLogger("templates.loader"),
		catalog:  catalog,
		fetchDir: paths.New().FetchDir(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Catalog returns the loader's built-in catalog
func (l *Loader) Catalog() *Catalog {
	return l.catalog
}

// Load resolves id: built-in name, then fetchers, then local directory
func (l *Loader) Load(ctx context.Context, id string) (*Template, error) {
	if id == "" {
		return nil, errors.New(errors.ErrTemplateNotFound, "no template given")
	}
	opts := manifest.Options{Version: l.version}

	if l.catalog != nil && l.catalog.Has(id) {
		fsys, err := l.catalog.Get(id)
		if err != nil {
			return nil, err
		}
		m, file, err := manifest.Load(fsys, opts)
		if err != nil {
			return nil, err
		}
		l.logger.Debug().Str("template", id).Msg("Loaded built-in template")
		return &Template{ID: id, Source: SourceBuiltin, FS: fsys, Manifest: m, ManifestFile: file}, nil
	}

	for _, f := range l.fetchers {
		if !f.Supports(id) {
			continue
		}
		return l.fetch(ctx, f, id, opts)
	}

	dir := paths.SanitizePath(id)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		tmpl, err := loadDir(dir, opts)
		if err != nil {
			return nil, err
		}
		tmpl.ID = id
		tmpl.Source = SourceLocal
		return tmpl, nil
	}

	return nil, l.notFound(id)
}

func (l *Loader) fetch(ctx context.Context, f Fetcher, id string, opts manifest.Options) (*Template, error) {
	dest := filepath.Join(l.fetchDir, uuid.NewString())
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, errors.IO(err, "create", dest)
	}
	cleanup := func() error {
		if err := os.RemoveAll(dest); err != nil {
			return errors.IO(err, "remove", dest)
		}
		return nil
	}

	l.logger.Info().Str("template", id).Str("fetcher", f.Name()).Str("dest", dest).Msg("Fetching template")
	root, err := f.Fetch(ctx, id, dest)
	if err != nil {
		_ = cleanup()
		if errors.IsErrorCode(err, errors.ErrCancelled) || ctx.Err() != nil {
			return nil, errors.Wrapf(err, errors.ErrCancelled, "fetching %s cancelled", id)
		}
		return nil, errors.Wrapf(err, errors.ErrTemplateNotFound, "cannot fetch template %s", id).
			WithDetail("template", id).
			WithDetail("fetcher", f.Name())
	}

	tmpl, err := loadDir(root, opts)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	tmpl.ID = id
	tmpl.Source = Source(f.Name())
	tmpl.cleanup = cleanup
	return tmpl, nil
}

func loadDir(dir string, opts manifest.Options) (*Template, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.IO(err, "resolve", dir)
	}
	fsys := os.DirFS(abs)
	m, file, err := manifest.Load(fsys, opts)
	if err != nil {
		return nil, err
	}
	return &Template{FS: fsys, Root: abs, Manifest: m, ManifestFile: file}, nil
}

func (l *Loader) notFound(id string) error {
	err := errors.Newf(errors.ErrTemplateNotFound, "template %q not found", id).
		WithDetail("template", id)
	if s := l.Suggest(id); s != "" {
		err.Message = fmt.Sprintf("template %q not found, did you mean %q?", id, s)
		err.WithDetail("suggestion", s)
	}
	return err
}

// Suggest returns the built-in name closest to id, or "" when none is
// within MaxSuggestionDistance
func (l *Loader) Suggest(id string) string {
	if l.catalog == nil {
		return ""
	}
	best, bestDist := "", MaxSuggestionDistance+1
	for _, name := range l.catalog.Names() {
		if d := levenshtein.Distance(id, name, nil); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
