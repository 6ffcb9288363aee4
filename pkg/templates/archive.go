package templates

import (
	"archive/tar"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/paths"
)

// MaxArchiveSize caps downloads and the unpacked size of any single file
const MaxArchiveSize = 256 << 20

type compression string

const (
	compressionGzip compression = "gzip"
	compressionZstd compression = "zstd"
)

// ArchiveFetcher downloads and unpacks .tar.gz, .tgz and .tar.zst templates
type ArchiveFetcher struct {
	logger     zerolog.Logger
	client     *http.Client
	retries    uint64
	newBackOff func() backoff.BackOff
}

// NewArchiveFetcher retries failed downloads up to retries times with
// exponential backoff. A nil client uses one with the given timeout.
func NewArchiveFetcher(client *http.Client, timeout time.Duration, retries int) *ArchiveFetcher {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if retries < 0 {
		retries = 0
	}
	return &ArchiveFetcher{
		logger:  logging.GetLogger("templates.archive"),
		client:  client,
		retries: uint64(retries),
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

func (a *ArchiveFetcher) Name() string { return string(SourceArchive) }

func (a *ArchiveFetcher) Supports(id string) bool {
	_, ok := archiveCompression(id)
	return ok
}

func archiveCompression(id string) (compression, bool) {
	u, err := url.Parse(id)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	p := strings.ToLower(u.Path)
	switch {
	case strings.HasSuffix(p, ".tar.gz"), strings.HasSuffix(p, ".tgz"):
		return compressionGzip, true
	case strings.HasSuffix(p, ".tar.zst"):
		return compressionZstd, true
	}
	return "", false
}

// Fetch downloads id into dest, unpacks it into dest/tree and strips a single
// top-level directory
func (a *ArchiveFetcher) Fetch(ctx context.Context, id, dest string) (string, error) {
	comp, ok := archiveCompression(id)
	if !ok {
		return "", errors.Newf(errors.ErrInvalidInput, "%s is not a supported archive URL", id)
	}

	archive := filepath.Join(dest, "download")
	if err := a.download(ctx, id, archive); err != nil {
		return "", err
	}

	f, err := os.Open(archive)
	if err != nil {
		return "", errors.IO(err, "open", archive)
	}
	defer func() { _ = f.Close() }()

	tree := filepath.Join(dest, "tree")
	if err := os.MkdirAll(tree, 0755); err != nil {
		return "", errors.IO(err, "create", tree)
	}
	if err := extract(f, comp, tree); err != nil {
		return "", err
	}
	return singleTopLevel(tree)
}

func (a *ArchiveFetcher) download(ctx context.Context, id, file string) error {
	attempt := 0
	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := a.client.Do(req)
		if err != nil {
			a.logger.Debug().Err(err).Int("attempt", attempt).Msg("Download failed")
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("GET %s: %s", id, resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			a.logger.Debug().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("Download failed")
			return fmt.Errorf("GET %s: %s", id, resp.Status)
		}

		out, err := os.Create(file)
		if err != nil {
			return backoff.Permanent(err)
		}
		n, err := io.Copy(out, io.LimitReader(resp.Body, MaxArchiveSize+1))
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if n > MaxArchiveSize {
			return backoff.Permanent(fmt.Errorf("archive exceeds %s", humanize.IBytes(MaxArchiveSize)))
		}
		a.logger.Debug().Str("size", humanize.IBytes(uint64(n))).Int("attempt", attempt).Msg("Downloaded archive")
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(a.newBackOff(), a.retries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), errors.ErrCancelled, "download of %s cancelled", id)
		}
		return errors.Wrapf(err, errors.ErrIOFailure, "download %s", id).
			WithDetail("url", id).
			WithDetail("attempts", attempt)
	}
	return nil
}

func extract(r io.Reader, comp compression, dest string) error {
	var src io.Reader
	switch comp {
	case compressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return errors.Wrap(err, errors.ErrIOFailure, "invalid gzip archive")
		}
		defer func() { _ = gz.Close() }()
		src = gz
	case compressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return errors.Wrap(err, errors.ErrIOFailure, "invalid zstd archive")
		}
		defer zr.Close()
		src = zr
	default:
		return errors.Newf(errors.ErrInvalidInput, "unknown compression %s", comp)
	}

	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrIOFailure, "reading archive")
		}

		name := path.Clean(strings.TrimPrefix(filepath.ToSlash(hdr.Name), "./"))
		if name == "." || name == "" {
			continue
		}
		rel, err := paths.CleanRelative(name)
		if err != nil {
			return errors.Wrapf(err, errors.ErrUnsafePath, "archive entry %s escapes the template", hdr.Name)
		}
		target := filepath.Join(dest, filepath.FromSlash(rel))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.IO(err, "create", target)
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			link := filepath.ToSlash(hdr.Linkname)
			if path.IsAbs(link) {
				return errors.Newf(errors.ErrUnsafePath, "archive symlink %s points to absolute %s", rel, link)
			}
			if _, err := paths.CleanRelative(path.Join(path.Dir(rel), link)); err != nil {
				return errors.Wrapf(err, errors.ErrUnsafePath, "archive symlink %s escapes the template", rel)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return errors.IO(err, "create", filepath.Dir(target))
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return errors.IO(err, "symlink", target)
			}
		default:
			// hard links, devices and fifos have no place in a template
		}
	}
}

func writeEntry(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.IO(err, "create", filepath.Dir(target))
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0600)
	if err != nil {
		return errors.IO(err, "create", target)
	}
	n, err := io.Copy(out, io.LimitReader(r, MaxArchiveSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.IO(err, "write", target)
	}
	if n > MaxArchiveSize {
		return errors.Newf(errors.ErrIOFailure, "archive entry %s exceeds %s", target, humanize.IBytes(MaxArchiveSize))
	}
	return nil
}

// singleTopLevel returns the only directory inside dir when dir holds
// nothing else, as release tarballs usually do
func singleTopLevel(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.IO(err, "read", dir)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}
