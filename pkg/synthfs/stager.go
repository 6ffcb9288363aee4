// Package synthfs materializes a rendered plan into a staging directory
// through a single synthfs pipeline.
package synthfs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	"github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"
	"github.com/rs/zerolog"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
)

// Entry is one path to stage. Path is slash separated and relative to the
// staging root.
type Entry struct {
	Path    string
	Dir     bool
	Content []byte
	Mode    fs.FileMode
}

// Executor stages entries with synthfs, rolling back on the first failure
type Executor struct {
	logger     zerolog.Logger
	filesystem filesystem.FullFileSystem
	rollback   bool
}

// NewExecutor creates an executor over the real filesystem
func NewExecutor() *Executor {
	osfs := filesystem.NewOSFileSystem("/")
	return &Executor{
		logger:     logging.GetLogger("synthfs"),
		filesystem: synthfs.NewPathAwareFileSystem(osfs, "/").WithAbsolutePaths(),
		rollback:   true,
	}
}

// Stage writes entries under root, which must already exist. Parent
// directories missing from entries are created first.
func (e *Executor) Stage(ctx context.Context, root string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errors.IO(err, "resolve", root)
	}

	sfs := synthfs.New()
	ops := make([]synthfs.Operation, 0, len(entries))
	opPaths := make(map[synthfs.OperationID]string, len(entries))
	created := map[string]bool{".": true}

	addDir := func(rel string, mode fs.FileMode) {
		id := fmt.Sprintf("mkdir_%d", len(ops))
		op := sfs.CreateDirWithID(id, filepath.Join(absRoot, filepath.FromSlash(rel)), dirMode(mode))
		ops = append(ops, op)
		opPaths[op.ID()] = rel
		created[rel] = true
	}

	for _, entry := range entries {
		for _, parent := range parents(entry.Path) {
			if !created[parent] {
				addDir(parent, 0)
			}
		}

		if entry.Dir {
			if !created[entry.Path] {
				addDir(entry.Path, entry.Mode)
			}
			continue
		}

		id := fmt.Sprintf("write_%d", len(ops))
		op := sfs.CreateFileWithID(id, filepath.Join(absRoot, filepath.FromSlash(entry.Path)), entry.Content, fileMode(entry.Mode))
		ops = append(ops, op)
		opPaths[op.ID()] = entry.Path
	}

	options := synthfs.DefaultPipelineOptions()
	options.RollbackOnError = e.rollback

	e.logger.Debug().
		Str("root", absRoot).
		Int("operationCount", len(ops)).
		Bool("rollbackEnabled", e.rollback).
		Msg("Executing synthfs operations")

	result, err := synthfs.RunWithOptions(ctx, e.filesystem, options, ops...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), errors.ErrCancelled, "staging cancelled")
	}

	failed := failedPath(result, opPaths)
	e.logger.Error().Err(err).Str("path", failed).Msg("Staging failed")
	return errors.IO(err, "stage", failed)
}

func failedPath(result *synthfs.Result, opPaths map[synthfs.OperationID]string) string {
	if result == nil {
		return ""
	}
	for _, op := range result.GetOperations() {
		if r, ok := op.(synthfs.OperationResult); ok && r.Status != synthfs.StatusSuccess {
			return opPaths[r.OperationID]
		}
	}
	return ""
}

// parents lists the ancestors of a slash path, outermost first
func parents(p string) []string {
	var out []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		out = append([]string{dir}, out...)
	}
	return out
}

func dirMode(m fs.FileMode) fs.FileMode {
	if m.Perm() == 0 {
		return 0755
	}
	return m.Perm() | 0700
}

func fileMode(m fs.FileMode) fs.FileMode {
	if m.Perm() == 0 {
		return 0644
	}
	return m.Perm() | 0600
}

// Remove deletes a staging tree. Missing trees are not an error.
func Remove(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return errors.IO(err, "remove", root)
	}
	return nil
}
