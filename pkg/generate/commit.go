package generate

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/types"
)

// commit moves the staged tree into the target. A missing target is
// replaced by the staging directory in one rename; an existing one gets
// each planned path replaced atomically, in plan order.
func (r *run) commit() error {
	if !r.targetExists {
		if err := os.Rename(r.staging, r.target); err != nil {
			return errors.IO(err, "rename", r.target)
		}
		r.logger.Debug().Str("staging", r.staging).Msg("Staging directory renamed onto target")
		r.staging = ""
		return nil
	}

	for _, action := range r.plan.Actions() {
		if !action.Writes() {
			continue
		}
		src := filepath.Join(r.staging, filepath.FromSlash(action.Dest))
		dst := filepath.Join(r.target, filepath.FromSlash(action.Dest))

		if action.Kind == types.ActionMkdir {
			if err := os.MkdirAll(dst, 0755); err != nil {
				return errors.IO(err, "create", dst)
			}
			continue
		}
		if err := replaceFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func replaceFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.IO(err, "stat", src)
	}
	f, err := os.Open(src)
	if err != nil {
		return errors.IO(err, "open", src)
	}
	defer func() { _ = f.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.IO(err, "create", filepath.Dir(dst))
	}
	if err := atomic.WriteFile(dst, f); err != nil {
		return errors.IO(err, "write", dst)
	}
	// atomic.WriteFile keeps the mode of a replaced file, or uses the temp
	// file's 0600 for a new one
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return errors.IO(err, "chmod", dst)
	}
	return nil
}

// gitSteps are the synthetic post hooks of a --git request
func (r *run) gitSteps(ctx context.Context) []manifest.Hook {
	var steps []manifest.Hook
	if !r.g.inWorkTree(ctx, r.target) {
		steps = append(steps, manifest.Hook{Phase: types.PhasePost, Run: "git init"})
	}
	return append(steps,
		manifest.Hook{Phase: types.PhasePost, Run: "git add -A"},
		manifest.Hook{Phase: types.PhasePost, Run: `git commit -m "chore: initial commit" --allow-empty`},
	)
}

func insideWorkTree(ctx context.Context, dir string) bool {
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--is-inside-work-tree").Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}
