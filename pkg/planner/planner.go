package planner

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/paths"
	"github.com/yumet023/proplate/pkg/render"
	"github.com/yumet023/proplate/pkg/types"
)

// Input is everything a plan depends on
type Input struct {
	// FS is the template tree
	FS fs.FS
	// Root is the template's directory on disk, empty for embedded templates.
	// When set, symlinks in the tree must resolve inside it.
	Root      string
	Manifest  *manifest.Manifest
	Variables types.Variables
	// Target is the directory the plan will be committed to
	Target string
}

// Options tune planning
type Options struct {
	Overwrite bool
	// SniffBytes is how much of a file is inspected for binary content
	SniffBytes int
	// Literal adds patterns to the manifest's literal list
	Literal []string
}

type planner struct {
	in       Input
	opts     Options
	rules    []compiledRule
	excludes *listMatcher
	literals *listMatcher
	renderer *render.Renderer
	realRoot string
	targetOK bool // target exists and is a directory
	seen     map[string]string
	actions  []types.PlannedAction
	logger   zerolog.Logger
}

// Build computes the plan for in. It reads the template tree and stats the
// target but writes nothing.
func Build(in Input, opts Options) (*types.Plan, error) {
	logger := logging.GetLogger("planner")
	if opts.SniffBytes <= 0 {
		opts.SniffBytes = render.DefaultSniffBytes
	}

	targetExists, err := CheckTarget(in.Target, opts.Overwrite)
	if err != nil {
		return nil, err
	}

	rules, err := compileRules(in.Manifest)
	if err != nil {
		return nil, err
	}
	excludes, err := newListMatcher(in.Manifest.Exclude)
	if err != nil {
		return nil, err
	}
	literals, err := newListMatcher(append(append([]string{}, in.Manifest.Literal...), opts.Literal...))
	if err != nil {
		return nil, err
	}

	p := &planner{
		in:       in,
		opts:     opts,
		rules:    rules,
		excludes: excludes,
		literals: literals,
		renderer: render.New(in.Variables),
		targetOK: targetExists,
		seen:     make(map[string]string),
		logger:   logger,
	}
	if in.Root != "" {
		p.realRoot, err = filepath.EvalSymlinks(in.Root)
		if err != nil {
			return nil, errors.IO(err, "resolve", in.Root)
		}
	}

	if err := p.walk(".", ""); err != nil {
		return nil, err
	}

	plan := types.NewPlan(p.actions)
	logger.Debug().
		Str("template", in.Manifest.ID).
		Int("actions", plan.Len()).
		Int("render", plan.Count(types.ActionRender)).
		Int("copy", plan.Count(types.ActionCopy)).
		Int("skip", plan.Count(types.ActionSkip)).
		Msg("Plan built")
	return plan, nil
}

// CheckTarget verifies that target may receive generated files and reports
// whether it already exists
func CheckTarget(target string, overwrite bool) (bool, error) {
	info, err := os.Stat(target)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.IO(err, "stat", target)
	}
	if !info.IsDir() {
		return true, errors.Newf(errors.ErrTargetNotEmpty, "target %s exists and is not a directory", target).
			WithDetail("path", target)
	}
	if overwrite {
		return true, nil
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return true, errors.IO(err, "read", target)
	}
	if len(entries) > 0 {
		return true, errors.Newf(errors.ErrTargetNotEmpty,
			"target %s is not empty (%d entries); use overwrite to generate into it", target, len(entries)).
			WithDetail("path", target)
	}
	return true, nil
}

func (p *planner) skip(rel, reason string) {
	p.actions = append(p.actions, types.PlannedAction{Kind: types.ActionSkip, Source: rel, Reason: reason})
	p.logger.Debug().Str("source", rel).Str("reason", reason).Msg("Skipping entry")
}

func (p *planner) walk(srcDir, destDir string) error {
	entries, err := fs.ReadDir(p.in.FS, srcDir)
	if err != nil {
		return errors.IO(err, "read", srcDir)
	}

	// ReadDirFS implementations are not required to sort
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		rel := path.Join(srcDir, entry.Name())

		if manifest.IsReserved(rel) {
			p.skip(rel, "reserved")
			continue
		}
		if p.excludes.match(rel) {
			p.skip(rel, "excluded")
			continue
		}

		outcome, err := applyRules(p.rules, rel, p.in.Variables)
		if err != nil {
			return err
		}
		if outcome.skip {
			p.skip(rel, outcome.reason)
			continue
		}

		dest, err := p.destination(rel, destDir, entry.Name(), outcome.rename)
		if err != nil {
			return err
		}

		info, err := p.stat(rel, entry)
		if err != nil {
			return err
		}

		if info.IsDir() && entry.Type()&fs.ModeSymlink != 0 {
			p.skip(rel, "symlinked directory")
			continue
		}
		if info.IsDir() {
			if err := p.claim(dest, rel, true); err != nil {
				return err
			}
			p.actions = append(p.actions, types.PlannedAction{
				Kind:   types.ActionMkdir,
				Source: rel,
				Dest:   dest,
				Mode:   info.Mode().Perm(),
			})
			if err := p.walk(rel, dest); err != nil {
				return err
			}
			continue
		}

		if !info.Mode().IsRegular() {
			p.skip(rel, "not a regular file")
			continue
		}
		if err := p.claim(dest, rel, false); err != nil {
			return err
		}
		action, err := p.classify(rel, dest, info)
		if err != nil {
			return err
		}
		p.actions = append(p.actions, action)
	}
	return nil
}

// destination renders the entry's target path. A rename replaces the whole
// path and may contain separators; otherwise the rendered name must stay a
// single segment and is appended to the parent's destination.
func (p *planner) destination(rel, destDir, name, rename string) (string, error) {
	var dest string
	if rename != "" {
		rendered, err := p.renderer.RenderString(rename, rel)
		if err != nil {
			return "", err
		}
		dest = rendered
	} else {
		rendered, err := p.renderer.RenderName(name, rel)
		if err != nil {
			return "", err
		}
		dest = path.Join(destDir, rendered)
	}

	cleaned, err := paths.CleanRelative(dest)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrUnsafePath, "destination of %s escapes the target", rel).
			WithDetail("path", dest).
			WithDetail("source", rel)
	}
	if _, err := paths.ResolveWithin(p.in.Target, cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}

// stat follows symlinks, which must stay inside the template root
func (p *planner) stat(rel string, entry fs.DirEntry) (fs.FileInfo, error) {
	if entry.Type()&fs.ModeSymlink == 0 {
		info, err := entry.Info()
		if err != nil {
			return nil, errors.IO(err, "stat", rel)
		}
		return info, nil
	}

	if p.realRoot != "" {
		resolved, err := filepath.EvalSymlinks(filepath.Join(p.in.Root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, errors.Newf(errors.ErrUnsafePath, "template symlink %s is dangling", rel).
				WithDetail("path", rel)
		}
		if !paths.ContainsPath(p.realRoot, resolved) {
			return nil, errors.Newf(errors.ErrUnsafePath, "template symlink %s leads outside the template", rel).
				WithDetail("path", rel).
				WithDetail("resolved", resolved)
		}
	}
	info, err := fs.Stat(p.in.FS, rel)
	if err != nil {
		return nil, errors.IO(err, "stat", rel)
	}
	return info, nil
}

// claim records dest and rejects collisions, both between planned entries
// and with existing target entries of the other type
func (p *planner) claim(dest, rel string, dir bool) error {
	if prev, ok := p.seen[dest]; ok {
		return errors.Newf(errors.ErrUnsafePath, "%s and %s both produce %s", prev, rel, dest).
			WithDetail("path", dest).
			WithDetail("source", rel)
	}
	p.seen[dest] = rel

	if !p.targetOK {
		return nil
	}
	existing, err := os.Lstat(filepath.Join(p.in.Target, filepath.FromSlash(dest)))
	if err != nil {
		return nil
	}
	if dir != existing.IsDir() {
		return errors.Newf(errors.ErrTargetNotEmpty, "%s already exists in the target with a different type", dest).
			WithDetail("path", dest)
	}
	return nil
}

func (p *planner) classify(rel, dest string, info fs.FileInfo) (types.PlannedAction, error) {
	action := types.PlannedAction{
		Kind:   types.ActionCopy,
		Source: rel,
		Dest:   dest,
		Mode:   info.Mode().Perm(),
		Size:   info.Size(),
	}

	if p.literals.match(rel) {
		action.Reason = "literal"
		return action, nil
	}

	content, err := fs.ReadFile(p.in.FS, rel)
	if err != nil {
		return action, errors.IO(err, "read", rel)
	}
	action.Size = int64(len(content))

	switch {
	case render.IsBinary(render.Sniff(content, p.opts.SniffBytes)):
		action.Reason = "binary"
	case render.HasMarkers(content) || render.HasMarkersString(rel):
		action.Kind = types.ActionRender
	}
	return action, nil
}
