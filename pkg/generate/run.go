package generate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/hooks"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/planner"
	"github.com/yumet023/proplate/pkg/render"
	"github.com/yumet023/proplate/pkg/synthfs"
	"github.com/yumet023/proplate/pkg/templates"
	"github.com/yumet023/proplate/pkg/types"
	"github.com/yumet023/proplate/pkg/variables"
)

// StagingPrefix starts the name of every staging directory
const StagingPrefix = ".proplate-staging-"

// run is the state of a single request
type run struct {
	g      *Generator
	req    Request
	res    *types.Result
	target string
	logger zerolog.Logger

	tmpl         *templates.Template
	vars         types.Variables
	plan         *types.Plan
	targetExists bool

	// staging is cleared once it has been renamed onto the target
	staging string
	failed  bool
}

func (r *run) enter(stage types.Stage) {
	r.res.Stages = append(r.res.Stages, stage)
	r.logger.Debug().Str("stage", string(stage)).Msg("Entering stage")
}

// checkpoint fails with CANCELLED once ctx is done
func (r *run) checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, errors.ErrCancelled, "generation cancelled during %s", r.res.LastStage())
	}
	return nil
}

func (r *run) execute(ctx context.Context) error {
	cfg := r.g.cfg.Generation
	overwrite := r.req.Overwrite || cfg.Overwrite

	r.enter(types.StageLoading)
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	tmpl, err := r.g.loader.Load(ctx, r.req.TemplateID)
	if err != nil {
		return err
	}
	r.tmpl = tmpl
	r.logger.Info().Str("source", string(tmpl.Source)).Str("manifest", tmpl.ManifestFile).Msg("Template loaded")

	r.enter(types.StageResolvingVariables)
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	resolver := variables.NewResolver(r.g.prompter)
	vars, err := resolver.Resolve(ctx, tmpl.Manifest, r.req.Variables, r.req.Interactive || cfg.Interactive)
	if err != nil {
		return err
	}
	r.vars = vars
	r.res.Variables = vars

	r.enter(types.StagePlanning)
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	exists, err := planner.CheckTarget(r.target, overwrite)
	if err != nil {
		return err
	}
	r.targetExists = exists
	plan, err := planner.Build(planner.Input{
		FS:        tmpl.FS,
		Root:      tmpl.Root,
		Manifest:  tmpl.Manifest,
		Variables: vars,
		Target:    r.target,
	}, planner.Options{
		Overwrite:  overwrite,
		SniffBytes: r.g.cfg.Render.SniffBytes,
		Literal:    r.g.cfg.Render.Literal,
	})
	if err != nil {
		return err
	}
	r.plan = plan
	r.res.Plan = plan

	if r.req.DryRun {
		r.res.Status = types.StatusPlanned
		r.logger.Info().Int("actions", plan.Len()).Msg("Dry run planned")
		return nil
	}

	r.enter(types.StageStagingWrite)
	if err := r.stage(ctx); err != nil {
		return err
	}

	r.enter(types.StageCommittingPreHooks)
	if err := r.runPreHooks(ctx); err != nil {
		return err
	}
	// last point at which cancelling leaves the target untouched
	if err := r.checkpoint(ctx); err != nil {
		return err
	}
	if err := r.commit(); err != nil {
		return err
	}

	r.enter(types.StageCommitted)
	r.res.Created = plan.Outputs()
	r.logger.Info().Int("paths", len(r.res.Created)).Msg("Committed")

	r.enter(types.StageRunningPostHooks)
	if err := r.runPostHooks(ctx, r.req.Git || cfg.Git); err != nil {
		r.res.Status = types.StatusPartial
		r.res.HookError = err
		r.logger.Warn().Err(err).Msg("Post hooks failed, generated files were kept")
		return nil
	}

	r.enter(types.StageDone)
	r.res.Status = types.StatusSuccess
	return nil
}

func (r *run) stage(ctx context.Context) error {
	parent := filepath.Dir(r.target)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return errors.IO(err, "create", parent)
	}
	staging := filepath.Join(parent, StagingPrefix+uuid.NewString())
	if err := os.Mkdir(staging, 0755); err != nil {
		return errors.IO(err, "create", staging)
	}
	r.staging = staging
	r.logger.Debug().Str("staging", staging).Msg("Staging directory created")

	entries, err := r.entries(ctx)
	if err != nil {
		return err
	}
	return r.g.stager.Stage(ctx, staging, entries)
}

// entries reads and renders every writing action of the plan
func (r *run) entries(ctx context.Context) ([]synthfs.Entry, error) {
	renderer := render.New(r.vars)
	out := make([]synthfs.Entry, 0, r.plan.Len())

	for _, action := range r.plan.Actions() {
		if err := r.checkpoint(ctx); err != nil {
			return nil, err
		}
		switch action.Kind {
		case types.ActionSkip:
			continue
		case types.ActionMkdir:
			out = append(out, synthfs.Entry{Path: action.Dest, Dir: true, Mode: action.Mode})
			continue
		}

		content, err := fs.ReadFile(r.tmpl.FS, action.Source)
		if err != nil {
			return nil, errors.IO(err, "read", action.Source)
		}
		if action.Kind == types.ActionRender {
			content, err = renderer.Render(content, action.Source)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, synthfs.Entry{Path: action.Dest, Content: content, Mode: action.Mode})
	}
	return out, nil
}

func (r *run) manifestHooks(phase types.Phase) []manifest.Hook {
	list := r.tmpl.Manifest.HooksFor(phase)
	if len(list) > 0 && r.g.cfg.Hooks.Disabled {
		r.logger.Warn().Str("phase", string(phase)).Int("count", len(list)).Msg("Hooks are disabled, skipping")
		return nil
	}
	return list
}

func (r *run) runPreHooks(ctx context.Context) error {
	list := r.manifestHooks(types.PhasePre)
	if len(list) == 0 {
		return nil
	}
	results, err := r.g.hooks.Run(ctx, hooks.Request{
		Phase:      types.PhasePre,
		Hooks:      list,
		Variables:  r.vars,
		TemplateID: r.req.TemplateID,
		Root:       r.staging,
		Target:     r.target,
	})
	r.res.Hooks = append(r.res.Hooks, results...)
	return err
}

func (r *run) runPostHooks(ctx context.Context, git bool) error {
	list := r.manifestHooks(types.PhasePost)
	if git {
		list = append(list, r.gitSteps(ctx)...)
	}
	if len(list) == 0 {
		return nil
	}
	results, err := r.g.hooks.Run(ctx, hooks.Request{
		Phase:      types.PhasePost,
		Hooks:      list,
		Variables:  r.vars,
		TemplateID: r.req.TemplateID,
		Root:       r.target,
		Target:     r.target,
	})
	r.res.Hooks = append(r.res.Hooks, results...)
	return err
}

// cleanup removes the staging directory and any fetched template files
func (r *run) cleanup() {
	if r.staging != "" {
		if r.failed && r.g.cfg.Generation.KeepStaging {
			r.logger.Warn().Str("staging", r.staging).Msg("Keeping staging directory")
		} else if err := synthfs.Remove(r.staging); err != nil {
			r.logger.Error().Err(err).Str("staging", r.staging).Msg("Cannot remove staging directory")
		}
	}
	if r.tmpl != nil {
		if err := r.tmpl.Cleanup(); err != nil {
			r.logger.Warn().Err(err).Msg("Cannot remove fetched template")
		}
	}
}
