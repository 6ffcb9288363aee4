package generate

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/yumet023/proplate/pkg/config"
	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/hooks"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/synthfs"
	"github.com/yumet023/proplate/pkg/templates"
	"github.com/yumet023/proplate/pkg/types"
	"github.com/yumet023/proplate/pkg/variables"
)

// TemplateLoader resolves template identifiers
type TemplateLoader interface {
	Load(ctx context.Context, id string) (*templates.Template, error)
}

// Stager materializes entries under a staging root
type Stager interface {
	Stage(ctx context.Context, root string, entries []synthfs.Entry) error
}

// HookRunner executes one phase of hooks
type HookRunner interface {
	Run(ctx context.Context, req hooks.Request) ([]types.HookResult, error)
}

// Request is one generation request. Interactive, Overwrite and Git are
// combined with the matching generation.* config values.
type Request struct {
	TemplateID string
	TargetDir  string
	// Variables are overrides keyed by variable name. Values are strings or
	// booleans.
	Variables   map[string]interface{}
	Interactive bool
	Overwrite   bool
	Git         bool
	// DryRun stops after planning
	DryRun bool
}

// Failure is the terminal error of a failed request
type Failure struct {
	Stage types.Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// StageOf returns the stage a Generate error failed in, or "" for other errors
func StageOf(err error) types.Stage {
	var f *Failure
	if stderrors.As(err, &f) {
		return f.Stage
	}
	return ""
}

// Generator runs generation requests. It holds no per-request state and
// may be reused.
type Generator struct {
	logger   zerolog.Logger
	loader   TemplateLoader
	prompter variables.Prompter
	hooks    HookRunner
	stager   Stager
	cfg      *config.Config
	version  string
	// inWorkTree reports whether dir is inside a git work tree
	inWorkTree func(ctx context.Context, dir string) bool
}

// Option configures a Generator
type Option func(*Generator)

// WithPrompter sets the collaborator asked for missing values in
// interactive mode
func WithPrompter(p variables.Prompter) Option {
	return func(g *Generator) { g.prompter = p }
}

// WithHookRunner replaces the subprocess hook runner
func WithHookRunner(r HookRunner) Option {
	return func(g *Generator) { g.hooks = r }
}

// WithStager replaces the synthfs staging executor
func WithStager(s Stager) Option {
	return func(g *Generator) { g.stager = s }
}

// WithConfig sets the effective configuration. The default is config.Default().
func WithConfig(cfg *config.Config) Option {
	return func(g *Generator) { g.cfg = cfg }
}

// WithVersion sets the proplate version exported to hooks
func WithVersion(v string) Option {
	return func(g *Generator) { g.version = v }
}

// New creates a generator over loader
func New(loader TemplateLoader, opts ...Option) *Generator {
	g := &Generator{
		logger:     logging.GetLogger("generate"),
		loader:     loader,
		inWorkTree: insideWorkTree,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cfg == nil {
		g.cfg = config.Default()
	}
	if g.stager == nil {
		g.stager = synthfs.NewExecutor()
	}
	if g.hooks == nil {
		env := make(map[string]string, len(g.cfg.Hooks.Env)+1)
		for k, v := range g.cfg.Hooks.Env {
			env[k] = v
		}
		if g.version != "" {
			env[EnvVersion] = g.version
		}
		g.hooks = hooks.NewRunner(hooks.Options{
			Shell:   g.cfg.Hooks.Shell,
			Timeout: g.cfg.Hooks.Timeout,
			Env:     env,
		})
	}
	return g
}

// EnvVersion carries the proplate version into hook environments
const EnvVersion = "PROPLATE_VERSION"

// Generate runs req to completion. The returned result is never nil. On
// failure the error is a *Failure naming the stage; a post hook failure is
// not an error but a result with StatusPartial.
func (g *Generator) Generate(ctx context.Context, req Request) (*types.Result, error) {
	res := &types.Result{TemplateID: req.TemplateID, Status: types.StatusFailed}
	if req.TargetDir == "" {
		res.Stages = append(res.Stages, types.StageLoading, types.StageFailed)
		return res, &Failure{Stage: types.StageLoading, Err: errors.New(errors.ErrInvalidInput, "no target directory given")}
	}
	target, err := filepath.Abs(req.TargetDir)
	if err != nil {
		res.Stages = append(res.Stages, types.StageLoading, types.StageFailed)
		return res, &Failure{Stage: types.StageLoading, Err: errors.IO(err, "resolve", req.TargetDir)}
	}
	res.TargetDir = target

	r := &run{
		g:      g,
		req:    req,
		res:    res,
		target: target,
		logger: g.logger.With().Str("template", req.TemplateID).Str("target", target).Logger(),
	}
	done := logging.LogOperationStart(r.logger, "generate")
	defer done()
	defer r.cleanup()

	if err := r.execute(ctx); err != nil {
		res.Status = types.StatusFailed
		stage := res.LastStage()
		res.Stages = append(res.Stages, types.StageFailed)
		r.failed = true
		r.logger.Error().Err(err).Str("stage", string(stage)).Msg("Generation failed")
		return res, &Failure{Stage: stage, Err: err}
	}
	return res, nil
}
