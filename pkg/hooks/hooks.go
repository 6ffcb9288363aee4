// Package hooks runs a template's pre and post generation commands.
package hooks

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/manifest"
	"github.com/yumet023/proplate/pkg/paths"
	"github.com/yumet023/proplate/pkg/render"
	"github.com/yumet023/proplate/pkg/types"
)

const (
	DefaultShell   = "sh"
	DefaultTimeout = 5 * time.Minute

	EnvTemplate  = "PROPLATE_TEMPLATE"
	EnvTarget    = "PROPLATE_TARGET"
	EnvVarPrefix = "PROPLATE_VAR_"
)

// Options configure a Runner
type Options struct {
	Shell   string
	Timeout time.Duration
	// Env is added to the inherited environment of every hook
	Env map[string]string
}

// Request is one phase worth of hooks
type Request struct {
	Phase      types.Phase
	Hooks      []manifest.Hook
	Variables  types.Variables
	TemplateID string
	// Root is where the phase runs: the staging dir for pre hooks and the
	// target for post hooks. Hook workdirs are relative to it.
	Root string
	// Target is exported to hooks as PROPLATE_TARGET
	Target string
}

// Runner executes hooks synchronously, in order
type Runner struct {
	logger  zerolog.Logger
	shell   string
	timeout time.Duration
	env     map[string]string
}

// NewRunner creates a runner, filling unset options with defaults
func NewRunner(opts Options) *Runner {
	if opts.Shell == "" {
		opts.Shell = DefaultShell
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Runner{
		logger:  logging.GetLogger("hooks"),
		shell:   opts.Shell,
		timeout: opts.Timeout,
		env:     opts.Env,
	}
}

// Run executes req.Hooks in declaration order. It stops at the first
// failure, which is returned as HOOK_FAILED alongside the results of every
// hook that ran, the failed one included.
func (r *Runner) Run(ctx context.Context, req Request) ([]types.HookResult, error) {
	renderer := render.New(req.Variables)
	env := r.environment(req)

	results := make([]types.HookResult, 0, len(req.Hooks))
	for i, hook := range req.Hooks {
		if err := ctx.Err(); err != nil {
			return results, errors.Wrapf(err, errors.ErrCancelled, "%s hooks cancelled", req.Phase)
		}

		command, err := renderer.RenderString(hook.Run, fmt.Sprintf("%s hook %d", req.Phase, i))
		if err != nil {
			return results, err
		}
		dir, err := r.workdir(req, hook, renderer, i)
		if err != nil {
			return results, err
		}

		result := r.execute(ctx, i, req.Phase, command, hook.Shell, dir, env)
		results = append(results, result)
		if result.Succeeded() {
			continue
		}

		if ctx.Err() != nil {
			return results, errors.Wrapf(ctx.Err(), errors.ErrCancelled, "%s hook %d interrupted", req.Phase, i)
		}
		return results, errors.Newf(errors.ErrHookFailed, "%s hook %d (%s) exited with code %d",
			req.Phase, i, command, result.ExitCode).
			WithDetail("index", i).
			WithDetail("exit_code", result.ExitCode).
			WithDetail("phase", string(req.Phase)).
			WithDetail("command", command).
			WithDetail("stderr", strings.TrimSpace(result.Stderr))
	}
	return results, nil
}

func (r *Runner) workdir(req Request, hook manifest.Hook, renderer *render.Renderer, index int) (string, error) {
	if hook.Workdir == "" || hook.Workdir == "." {
		return req.Root, nil
	}
	rel, err := renderer.RenderString(hook.Workdir, fmt.Sprintf("%s hook %d workdir", req.Phase, index))
	if err != nil {
		return "", err
	}
	if filepath.Clean(filepath.FromSlash(rel)) == "." {
		return req.Root, nil
	}
	dir, err := paths.ResolveWithin(req.Root, rel)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrUnsafePath, "%s hook %d workdir %q escapes %s",
			req.Phase, index, rel, req.Root).
			WithDetail("index", index).
			WithDetail("path", rel)
	}
	return dir, nil
}

func (r *Runner) environment(req Request) []string {
	env := os.Environ()

	keys := make([]string, 0, len(r.env))
	for k := range r.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+r.env[k])
	}

	env = append(env,
		EnvTemplate+"="+req.TemplateID,
		EnvTarget+"="+req.Target,
	)
	for _, name := range req.Variables.Names() {
		v, _ := req.Variables.Get(name)
		env = append(env, VarEnvName(name)+"="+v.String())
	}
	return env
}

// VarEnvName is the environment variable a template variable is exported as
func VarEnvName(name string) string {
	return EnvVarPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func (r *Runner) execute(ctx context.Context, index int, phase types.Phase, command string, shell bool, dir string, env []string) types.HookResult {
	result := types.HookResult{
		Index:    index,
		Phase:    phase,
		Command:  command,
		ExitCode: -1,
	}

	var argv []string
	if shell {
		argv = []string{r.shell, "-c", command}
	} else {
		split, err := shlex.Split(command)
		if err != nil || len(split) == 0 {
			result.Stderr = fmt.Sprintf("cannot parse command %q: %v", command, err)
			return result
		}
		argv = split
	}

	r.logger.Info().
		Str("phase", string(phase)).
		Int("index", index).
		Str("command", command).
		Str("workingDir", dir).
		Msg("Running hook")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if stdout.Len() > 0 {
		r.logger.Debug().Str("output", result.Stdout).Msg("Hook stdout")
	}
	if stderr.Len() > 0 {
		r.logger.Debug().Str("output", result.Stderr).Msg("Hook stderr")
	}

	if err == nil {
		result.ExitCode = 0
		r.logger.Info().Int("index", index).Dur("duration", result.Duration).Msg("Hook succeeded")
		return result
	}

	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		result.ExitCode = exitErr.ExitCode()
	} else if result.Stderr == "" {
		result.Stderr = err.Error()
	}
	if ctx.Err() == context.DeadlineExceeded {
		result.Stderr = strings.TrimSpace(result.Stderr + "\n" + fmt.Sprintf("timed out after %s", r.timeout))
		if result.ExitCode == 0 {
			result.ExitCode = -1
		}
	}

	r.logger.Error().
		Err(err).
		Int("index", index).
		Str("command", command).
		Int("exitCode", result.ExitCode).
		Str("stderr", result.Stderr).
		Msg("Hook failed")
	return result
}
