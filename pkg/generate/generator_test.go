package generate

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumet023/proplate/pkg/config"
	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/hooks"
	"github.com/yumet023/proplate/pkg/synthfs"
	"github.com/yumet023/proplate/pkg/templates"
	"github.com/yumet023/proplate/pkg/testutil"
	"github.com/yumet023/proplate/pkg/types"
)

const libManifest = `id: lib
variables:
  - name: name
  - name: useTS
    kind: boolean
    default: false
rules:
  - glob: tsconfig.json
    when: useTS
`

func catalog(t *testing.T, extra fstest.MapFS) *templates.Catalog {
	t.Helper()
	fsys := fstest.MapFS{
		"lib/proplate.yaml":         {Data: []byte(libManifest)},
		"lib/README.md":             {Data: []byte("# {{ name }}\n")},
		"lib/tsconfig.json":         {Data: []byte("{\"name\": \"{{name}}\"}\n")},
		"lib/src/index.js":          {Data: []byte("export const name = '{{ name | kebab }}'\n")},
		"lib/src/{{name}}.d.ts":     {Data: []byte("export {}\n")},
		"lib/bin/run.sh":            {Data: []byte("#!/bin/sh\necho {{ name }}\n"), Mode: 0755},
		"lib/assets/logo.bin":       {Data: []byte{0x89, 'P', 'N', 'G', 0x00, '{', '{'}},
		"lib/.proplate_aux_utils/x": {Data: []byte("aux")},
	}
	for k, v := range extra {
		fsys[k] = v
	}
	c, err := templates.NewCatalog(fsys)
	require.NoError(t, err)
	return c
}

func newGenerator(t *testing.T, c *templates.Catalog, opts ...Option) *Generator {
	t.Helper()
	loader := templates.NewLoader(c, templates.WithFetchDir(t.TempDir()))
	return New(loader, opts...)
}

func hooksTemplate(hooksYAML string) fstest.MapFS {
	return fstest.MapFS{
		"hooked/proplate.yaml": {Data: []byte("id: hooked\nvariables:\n  - name: name\nhooks:\n" + hooksYAML)},
		"hooked/README.md":     {Data: []byte("# {{ name }}\n")},
	}
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("hooks use sh")
	}
}

// stagingDirs lists leftover staging directories next to target
func stagingDirs(t *testing.T, target string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(target), StagingPrefix+"*"))
	require.NoError(t, err)
	return matches
}

func TestGenerateConditionalFile(t *testing.T) {
	tests := []struct {
		name     string
		vars     map[string]interface{}
		tsconfig bool
	}{
		{name: "default excludes tsconfig", vars: map[string]interface{}{"name": "demo"}},
		{name: "useTS includes tsconfig", vars: map[string]interface{}{"name": "demo", "useTS": "true"}, tsconfig: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "out")
			g := newGenerator(t, catalog(t, nil))

			res, err := g.Generate(context.Background(), Request{TemplateID: "lib", TargetDir: target, Variables: tt.vars})
			require.NoError(t, err)
			assert.Equal(t, types.StatusSuccess, res.Status)

			testutil.AssertFileContent(t, filepath.Join(target, "README.md"), "# demo\n")
			testutil.AssertFileContent(t, filepath.Join(target, "src", "index.js"), "export const name = 'demo'\n")
			assert.FileExists(t, filepath.Join(target, "src", "demo.d.ts"))
			if tt.tsconfig {
				testutil.AssertFileContent(t, filepath.Join(target, "tsconfig.json"), "{\"name\": \"demo\"}\n")
			} else {
				testutil.AssertNoFile(t, filepath.Join(target, "tsconfig.json"))
			}
			testutil.AssertNoFile(t, filepath.Join(target, "proplate.yaml"))
			testutil.AssertNoFile(t, filepath.Join(target, ".proplate_aux_utils"))
			assert.Empty(t, stagingDirs(t, target))
		})
	}
}

func TestGenerateProducesExactlyThePlannedTree(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	g := newGenerator(t, catalog(t, nil))

	res, err := g.Generate(context.Background(), Request{
		TemplateID: "lib",
		TargetDir:  target,
		Variables:  map[string]interface{}{"name": "demo", "useTS": true},
	})
	require.NoError(t, err)

	assert.Equal(t, res.Plan.Outputs(), res.Created)
	snap := testutil.TakeSnapshot(t, target)
	assert.ElementsMatch(t, res.Plan.Outputs(), snap.Paths())

	for _, p := range snap.Paths() {
		if snap[p].Kind != "file" || strings.HasSuffix(p, ".bin") {
			continue
		}
		assert.NotContains(t, testutil.ReadFile(t, filepath.Join(target, filepath.FromSlash(p))), "{{", p)
	}
	// binary content is copied untouched
	assert.Equal(t, string([]byte{0x89, 'P', 'N', 'G', 0x00, '{', '{'}),
		testutil.ReadFile(t, filepath.Join(target, "assets", "logo.bin")))
}

func TestGenerateStages(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	g := newGenerator(t, catalog(t, nil))

	res, err := g.Generate(context.Background(), Request{TemplateID: "lib", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	require.NoError(t, err)
	assert.Equal(t, []types.Stage{
		types.StageLoading,
		types.StageResolvingVariables,
		types.StagePlanning,
		types.StageStagingWrite,
		types.StageCommittingPreHooks,
		types.StageCommitted,
		types.StageRunningPostHooks,
		types.StageDone,
	}, res.Stages)
	assert.Equal(t, target, res.TargetDir)
	v, ok := res.Variables.Get("name")
	require.True(t, ok)
	assert.Equal(t, "demo", v.String())
}

func TestGeneratePreservesExecutableMode(t *testing.T) {
	testutil.SkipOnWindows(t)
	target := filepath.Join(t.TempDir(), "out")
	g := newGenerator(t, catalog(t, nil))

	_, err := g.Generate(context.Background(), Request{TemplateID: "lib", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(target, "bin", "run.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0100)
	testutil.AssertFileContent(t, filepath.Join(target, "bin", "run.sh"), "#!/bin/sh\necho demo\n")
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		stage types.Stage
		code  errors.ErrorCode
	}{
		{
			name:  "unknown template",
			req:   Request{TemplateID: "nope"},
			stage: types.StageLoading,
			code:  errors.ErrTemplateNotFound,
		},
		{
			name:  "missing required variable",
			req:   Request{TemplateID: "lib"},
			stage: types.StageResolvingVariables,
			code:  errors.ErrMissingRequiredVariable,
		},
		{
			name:  "invalid value",
			req:   Request{TemplateID: "lib", Variables: map[string]interface{}{"name": "demo", "useTS": "maybe"}},
			stage: types.StageResolvingVariables,
			code:  errors.ErrVariableValidation,
		},
		{
			name:  "unsafe name",
			req:   Request{TemplateID: "lib", Variables: map[string]interface{}{"name": "../../escape"}},
			stage: types.StagePlanning,
			code:  errors.ErrUnsafePath,
		},
		{
			name:  "name value adds a directory",
			req:   Request{TemplateID: "lib", Variables: map[string]interface{}{"name": "nested/lib"}},
			stage: types.StagePlanning,
			code:  errors.ErrUnsafePath,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "out")
			tt.req.TargetDir = target
			g := newGenerator(t, catalog(t, nil))

			res, err := g.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.stage, StageOf(err))
			testutil.AssertErrorCode(t, err, tt.code)
			assert.Equal(t, types.StatusFailed, res.Status)
			assert.Equal(t, types.StageFailed, res.LastStage())
			testutil.AssertNoFile(t, target)
			assert.Empty(t, stagingDirs(t, target))
		})
	}
}

func TestGenerateRequiresTarget(t *testing.T) {
	g := newGenerator(t, catalog(t, nil))
	_, err := g.Generate(context.Background(), Request{TemplateID: "lib"})
	testutil.AssertErrorCode(t, err, errors.ErrInvalidInput)
}

func TestGenerateTargetNotEmpty(t *testing.T) {
	target := t.TempDir()
	testutil.CreateFile(t, target, "existing.txt", "keep me")
	before := testutil.TakeSnapshot(t, target)
	g := newGenerator(t, catalog(t, nil))

	_, err := g.Generate(context.Background(), Request{TemplateID: "lib", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	assert.Equal(t, types.StagePlanning, StageOf(err))
	testutil.AssertErrorCode(t, err, errors.ErrTargetNotEmpty)
	testutil.AssertUnchanged(t, before, target)
}

func TestGenerateOverwrite(t *testing.T) {
	target := t.TempDir()
	testutil.CreateFile(t, target, "README.md", "old readme")
	testutil.CreateFile(t, target, "notes.txt", "untouched")
	g := newGenerator(t, catalog(t, nil))

	res, err := g.Generate(context.Background(), Request{
		TemplateID: "lib",
		TargetDir:  target,
		Variables:  map[string]interface{}{"name": "demo"},
		Overwrite:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	testutil.AssertFileContent(t, filepath.Join(target, "README.md"), "# demo\n")
	testutil.AssertFileContent(t, filepath.Join(target, "notes.txt"), "untouched")
	assert.FileExists(t, filepath.Join(target, "src", "demo.d.ts"))
	assert.Empty(t, stagingDirs(t, target))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(target, "bin", "run.sh"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode().Perm()&0100)
	}
}

func TestGenerateOverwriteFromConfig(t *testing.T) {
	target := t.TempDir()
	testutil.CreateFile(t, target, "notes.txt", "untouched")
	cfg := config.Default()
	cfg.Generation.Overwrite = true
	g := newGenerator(t, catalog(t, nil), WithConfig(cfg))

	_, err := g.Generate(context.Background(), Request{TemplateID: "lib", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "README.md"))
}

// failingStager stages the first entries for real, then fails
type failingStager struct {
	after int
}

func (f failingStager) Stage(ctx context.Context, root string, entries []synthfs.Entry) error {
	if f.after > len(entries) {
		f.after = len(entries)
	}
	if err := synthfs.NewExecutor().Stage(ctx, root, entries[:f.after]); err != nil {
		return err
	}
	return errors.IO(os.ErrPermission, "write", entries[f.after].Path)
}

func TestGenerateStagingFailureLeavesTargetUntouched(t *testing.T) {
	t.Run("missing target", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out")
		g := newGenerator(t, catalog(t, nil), WithStager(failingStager{after: 3}))

		_, err := g.Generate(context.Background(), Request{TemplateID: "lib", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
		assert.Equal(t, types.StageStagingWrite, StageOf(err))
		testutil.AssertErrorCode(t, err, errors.ErrIOFailure)
		testutil.AssertNoFile(t, target)
		assert.Empty(t, stagingDirs(t, target))
	})

	t.Run("existing target", func(t *testing.T) {
		target := t.TempDir()
		testutil.CreateFile(t, target, "README.md", "old readme")
		testutil.CreateFile(t, target, "src/keep.js", "keep")
		before := testutil.TakeSnapshot(t, target)
		g := newGenerator(t, catalog(t, nil), WithStager(failingStager{after: 3}))

		_, err := g.Generate(context.Background(), Request{
			TemplateID: "lib",
			TargetDir:  target,
			Variables:  map[string]interface{}{"name": "demo"},
			Overwrite:  true,
		})
		assert.Equal(t, types.StageStagingWrite, StageOf(err))
		testutil.AssertUnchanged(t, before, target)
		assert.Empty(t, stagingDirs(t, target))
	})
}

func TestGenerateKeepStagingOnFailure(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	cfg := config.Default()
	cfg.Generation.KeepStaging = true
	g := newGenerator(t, catalog(t, nil), WithConfig(cfg), WithStager(failingStager{after: 2}))

	_, err := g.Generate(context.Background(), Request{TemplateID: "lib", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	require.Error(t, err)
	assert.Len(t, stagingDirs(t, target), 1)
	testutil.AssertNoFile(t, target)
}

// cancellingStager cancels the request while staging
type cancellingStager struct {
	cancel context.CancelFunc
}

func (c cancellingStager) Stage(ctx context.Context, root string, entries []synthfs.Entry) error {
	c.cancel()
	return synthfs.NewExecutor().Stage(ctx, root, entries)
}

func TestGenerateCancelled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		target := filepath.Join(t.TempDir(), "out")
		g := newGenerator(t, catalog(t, nil))

		_, err := g.Generate(ctx, Request{TemplateID: "lib", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
		assert.Equal(t, types.StageLoading, StageOf(err))
		testutil.AssertErrorCode(t, err, errors.ErrCancelled)
		testutil.AssertNoFile(t, target)
	})

	t.Run("during staging", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		target := t.TempDir()
		testutil.CreateFile(t, target, "README.md", "old readme")
		before := testutil.TakeSnapshot(t, target)
		g := newGenerator(t, catalog(t, nil), WithStager(cancellingStager{cancel: cancel}))

		_, err := g.Generate(ctx, Request{
			TemplateID: "lib",
			TargetDir:  target,
			Variables:  map[string]interface{}{"name": "demo"},
			Overwrite:  true,
		})
		testutil.AssertErrorCode(t, err, errors.ErrCancelled)
		testutil.AssertUnchanged(t, before, target)
		assert.Empty(t, stagingDirs(t, target))
	})
}

func TestGenerateDryRun(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out")
	g := newGenerator(t, catalog(t, nil))

	res, err := g.Generate(context.Background(), Request{
		TemplateID: "lib",
		TargetDir:  target,
		Variables:  map[string]interface{}{"name": "demo"},
		DryRun:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPlanned, res.Status)
	assert.Equal(t, types.StagePlanning, res.LastStage())
	require.NotNil(t, res.Plan)
	assert.Contains(t, res.Plan.Outputs(), "src/demo.d.ts")
	assert.Empty(t, res.Created)
	testutil.AssertNoFile(t, target)
	assert.Empty(t, stagingDirs(t, target))
}

func TestGeneratePreHookFailure(t *testing.T) {
	skipWithoutShell(t)
	marker := filepath.Join(t.TempDir(), "markers")
	c := catalog(t, hooksTemplate(`  - phase: pre
    run: "echo first >> ` + marker + `"
    shell: true
  - phase: pre
    run: "exit 7"
    shell: true
  - phase: pre
    run: "echo third >> ` + marker + `"
    shell: true
`))
	target := filepath.Join(t.TempDir(), "out")
	g := newGenerator(t, c)

	res, err := g.Generate(context.Background(), Request{TemplateID: "hooked", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	assert.Equal(t, types.StageCommittingPreHooks, StageOf(err))
	testutil.AssertErrorCode(t, err, errors.ErrHookFailed)
	assert.Equal(t, 1, errors.GetErrorDetails(err)["index"])
	assert.Equal(t, 7, errors.GetErrorDetails(err)["exit_code"])

	require.Len(t, res.Hooks, 2)
	assert.Equal(t, 7, res.Hooks[1].ExitCode)
	testutil.AssertFileContent(t, marker, "first\n")
	testutil.AssertNoFile(t, target)
	assert.Empty(t, stagingDirs(t, target))
}

func TestGeneratePreHooksRunInStaging(t *testing.T) {
	skipWithoutShell(t)
	c := catalog(t, hooksTemplate(`  - phase: pre
    run: "test -f README.md && test ! -e \"$PROPLATE_TARGET\" && echo {{ name }} > from-pre-hook.txt"
    shell: true
`))
	target := filepath.Join(t.TempDir(), "out")
	g := newGenerator(t, c)

	res, err := g.Generate(context.Background(), Request{TemplateID: "hooked", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	testutil.AssertFileContent(t, filepath.Join(target, "from-pre-hook.txt"), "demo\n")
}

func TestGeneratePostHookFailureIsPartial(t *testing.T) {
	skipWithoutShell(t)
	c := catalog(t, hooksTemplate(`  - phase: post
    run: "touch post-ran"
  - phase: post
    run: "sh -c 'exit 3'"
`))
	target := filepath.Join(t.TempDir(), "out")
	g := newGenerator(t, c)

	res, err := g.Generate(context.Background(), Request{TemplateID: "hooked", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	require.NoError(t, err)
	assert.Equal(t, types.StatusPartial, res.Status)
	assert.Equal(t, types.StageRunningPostHooks, res.LastStage())
	testutil.AssertErrorCode(t, res.HookError, errors.ErrHookFailed)
	assert.Equal(t, 1, errors.GetErrorDetails(res.HookError)["index"])

	testutil.AssertFileContent(t, filepath.Join(target, "README.md"), "# demo\n")
	assert.FileExists(t, filepath.Join(target, "post-ran"))
	require.Len(t, res.Hooks, 2)
	assert.True(t, res.Hooks[0].Succeeded())
}

// recordingRunner captures hook requests without running anything
type recordingRunner struct {
	requests []hooks.Request
}

func (r *recordingRunner) Run(_ context.Context, req hooks.Request) ([]types.HookResult, error) {
	r.requests = append(r.requests, req)
	results := make([]types.HookResult, len(req.Hooks))
	for i, h := range req.Hooks {
		results[i] = types.HookResult{Index: i, Phase: req.Phase, Command: h.Run}
	}
	return results, nil
}

func (r *recordingRunner) commands(phase types.Phase) []string {
	var out []string
	for _, req := range r.requests {
		if req.Phase != phase {
			continue
		}
		for _, h := range req.Hooks {
			out = append(out, h.Run)
		}
	}
	return out
}

func TestGenerateHookRoots(t *testing.T) {
	c := catalog(t, hooksTemplate(`  - phase: pre
    run: "echo pre"
  - phase: post
    run: "echo post"
`))
	target := filepath.Join(t.TempDir(), "out")
	runner := &recordingRunner{}
	g := newGenerator(t, c, WithHookRunner(runner))

	_, err := g.Generate(context.Background(), Request{TemplateID: "hooked", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	require.NoError(t, err)
	require.Len(t, runner.requests, 2)

	pre, post := runner.requests[0], runner.requests[1]
	assert.Equal(t, types.PhasePre, pre.Phase)
	assert.True(t, strings.HasPrefix(filepath.Base(pre.Root), StagingPrefix))
	assert.Equal(t, target, pre.Target)
	assert.Equal(t, "hooked", pre.TemplateID)

	assert.Equal(t, types.PhasePost, post.Phase)
	assert.Equal(t, target, post.Root)
}

func TestGenerateHooksDisabled(t *testing.T) {
	c := catalog(t, hooksTemplate(`  - phase: post
    run: "echo post"
`))
	cfg := config.Default()
	cfg.Hooks.Disabled = true
	runner := &recordingRunner{}
	g := newGenerator(t, c, WithConfig(cfg), WithHookRunner(runner))

	res, err := g.Generate(context.Background(), Request{
		TemplateID: "hooked",
		TargetDir:  filepath.Join(t.TempDir(), "out"),
		Variables:  map[string]interface{}{"name": "demo"},
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Empty(t, runner.requests)
}

func TestGenerateGitSteps(t *testing.T) {
	tests := []struct {
		name       string
		inWorkTree bool
		want       []string
	}{
		{
			name: "new repository",
			want: []string{"echo post", "git init", "git add -A", `git commit -m "chore: initial commit" --allow-empty`},
		},
		{
			name:       "inside an existing work tree",
			inWorkTree: true,
			want:       []string{"echo post", "git add -A", `git commit -m "chore: initial commit" --allow-empty`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := catalog(t, hooksTemplate(`  - phase: post
    run: "echo post"
`))
			runner := &recordingRunner{}
			g := newGenerator(t, c, WithHookRunner(runner))
			g.inWorkTree = func(context.Context, string) bool { return tt.inWorkTree }

			_, err := g.Generate(context.Background(), Request{
				TemplateID: "hooked",
				TargetDir:  filepath.Join(t.TempDir(), "out"),
				Variables:  map[string]interface{}{"name": "demo"},
				Git:        true,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, runner.commands(types.PhasePost))
		})
	}
}

func TestGenerateVersionExportedToHooks(t *testing.T) {
	skipWithoutShell(t)
	c := catalog(t, hooksTemplate(`  - phase: post
    run: "echo $` + EnvVersion + ` > version.txt"
    shell: true
`))
	target := filepath.Join(t.TempDir(), "out")
	g := newGenerator(t, c, WithVersion("1.2.3"))

	_, err := g.Generate(context.Background(), Request{TemplateID: "hooked", TargetDir: target, Variables: map[string]interface{}{"name": "demo"}})
	require.NoError(t, err)
	testutil.AssertFileContent(t, filepath.Join(target, "version.txt"), "1.2.3\n")
}

func TestFailureUnwraps(t *testing.T) {
	inner := errors.New(errors.ErrUnsafePath, "nope")
	err := error(&Failure{Stage: types.StagePlanning, Err: inner})

	assert.Equal(t, errors.ErrUnsafePath, errors.GetErrorCode(err))
	assert.Equal(t, types.StagePlanning, StageOf(err))
	assert.Equal(t, "Planning: [UNSAFE_PATH] nope", err.Error())
	assert.Equal(t, types.Stage(""), StageOf(inner))
}
