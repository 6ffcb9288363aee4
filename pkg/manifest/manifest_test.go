package manifest

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/types"
)

const fullManifest = `
id: rollup-esm-cjs
description: Dual ESM/CJS library
requires: ">= 0.1.0"
variables:
  - name: name
    prompt: Package name
    pattern: "^[a-z][a-z0-9-]*$"
  - name: useTS
    kind: boolean
    default: false
  - name: license
    kind: choice
    options: [MIT, Apache-2.0]
    default: MIT
rules:
  - glob: tsconfig.json
    when: useTS
  - glob: "src/index.js"
    when: "!useTS"
  - glob: "src/index.ts"
    when: useTS && license == 'MIT'
    rename: "src/{{ name | snake }}.ts"
exclude: ["*.log"]
literal: ["assets/**"]
hooks:
  - phase: pre
    run: echo {{name}}
  - phase: post
    run: npm install
    workdir: .
  - phase: post
    run: echo done > marker
    shell: true
`

func TestParseFull(t *testing.T) {
	m, err := Parse([]byte(fullManifest), "proplate.yaml", Options{Version: "0.2.0"})
	require.NoError(t, err)

	assert.Equal(t, "rollup-esm-cjs", m.ID)
	require.Len(t, m.Variables, 3)
	assert.Equal(t, types.KindString, m.Variables[0].Kind, "kind defaults to string")
	assert.False(t, m.Variables[0].HasDefault())
	assert.Equal(t, "Package name", m.Variables[0].Label())
	assert.Equal(t, "useTS", m.Variables[1].Label())

	v, ok := m.Variables[1].DefaultValue()
	require.True(t, ok)
	assert.Equal(t, types.BoolValue(false), v)

	v, ok = m.Variables[2].DefaultValue()
	require.True(t, ok)
	assert.Equal(t, types.ChoiceValue("MIT"), v)

	require.Len(t, m.Rules, 3)
	cond, err := m.Rules[2].Condition()
	require.NoError(t, err)
	assert.Equal(t, []string{"license", "useTS"}, cond.Refs())

	assert.Equal(t, []string{"*.log"}, m.Exclude)
	assert.Equal(t, []string{"assets/**"}, m.Literal)

	assert.Len(t, m.HooksFor(types.PhasePre), 1)
	post := m.HooksFor(types.PhasePost)
	require.Len(t, post, 2)
	assert.Equal(t, ".", post[0].Workdir)
	assert.True(t, post[1].Shell)

	spec, ok := m.Variable("license")
	assert.True(t, ok)
	assert.Equal(t, []string{"MIT", "Apache-2.0"}, spec.Options)
	_, ok = m.Variable("missing")
	assert.False(t, ok)

	decls := m.Decls()
	assert.Equal(t, types.KindBoolean, decls["useTS"].Kind)
}

func TestParseJSONWithComments(t *testing.T) {
	src := `{
	// tabs, comments and trailing commas are accepted
	"id": "tiny",
	"variables": [
		{"name": "name", "default": "demo",},
	],
}`
	m, err := Parse([]byte(src), "meta.json", Options{})
	require.NoError(t, err)
	assert.Equal(t, "tiny", m.ID)
	require.Len(t, m.Variables, 1)
	assert.Equal(t, "demo", m.Variables[0].Default)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		version  string
		contains string
	}{
		{
			name:     "missing id",
			src:      "description: nothing",
			contains: "id",
		},
		{
			name:     "unknown top-level key",
			src:      "id: x\nbogus: 1",
			contains: "bogus",
		},
		{
			name:     "unknown kind",
			src:      "id: x\nvariables:\n  - name: a\n    kind: number",
			contains: "/variables/0/kind",
		},
		{
			name:     "bad variable name",
			src:      "id: x\nvariables:\n  - name: 1abc",
			contains: "/variables/0/name",
		},
		{
			name:     "bad hook phase",
			src:      "id: x\nhooks:\n  - phase: during\n    run: ls",
			contains: "/hooks/0/phase",
		},
		{
			name:     "duplicate variable",
			src:      "id: x\nvariables:\n  - name: a\n  - name: a",
			contains: "duplicate variable name",
		},
		{
			name:     "choice without options",
			src:      "id: x\nvariables:\n  - name: a\n    kind: choice",
			contains: "at least one option",
		},
		{
			name:     "choice default outside options",
			src:      "id: x\nvariables:\n  - name: a\n    kind: choice\n    options: [b, c]\n    default: d",
			contains: "not one of the options",
		},
		{
			name:     "boolean default of wrong type",
			src:      "id: x\nvariables:\n  - name: a\n    kind: boolean\n    default: \"yes\"",
			contains: "does not match kind boolean",
		},
		{
			name:     "string default of wrong type",
			src:      "id: x\nvariables:\n  - name: a\n    default: true",
			contains: "does not match kind string",
		},
		{
			name:     "invalid pattern",
			src:      "id: x\nvariables:\n  - name: a\n    pattern: \"([\"",
			contains: "invalid pattern",
		},
		{
			name:     "default rejected by pattern",
			src:      "id: x\nvariables:\n  - name: a\n    pattern: \"^[a-z]+$\"\n    default: ABC",
			contains: "does not match pattern",
		},
		{
			name:     "default with markers",
			src:      "id: x\nvariables:\n  - name: a\n    default: \"{{b}}\"",
			contains: "placeholder markers",
		},
		{
			name:     "condition with undeclared variable",
			src:      "id: x\nrules:\n  - glob: a\n    when: ghost",
			contains: "ghost",
		},
		{
			name:     "condition that does not parse",
			src:      "id: x\nvariables:\n  - name: a\n    kind: boolean\nrules:\n  - glob: a\n    when: \"a &&\"",
			contains: "rules[0]",
		},
		{
			name:     "bare string variable in condition",
			src:      "id: x\nvariables:\n  - name: a\nrules:\n  - glob: f\n    when: a",
			contains: "rules[0]",
		},
		{
			name:     "choice compared with unknown option",
			src:      "id: x\nvariables:\n  - name: l\n    kind: choice\n    options: [MIT]\nrules:\n  - glob: f\n    when: \"l == 'GPL'\"",
			contains: "rules[0]",
		},
		{
			name:     "rename with undeclared variable",
			src:      "id: x\nrules:\n  - glob: a\n    rename: \"{{ghost}}.txt\"",
			contains: "undeclared variable \"ghost\"",
		},
		{
			name:     "rename with unknown filter",
			src:      "id: x\nvariables:\n  - name: a\nrules:\n  - glob: f\n    rename: \"{{a | shout}}\"",
			contains: "unknown filter",
		},
		{
			name:     "empty hook command",
			src:      "id: x\nhooks:\n  - phase: post\n    run: \"  \"",
			contains: "empty command",
		},
		{
			name:     "hook with undeclared variable",
			src:      "id: x\nhooks:\n  - phase: post\n    run: \"echo {{ghost}}\"",
			contains: "undeclared variable",
		},
		{
			name:     "unparsable requires",
			src:      "id: x\nrequires: \"not a constraint\"",
			contains: "invalid constraint",
		},
		{
			name:     "unsatisfied requires",
			src:      "id: x\nrequires: \">= 2.0.0\"",
			version:  "1.4.0",
			contains: "does not satisfy",
		},
		{
			name:     "not yaml",
			src:      "id: [unterminated",
			contains: "not valid YAML",
		},
		{
			name:     "empty document",
			src:      "",
			contains: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "proplate.yaml", Options{Version: tt.version})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrManifestInvalid), "got %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestParseSkipsRequiresForDevBuilds(t *testing.T) {
	var buf bytes.Buffer
	old, oldLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer func() {
		log.Logger = old
		zerolog.SetGlobalLevel(oldLevel)
	}()

	tests := []struct {
		name    string
		version string
	}{
		{"dev build", "dev"},
		{"commit hash", "a3f2c91"},
		{"unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			_, err := Parse([]byte("id: x\nrequires: \">= 9.0.0\""), "proplate.yaml", Options{Version: tt.version})
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "skipping requires check")
			assert.Contains(t, buf.String(), `"component":"manifest"`)
		})
	}
}

func TestInvalidCarriesIssues(t *testing.T) {
	_, err := Parse([]byte("id: x\nvariables:\n  - name: a\n  - name: a"), "proplate.yml", Options{})
	require.Error(t, err)

	file, ok := errors.GetDetail(err, "file")
	require.True(t, ok)
	assert.Equal(t, "proplate.yml", file)

	issues, ok := errors.GetDetail(err, "issues")
	require.True(t, ok)
	assert.Len(t, issues, 1)
}

func TestMarshalRoundTrip(t *testing.T) {
	m, err := Parse([]byte(fullManifest), "proplate.yaml", Options{})
	require.NoError(t, err)

	data, err := Marshal(m)
	require.NoError(t, err)

	again, err := Parse(data, "proplate.yaml", Options{})
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestMarshalRoundTripKeepsTypedDefaults(t *testing.T) {
	m := &Manifest{
		ID: "typed",
		Variables: []VariableSpec{
			{Name: "flag", Kind: types.KindBoolean, Default: false},
			{Name: "word", Kind: types.KindString, Default: "true"},
			{Name: "version", Kind: types.KindString, Default: "1.0"},
			{Name: "empty", Kind: types.KindString, Default: ""},
		},
	}
	data, err := Marshal(m)
	require.NoError(t, err)

	again, err := Parse(data, "proplate.yaml", Options{})
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestLoad(t *testing.T) {
	t.Run("prefers yaml over json", func(t *testing.T) {
		fsys := fstest.MapFS{
			"proplate.yaml": {Data: []byte("id: from-yaml")},
			"meta.json":     {Data: []byte(`{"id": "from-json"}`)},
		}
		m, name, err := Load(fsys, Options{})
		require.NoError(t, err)
		assert.Equal(t, "proplate.yaml", name)
		assert.Equal(t, "from-yaml", m.ID)
	})

	t.Run("falls back to meta.json", func(t *testing.T) {
		fsys := fstest.MapFS{
			"meta.json": {Data: []byte(`{"id": "from-json"}`)},
		}
		m, name, err := Load(fsys, Options{})
		require.NoError(t, err)
		assert.Equal(t, "meta.json", name)
		assert.Equal(t, "from-json", m.ID)
	})

	t.Run("no manifest", func(t *testing.T) {
		fsys := fstest.MapFS{
			"README.md": {Data: []byte("# hi")},
		}
		_, _, err := Load(fsys, Options{})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrManifestInvalid))
	})
}

func TestIsReserved(t *testing.T) {
	for _, rel := range []string{"proplate.yaml", "proplate.yml", "meta.json", ".proplate_aux_utils", ".git"} {
		assert.True(t, IsReserved(rel), rel)
	}
	for _, rel := range []string{"src/meta.json", "sub/.git", "README.md", "proplate.toml"} {
		assert.False(t, IsReserved(rel), rel)
	}
}

func TestSchemaContent(t *testing.T) {
	assert.Contains(t, string(SchemaContent()), `"$defs"`)
}
