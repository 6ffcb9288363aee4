package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yumet023/proplate/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.Generation.Interactive)
	assert.False(t, cfg.Generation.Overwrite)
	assert.Equal(t, 5*time.Minute, cfg.Hooks.Timeout)
	assert.Equal(t, "sh", cfg.Hooks.Shell)
	assert.Equal(t, 2*time.Minute, cfg.Fetch.Timeout)
	assert.Equal(t, 3, cfg.Fetch.Retries)
	assert.Equal(t, "git", cfg.Fetch.GitBinary)
	assert.Equal(t, 8000, cfg.Render.SniffBytes)
	assert.Empty(t, cfg.Render.Literal)
	assert.Equal(t, "auto", cfg.Output.Format)
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	userFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(userFile, []byte(`
[generation]
overwrite = true

[hooks]
timeout = "45s"

[hooks.env]
CI = "1"

[render]
literal = ["*.png", "assets/**"]
`), 0644))

	t.Run("file overrides defaults", func(t *testing.T) {
		cfg, err := Load(LoadOptions{File: userFile, SkipEnv: true})
		require.NoError(t, err)
		assert.True(t, cfg.Generation.Overwrite)
		assert.Equal(t, 45*time.Second, cfg.Hooks.Timeout)
		assert.Equal(t, "1", cfg.Hooks.Env["CI"])
		assert.Equal(t, []string{"*.png", "assets/**"}, cfg.Render.Literal)
		assert.Equal(t, "sh", cfg.Hooks.Shell)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("PROPLATE_HOOKS_TIMEOUT", "10s")
		t.Setenv("PROPLATE_GENERATION_KEEP_STAGING", "true")
		t.Setenv("PROPLATE_RENDER_LITERAL", "*.bin,*.jpg")

		cfg, err := Load(LoadOptions{File: userFile})
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, cfg.Hooks.Timeout)
		assert.True(t, cfg.Generation.KeepStaging)
		assert.Equal(t, []string{"*.bin", "*.jpg"}, cfg.Render.Literal)
	})

	t.Run("overrides win", func(t *testing.T) {
		t.Setenv("PROPLATE_GENERATION_OVERWRITE", "true")
		cfg, err := Load(LoadOptions{
			File:      userFile,
			Overrides: map[string]interface{}{"generation.overwrite": false, "output.format": "text"},
		})
		require.NoError(t, err)
		assert.False(t, cfg.Generation.Overwrite)
		assert.Equal(t, "text", cfg.Output.Format)
	})
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	_, err := Load(LoadOptions{File: missing, SkipEnv: true})
	assert.NoError(t, err, "an implicit missing file is ignored")

	_, err = Load(LoadOptions{File: missing, Explicit: true, SkipEnv: true})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "[generation\n"},
		{"bad format", "[output]\nformat = \"fancy\"\n"},
		{"negative retries", "[fetch]\nretries = -1\n"},
		{"zero timeout", "[hooks]\ntimeout = \"0s\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(LoadOptions{File: path, SkipEnv: true})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse), "got %v", err)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "hooks.timeout", envKey("PROPLATE_HOOKS_TIMEOUT"))
	assert.Equal(t, "generation.keep_staging", envKey("PROPLATE_GENERATION_KEEP_STAGING"))
	assert.Equal(t, "single", envKey("PROPLATE_SINGLE"))
}

func TestGenerateConfigContent(t *testing.T) {
	content := GenerateConfigContent()

	assert.Contains(t, content, "[generation]")
	assert.Contains(t, content, "# interactive = false")
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		t.Errorf("uncommented assignment: %q", line)
	}
}

func TestWriteUserConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proplate", "config.toml")

	require.NoError(t, WriteUserConfig(path, false))
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = WriteUserConfig(path, false)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
	assert.NoError(t, WriteUserConfig(path, true))

	// A commented-out file still loads to the defaults.
	cfg, err := Load(LoadOptions{File: path, Explicit: true, SkipEnv: true})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestMarshal(t *testing.T) {
	out, err := Default().Marshal()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, toml.Unmarshal(out, &decoded))
	hooks := decoded["hooks"].(map[string]interface{})
	assert.Equal(t, "5m0s", hooks["timeout"])
}
