package config

import (
	"time"

	"github.com/yumet023/proplate/pkg/errors"
)

// Config is the effective proplate configuration
type Config struct {
	Generation Generation `koanf:"generation"`
	Hooks      Hooks      `koanf:"hooks"`
	Fetch      Fetch      `koanf:"fetch"`
	Render     Render     `koanf:"render"`
	Output     Output     `koanf:"output"`
}

// Generation holds request defaults that flags may override
type Generation struct {
	Interactive bool `koanf:"interactive"`
	Overwrite   bool `koanf:"overwrite"`
	Git         bool `koanf:"git"`
	KeepStaging bool `koanf:"keep_staging"`
}

// Hooks controls hook execution
type Hooks struct {
	Timeout  time.Duration     `koanf:"timeout"`
	Shell    string            `koanf:"shell"`
	Env      map[string]string `koanf:"env"`
	Disabled bool              `koanf:"disabled"`
}

// Fetch controls remote template retrieval
type Fetch struct {
	Timeout   time.Duration `koanf:"timeout"`
	Retries   int           `koanf:"retries"`
	GitBinary string        `koanf:"git_binary"`
}

// Render controls content classification
type Render struct {
	SniffBytes int      `koanf:"sniff_bytes"`
	Literal    []string `koanf:"literal"`
}

// Output controls terminal presentation
type Output struct {
	Format  string `koanf:"format"`
	NoColor bool   `koanf:"no_color"`
}

// Validate checks values that decoding alone cannot
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "auto", "term", "text":
	default:
		return errors.Newf(errors.ErrConfigParse, "output.format must be auto, term or text, got %q", c.Output.Format)
	}
	if c.Hooks.Timeout <= 0 {
		return errors.Newf(errors.ErrConfigParse, "hooks.timeout must be positive, got %s", c.Hooks.Timeout)
	}
	if c.Hooks.Shell == "" {
		return errors.New(errors.ErrConfigParse, "hooks.shell cannot be empty")
	}
	if c.Fetch.Timeout <= 0 {
		return errors.Newf(errors.ErrConfigParse, "fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.Retries < 0 {
		return errors.Newf(errors.ErrConfigParse, "fetch.retries cannot be negative, got %d", c.Fetch.Retries)
	}
	if c.Render.SniffBytes <= 0 {
		return errors.Newf(errors.ErrConfigParse, "render.sniff_bytes must be positive, got %d", c.Render.SniffBytes)
	}
	return nil
}

// ToMap returns the configuration as a nested map with durations in string form.
// It is the shape printed by `proplate config show`.
func (c *Config) ToMap() map[string]interface{} {
	env := map[string]interface{}{}
	for k, v := range c.Hooks.Env {
		env[k] = v
	}
	literal := make([]interface{}, 0, len(c.Render.Literal))
	for _, l := range c.Render.Literal {
		literal = append(literal, l)
	}
	return map[string]interface{}{
		"generation": map[string]interface{}{
			"interactive":  c.Generation.Interactive,
			"overwrite":    c.Generation.Overwrite,
			"git":          c.Generation.Git,
			"keep_staging": c.Generation.KeepStaging,
		},
		"hooks": map[string]interface{}{
			"timeout":  c.Hooks.Timeout.String(),
			"shell":    c.Hooks.Shell,
			"disabled": c.Hooks.Disabled,
			"env":      env,
		},
		"fetch": map[string]interface{}{
			"timeout":    c.Fetch.Timeout.String(),
			"retries":    c.Fetch.Retries,
			"git_binary": c.Fetch.GitBinary,
		},
		"render": map[string]interface{}{
			"sniff_bytes": c.Render.SniffBytes,
			"literal":     literal,
		},
		"output": map[string]interface{}{
			"format":   c.Output.Format,
			"no_color": c.Output.NoColor,
		},
	}
}
