package config

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/yumet023/proplate/pkg/errors"
)

// GenerateConfigContent returns the defaults file with every assignment commented out
func GenerateConfigContent() string {
	return commentOutConfigValues(DefaultsContent())
}

// commentOutConfigValues comments out every line that is not blank, a comment or a section header
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "#"):
			result = append(result, line)
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			result = append(result, line)
		default:
			result = append(result, "# "+line)
		}
	}

	return strings.Join(result, "\n")
}

// WriteUserConfig writes the commented defaults to path.
// An existing file is kept unless force is set.
func WriteUserConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf(errors.ErrAlreadyExists, "config file %s already exists", path).
			WithDetail("path", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.IO(err, "mkdir", filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(GenerateConfigContent()), 0644); err != nil {
		return errors.IO(err, "write", path)
	}
	return nil
}

// Marshal renders the effective configuration as TOML
func (c *Config) Marshal() ([]byte, error) {
	out, err := toml.Marshal(c.ToMap())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode configuration")
	}
	return out, nil
}
