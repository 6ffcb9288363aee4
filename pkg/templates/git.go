package templates

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
)

// GitFetcher shallow-clones template repositories.
// A "#ref" suffix selects a branch or tag.
type GitFetcher struct {
	logger  zerolog.Logger
	binary  string
	timeout time.Duration
}

// NewGitFetcher uses binary (default "git") with a per-clone timeout
func NewGitFetcher(binary string, timeout time.Duration) *GitFetcher {
	if binary == "" {
		binary = "git"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &GitFetcher{
		logger:  logging.GetLogger("templates.git"),
		binary:  binary,
		timeout: timeout,
	}
}

func (g *GitFetcher) Name() string { return string(SourceGit) }

// Supports accepts github https URLs, git+ URLs, scp-style git@ addresses
// and anything ending in .git
func (g *GitFetcher) Supports(id string) bool {
	url, _ := splitRef(id)
	switch {
	case strings.HasPrefix(url, "https://github.com/"),
		strings.HasPrefix(url, "git+"),
		strings.HasPrefix(url, "git@"):
		return true
	}
	return strings.HasSuffix(url, ".git")
}

// Fetch clones into dest/repo
func (g *GitFetcher) Fetch(ctx context.Context, id, dest string) (string, error) {
	url, ref := splitRef(id)
	url = strings.TrimPrefix(url, "git+")
	repo := filepath.Join(dest, "repo")

	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, "--", url, repo)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	g.logger.Debug().Strs("args", args).Msg("Cloning template")
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, errors.ErrIOFailure, "git clone %s failed: %s", url, strings.TrimSpace(stderr.String())).
			WithDetail("url", url)
	}
	return repo, nil
}

func splitRef(id string) (string, string) {
	if i := strings.LastIndex(id, "#"); i > 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}
