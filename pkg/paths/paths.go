package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvConfigDir overrides the XDG config directory for proplate
	EnvConfigDir = "PROPLATE_CONFIG_DIR"

	// EnvCacheDir overrides the XDG cache directory for proplate
	EnvCacheDir = "PROPLATE_CACHE_DIR"
)

const (
	// AppDirName is the directory name used under each XDG base directory
	AppDirName = "proplate"

	// ConfigFileName is the user configuration file name
	ConfigFileName = "config.toml"

	// FetchDirName holds remote templates while a request is running
	FetchDirName = "fetch"
)

// Paths resolves proplate's directories
type Paths struct {
	configDir string
	cacheDir  string
	stateDir  string
}

// New resolves directories from the environment and XDG defaults
func New() *Paths {
	p := &Paths{
		configDir: filepath.Join(xdg.ConfigHome, AppDirName),
		cacheDir:  filepath.Join(xdg.CacheHome, AppDirName),
		stateDir:  filepath.Join(xdg.StateHome, AppDirName),
	}
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		p.configDir = SanitizePath(dir)
	}
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		p.cacheDir = SanitizePath(dir)
	}
	return p
}

func (p *Paths) ConfigDir() string { return p.configDir }

// ConfigFile is the default user configuration file
func (p *Paths) ConfigFile() string { return filepath.Join(p.configDir, ConfigFileName) }

func (p *Paths) CacheDir() string { return p.cacheDir }

func (p *Paths) StateDir() string { return p.stateDir }

// FetchDir is where remote templates are unpacked for the duration of a request
func (p *Paths) FetchDir() string { return filepath.Join(p.cacheDir, FetchDirName) }
