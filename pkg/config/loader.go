package config

import (
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/logging"
)

// EnvPrefix prefixes every configuration environment variable
const EnvPrefix = "PROPLATE_"

// LoadOptions selects the layers merged by Load
type LoadOptions struct {
	// File is the user config file. A missing file is an error only when Explicit is set.
	File     string
	Explicit bool
	// SkipEnv ignores PROPLATE_* variables
	SkipEnv bool
	// Overrides are dotted keys applied last, e.g. "generation.overwrite": true
	Overrides map[string]interface{}
}

// Default returns the embedded defaults
func Default() *Config {
	cfg, err := Load(LoadOptions{SkipEnv: true})
	if err != nil {
		// the embedded file is part of the binary
		panic(err)
	}
	return cfg
}

// Load merges every layer and decodes the result
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load embedded defaults")
	}

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err == nil {
			if err := k.Load(file.Provider(opts.File), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", opts.File)
			}
			logger.Debug().Str("path", opts.File).Msg("Loaded user config")
		} else if opts.Explicit {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s", opts.File)
		}
	}

	if !opts.SkipEnv {
		if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment")
		}
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps PROPLATE_HOOKS_TIMEOUT to hooks.timeout and
// PROPLATE_GENERATION_KEEP_STAGING to generation.keep_staging
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}
