// Package config loads proplate's layered configuration.
//
// Layers, lowest precedence first:
//
//  1. embedded defaults (embedded/defaults.toml)
//  2. the user file, $XDG_CONFIG_HOME/proplate/config.toml or an explicit path
//  3. PROPLATE_<SECTION>_<KEY> environment variables
//  4. overrides supplied by the caller, typically command-line flags
//
// The merged tree is decoded into Config with mapstructure, so durations
// may be written as "30s" and lists as comma separated strings.
package config
