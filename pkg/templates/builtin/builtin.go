// Package builtin embeds the templates that ship with proplate.
package builtin

import "embed"

// FS holds one directory per built-in template
//
//go:embed all:rollup-esm-cjs all:tiniest
var FS embed.FS

// InitTemplate is the template used by proplate init
const InitTemplate = "tiniest"
