// Package version holds build information injected by the linker
package version

// Build information set by ldflags, e.g.
// -X github.com/yumet023/proplate/internal/version.Version=v1.2.0
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
