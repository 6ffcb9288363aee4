// Package paths locates proplate's own directories and keeps generated
// paths inside their roots.
//
// Directories follow the XDG Base Directory specification through adrg/xdg
// and can be overridden with PROPLATE_CONFIG_DIR and PROPLATE_CACHE_DIR.
//
// Path safety is enforced in two steps: CleanRelative rejects absolute paths
// and ".." segments lexically, and ResolveWithin follows symlinks that already
// exist under a root and rejects any that lead outside of it.
package paths
