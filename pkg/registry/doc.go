// Package registry provides a generic, type-safe registry keyed by name.
// A registry can be sealed once populated, after which it only serves reads.
// The built-in template catalog uses this to stay fixed after startup.
package registry
