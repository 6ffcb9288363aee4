// Package variables turns a manifest's variable declarations, user overrides
// and, in interactive mode, prompted answers into an immutable
// types.Variables mapping.
package variables
