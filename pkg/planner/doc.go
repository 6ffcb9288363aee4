// Package planner turns a template tree, its manifest and resolved variables
// into a deterministic types.Plan.
//
// Entries are visited depth first in lexicographic order. Each entry is
// checked against the reserved names, the manifest's exclude list and its
// file rules, gets a destination path with placeholders rendered, and is
// classified as Mkdir, Copy, Render or Skip. Every destination is
// canonicalized and must stay under the target root.
package planner
