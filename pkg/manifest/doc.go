// Package manifest loads and validates template manifests.
//
// A template root carries exactly one manifest, looked up in the order given
// by FileNames. YAML manifests are decoded with yaml.v3 and meta.json files
// are accepted with comments and trailing commas. Every manifest is checked
// against an embedded JSON schema before it is decoded into Manifest, and
// then semantically: variable declarations, rule conditions, renames, hooks
// and the optional proplate version constraint.
package manifest
