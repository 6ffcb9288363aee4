// Package testutil provides helpers for tests that touch the real filesystem.
//
// Key components:
//   - File helpers: CreateFile, CreateExecutable, CreateDir and CreateSymlink
//     build fixtures under a test's temporary directory
//   - Tree: a declarative description of a directory, written with WriteTree
//   - Snapshot: a content-addressed picture of a directory, used to assert that
//     failed generations left a target untouched
//
// All helpers take *testing.T and fail the test on setup errors.
package testutil
