// Package templates resolves template identifiers to loaded templates.
//
// An identifier is looked up first in the built-in Catalog, then offered to
// each registered Fetcher (git repositories, tarballs over HTTP), and finally
// treated as a local directory. Fetched templates live in a private
// directory under the cache and are removed by Template.Cleanup.
package templates
