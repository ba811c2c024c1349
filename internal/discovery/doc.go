// Package discovery locates documents on disk for auditing.
//
// It exposes FilesystemDocumentDiscoverer, which walks configured roots,
// keeps files whose extensions are allowlisted, skips well-known build and
// cache directories, and honors doublestar exclude patterns.
package discovery
