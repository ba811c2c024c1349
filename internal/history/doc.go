// Package history persists audit run summaries in a local SQLite database
// and exposes the history Cobra command for listing them.
package history
