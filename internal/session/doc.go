// Package session implements the coherence audit harness for the tokenaudit
// CLI.
//
// A session run walks a fixed audit sequence: token usage, anchor recall,
// stress probes, and cross-model convergence. Each step emits a timestamped
// JSON event, and the run produces summary metrics suitable for the history
// store. The harness simulates measurements with a seeded generator; it does
// not call any model API.
package session
