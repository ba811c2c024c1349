// Package tokens implements repository-wide token counting for the
// tokenaudit CLI.
//
// It exposes CommandBuilder for wiring the count Cobra command, Service for
// driving the scan programmatically, and counters that produce exact
// (tiktoken) or approximate (character and word blend) token totals.
package tokens
