package session

import "time"

// EventType identifies a step in the audit event stream.
type EventType string

// Event types emitted during a session run, in order of appearance.
const (
	EventTypeStartAudit   EventType = "start_audit"
	EventTypeTokenUsage   EventType = "token_usage"
	EventTypeAnchorRecall EventType = "anchor_recall"
	EventTypeStressProbe  EventType = "stress_probe"
	EventTypeConvergence  EventType = "convergence"
	EventTypeEndAudit     EventType = "end_audit"
)

// Event is a single timestamped entry in the audit event stream.
type Event struct {
	Timestamp string         `json:"timestamp"`
	EventType EventType      `json:"event_type"`
	Data      map[string]any `json:"data"`
}

// CommandOptions captures the configurable parameters for the session command.
type CommandOptions struct {
	ScenarioPath  string
	Seed          int64
	SeedProvided  bool
	JSONEventPath string
	StoreRun      bool
}

// Summary aggregates the metrics computed across one audit run.
type Summary struct {
	TokensUsed      int
	AnchorCount     int
	AnchorsRecalled int
	RecallRate      float64
	MeanIntegrity   float64
	Convergence     float64
}

// Clock abstracts time-dependent functionality for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the standard library.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
