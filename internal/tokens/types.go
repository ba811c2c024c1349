package tokens

import (
	"strconv"
	"time"
)

// CountMethod selects how token totals are produced.
type CountMethod string

// Count method values supported by the count command.
const (
	CountMethodAuto        CountMethod = "auto"
	CountMethodExact       CountMethod = "exact"
	CountMethodApproximate CountMethod = "approx"
)

// CommandOptions captures the configurable parameters for the count command.
type CommandOptions struct {
	Roots           []string
	Model           string
	Extensions      []string
	ExcludePatterns []string
	Method          CountMethod
	TopRows         int
	JSONReportPath  string
	CSVReportPath   string
	StoreRun        bool
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

// FileTokenCount records the token total measured for a single document.
type FileTokenCount struct {
	Path       string      `json:"path"`
	Tokens     int         `json:"tokens"`
	Method     CountMethod `json:"method"`
	Characters int         `json:"chars"`
}

// CSVRecord returns the row formatted for CSV encoding.
func (fileCount FileTokenCount) CSVRecord() []string {
	return []string{
		fileCount.Path,
		strconv.Itoa(fileCount.Tokens),
		string(fileCount.Method),
		strconv.Itoa(fileCount.Characters),
	}
}

// Report aggregates a full scan for JSON serialization.
type Report struct {
	GeneratedAt  string           `json:"generated_at"`
	Roots        []string         `json:"roots"`
	Model        string           `json:"model"`
	Method       CountMethod      `json:"method"`
	TotalTokens  int              `json:"total_tokens"`
	FilesCounted int              `json:"files_counted"`
	Rows         []FileTokenCount `json:"rows"`
}
