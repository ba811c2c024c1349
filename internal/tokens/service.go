package tokens

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/temirov/tokenaudit/internal/discovery"
	"github.com/temirov/tokenaudit/internal/history"
)

const (
	defaultRootPathConstant             = "."
	summaryHeaderTemplateConstant       = "\nToken audit — %s\n"
	summaryRootsTemplateConstant        = "Roots: %s\n"
	summaryModelTemplateConstant        = "Model: %s (method=%s)\n"
	summaryExtensionsTemplateConstant   = "Extensions: %s\n"
	summaryFilesCountedTemplateConstant = "Files counted: %d\n"
	summaryDividerConstant              = "----------------------------------------------------------------------\n"
	summaryRowTemplateConstant          = "%8d  [%s]  %s\n"
	summaryOverflowTemplateConstant     = "... (+%d more)\n"
	summaryTotalTemplateConstant        = "TOTAL TOKENS ≈ %d\n"
	unreadableFileWarningTemplateConst  = "warning: could not read %s: %v\n"
	generatedAtTimestampLayoutConstant  = time.RFC3339
	rootsSubjectSeparatorConstant       = " "
	recordDetailsTemplateConstant       = "model=%s method=%s"
)

// DocumentDiscoverer locates files eligible for counting.
type DocumentDiscoverer interface {
	DiscoverDocuments(roots []string, filter discovery.DocumentFilter) ([]string, error)
}

// FileReader abstracts document content access for deterministic testing.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSFileReader implements FileReader using the operating system.
type OSFileReader struct{}

// ReadFile reads the file contents from disk.
func (OSFileReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// RunRecorder persists completed run summaries.
type RunRecorder interface {
	RecordRun(executionContext context.Context, record history.RunRecord) error
}

// Service coordinates document discovery, token counting, and reporting.
type Service struct {
	discoverer   DocumentDiscoverer
	fileReader   FileReader
	recorder     RunRecorder
	outputWriter io.Writer
	errorWriter  io.Writer
	clock        Clock
}

// NewService constructs a Service using the provided dependencies.
func NewService(discoverer DocumentDiscoverer, fileReader FileReader, recorder RunRecorder, outputWriter io.Writer, errorWriter io.Writer, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if fileReader == nil {
		fileReader = OSFileReader{}
	}
	return &Service{
		discoverer:   discoverer,
		fileReader:   fileReader,
		recorder:     recorder,
		outputWriter: outputWriter,
		errorWriter:  errorWriter,
		clock:        clock,
	}
}

// Run executes the scan according to the provided options.
func (service *Service) Run(executionContext context.Context, options CommandOptions) error {
	roots := options.Roots
	if len(roots) == 0 {
		roots = []string{defaultRootPathConstant}
	}

	filter := discovery.NewDocumentFilter(options.Extensions, options.ExcludePatterns)

	documents, discoveryError := service.discoverer.DiscoverDocuments(roots, filter)
	if discoveryError != nil {
		return discoveryError
	}

	counter, counterError := service.resolveCounter(options)
	if counterError != nil {
		return counterError
	}

	rows := make([]FileTokenCount, 0, len(documents))
	totalTokens := 0
	for _, documentPath := range documents {
		contentBytes, readError := service.fileReader.ReadFile(documentPath)
		if readError != nil {
			fmt.Fprintf(service.errorWriter, unreadableFileWarningTemplateConst, documentPath, readError)
			continue
		}

		text := string(contentBytes)
		if len(text) == 0 {
			continue
		}

		tokenCount := counter.CountText(text)
		rows = append(rows, FileTokenCount{
			Path:       documentPath,
			Tokens:     tokenCount,
			Method:     counter.Method(),
			Characters: len(text),
		})
		totalTokens += tokenCount
	}

	sortRowsByTokens(rows)

	generatedAt := service.clock.Now().UTC().Format(generatedAtTimestampLayoutConstant)
	report := Report{
		GeneratedAt:  generatedAt,
		Roots:        roots,
		Model:        options.Model,
		Method:       counter.Method(),
		TotalTokens:  totalTokens,
		FilesCounted: len(rows),
		Rows:         rows,
	}

	service.writeConsoleSummary(report, filter.Extensions, options.TopRows)

	if len(options.JSONReportPath) > 0 {
		if writeError := WriteJSONReport(options.JSONReportPath, report); writeError != nil {
			return writeError
		}
		fmt.Fprintf(service.outputWriter, jsonReportWrittenTemplateConstant, options.JSONReportPath)
	}

	if len(options.CSVReportPath) > 0 {
		if writeError := WriteCSVReport(options.CSVReportPath, rows); writeError != nil {
			return writeError
		}
		fmt.Fprintf(service.outputWriter, csvReportWrittenTemplateConstant, options.CSVReportPath)
	}

	if options.StoreRun && service.recorder != nil {
		record := history.RunRecord{
			RecordedAt:   service.clock.Now(),
			Kind:         history.RunKindCount,
			Subject:      strings.Join(roots, rootsSubjectSeparatorConstant),
			TotalTokens:  int64(totalTokens),
			FilesCounted: int64(len(rows)),
			Metric:       float64(totalTokens),
			Details:      fmt.Sprintf(recordDetailsTemplateConstant, options.Model, counter.Method()),
		}
		if recordError := service.recorder.RecordRun(executionContext, record); recordError != nil {
			return recordError
		}
	}

	return nil
}

func (service *Service) resolveCounter(options CommandOptions) (TokenCounter, error) {
	switch options.Method {
	case CountMethodApproximate:
		return NewApproximateTokenCounter(), nil
	case CountMethodExact:
		return NewExactTokenCounter(options.Model)
	default:
		exactCounter, exactError := NewExactTokenCounter(options.Model)
		if exactError != nil {
			return NewApproximateTokenCounter(), nil
		}
		return exactCounter, nil
	}
}

func (service *Service) writeConsoleSummary(report Report, extensions []string, topRows int) {
	fmt.Fprintf(service.outputWriter, summaryHeaderTemplateConstant, report.GeneratedAt)
	fmt.Fprintf(service.outputWriter, summaryRootsTemplateConstant, strings.Join(report.Roots, rootsSubjectSeparatorConstant))
	fmt.Fprintf(service.outputWriter, summaryModelTemplateConstant, report.Model, report.Method)
	fmt.Fprintf(service.outputWriter, summaryExtensionsTemplateConstant, formatExtensionList(extensions))
	fmt.Fprintf(service.outputWriter, summaryFilesCountedTemplateConstant, report.FilesCounted)
	fmt.Fprint(service.outputWriter, summaryDividerConstant)

	displayedRows := report.Rows
	if topRows > 0 && len(displayedRows) > topRows {
		displayedRows = displayedRows[:topRows]
	}
	for _, row := range displayedRows {
		fmt.Fprintf(service.outputWriter, summaryRowTemplateConstant, row.Tokens, row.Method, row.Path)
	}
	if remaining := len(report.Rows) - len(displayedRows); remaining > 0 {
		fmt.Fprintf(service.outputWriter, summaryOverflowTemplateConstant, remaining)
	}

	fmt.Fprint(service.outputWriter, summaryDividerConstant)
	fmt.Fprintf(service.outputWriter, summaryTotalTemplateConstant, report.TotalTokens)
}

func sortRowsByTokens(rows []FileTokenCount) {
	sort.SliceStable(rows, func(firstIndex int, secondIndex int) bool {
		if rows[firstIndex].Tokens != rows[secondIndex].Tokens {
			return rows[firstIndex].Tokens > rows[secondIndex].Tokens
		}
		return rows[firstIndex].Path < rows[secondIndex].Path
	})
}
