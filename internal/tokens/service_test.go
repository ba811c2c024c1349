package tokens_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tokenaudit/internal/discovery"
	"github.com/temirov/tokenaudit/internal/history"
	"github.com/temirov/tokenaudit/internal/tokens"
)

const (
	serviceTestLargePathConstant   = "docs/large.md"
	serviceTestSmallPathConstant   = "docs/small.md"
	serviceTestBrokenPathConstant  = "docs/broken.md"
	serviceTestEmptyPathConstant   = "docs/empty.md"
	serviceTestModelConstant       = "gpt-4o"
	serviceTestTimestampConstant   = "2026-08-23T10:00:00Z"
	serviceTestWarningSnippet      = "warning: could not read"
	serviceTestTotalSnippet        = "TOTAL TOKENS ≈ 30"
	serviceTestOverflowSnippet     = "... (+1 more)"
	serviceTestUnreadableErrorText = "permission denied"
)

type fakeDocumentDiscoverer struct {
	documents []string
	err       error
}

func (discoverer fakeDocumentDiscoverer) DiscoverDocuments(roots []string, filter discovery.DocumentFilter) ([]string, error) {
	return discoverer.documents, discoverer.err
}

type fakeFileReader struct {
	contents map[string]string
	failures map[string]error
}

func (reader fakeFileReader) ReadFile(path string) ([]byte, error) {
	if failure, failed := reader.failures[path]; failed {
		return nil, failure
	}
	return []byte(reader.contents[path]), nil
}

type capturingRecorder struct {
	records []history.RunRecord
}

func (recorder *capturingRecorder) RecordRun(executionContext context.Context, record history.RunRecord) error {
	recorder.records = append(recorder.records, record)
	return nil
}

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

func serviceTestClock(testInstance *testing.T) fixedClock {
	testInstance.Helper()
	instant, parseError := time.Parse(time.RFC3339, serviceTestTimestampConstant)
	require.NoError(testInstance, parseError)
	return fixedClock{instant: instant}
}

func TestServiceRunCountsAndRanksDocuments(testInstance *testing.T) {
	discoverer := fakeDocumentDiscoverer{documents: []string{
		serviceTestSmallPathConstant,
		serviceTestLargePathConstant,
		serviceTestBrokenPathConstant,
		serviceTestEmptyPathConstant,
	}}
	reader := fakeFileReader{
		contents: map[string]string{
			serviceTestSmallPathConstant: strings.Repeat("a", 41),
			serviceTestLargePathConstant: strings.Repeat("b", 82),
			serviceTestEmptyPathConstant: "",
		},
		failures: map[string]error{
			serviceTestBrokenPathConstant: errors.New(serviceTestUnreadableErrorText),
		},
	}

	outputBuffer := &bytes.Buffer{}
	errorBuffer := &bytes.Buffer{}
	service := tokens.NewService(discoverer, reader, nil, outputBuffer, errorBuffer, serviceTestClock(testInstance))

	options := tokens.CommandOptions{
		Roots:      []string{"docs"},
		Model:      serviceTestModelConstant,
		Extensions: []string{".md"},
		Method:     tokens.CountMethodApproximate,
		TopRows:    1,
	}

	runError := service.Run(context.Background(), options)
	require.NoError(testInstance, runError)

	outputText := outputBuffer.String()
	require.Contains(testInstance, outputText, serviceTestTimestampConstant)
	require.Contains(testInstance, outputText, "Model: gpt-4o (method=approx)")
	require.Contains(testInstance, outputText, "Files counted: 2")
	require.Contains(testInstance, outputText, serviceTestLargePathConstant)
	require.Contains(testInstance, outputText, serviceTestOverflowSnippet)
	require.Contains(testInstance, outputText, serviceTestTotalSnippet)
	require.NotContains(testInstance, outputText, serviceTestSmallPathConstant)

	require.Contains(testInstance, errorBuffer.String(), serviceTestWarningSnippet)
	require.Contains(testInstance, errorBuffer.String(), serviceTestBrokenPathConstant)
}

func TestServiceRunWritesReports(testInstance *testing.T) {
	tempDirectory := testInstance.TempDir()
	jsonReportPath := filepath.Join(tempDirectory, "report.json")
	csvReportPath := filepath.Join(tempDirectory, "report.csv")

	discoverer := fakeDocumentDiscoverer{documents: []string{
		serviceTestSmallPathConstant,
		serviceTestLargePathConstant,
	}}
	reader := fakeFileReader{contents: map[string]string{
		serviceTestSmallPathConstant: strings.Repeat("a", 41),
		serviceTestLargePathConstant: strings.Repeat("b", 82),
	}}

	outputBuffer := &bytes.Buffer{}
	service := tokens.NewService(discoverer, reader, nil, outputBuffer, &bytes.Buffer{}, serviceTestClock(testInstance))

	options := tokens.CommandOptions{
		Roots:          []string{"docs"},
		Model:          serviceTestModelConstant,
		Extensions:     []string{".md"},
		Method:         tokens.CountMethodApproximate,
		TopRows:        10,
		JSONReportPath: jsonReportPath,
		CSVReportPath:  csvReportPath,
	}

	runError := service.Run(context.Background(), options)
	require.NoError(testInstance, runError)

	reportBytes, readError := os.ReadFile(jsonReportPath)
	require.NoError(testInstance, readError)

	var report tokens.Report
	require.NoError(testInstance, json.Unmarshal(reportBytes, &report))
	require.Equal(testInstance, serviceTestTimestampConstant, report.GeneratedAt)
	require.Equal(testInstance, serviceTestModelConstant, report.Model)
	require.Equal(testInstance, tokens.CountMethodApproximate, report.Method)
	require.Equal(testInstance, 30, report.TotalTokens)
	require.Equal(testInstance, 2, report.FilesCounted)
	require.Len(testInstance, report.Rows, 2)
	require.Equal(testInstance, serviceTestLargePathConstant, report.Rows[0].Path)
	require.Equal(testInstance, 20, report.Rows[0].Tokens)
	require.Equal(testInstance, serviceTestSmallPathConstant, report.Rows[1].Path)
	require.Equal(testInstance, 10, report.Rows[1].Tokens)

	csvBytes, csvReadError := os.ReadFile(csvReportPath)
	require.NoError(testInstance, csvReadError)
	csvText := string(csvBytes)
	require.True(testInstance, strings.HasPrefix(csvText, "path,tokens,method,chars\n"))
	require.Contains(testInstance, csvText, "docs/large.md,20,approx,82")
	require.Contains(testInstance, csvText, "docs/small.md,10,approx,41")

	require.Contains(testInstance, outputBuffer.String(), jsonReportPath)
	require.Contains(testInstance, outputBuffer.String(), csvReportPath)
}

func TestServiceRunRecordsHistory(testInstance *testing.T) {
	discoverer := fakeDocumentDiscoverer{documents: []string{serviceTestLargePathConstant}}
	reader := fakeFileReader{contents: map[string]string{
		serviceTestLargePathConstant: strings.Repeat("b", 82),
	}}
	recorder := &capturingRecorder{}

	service := tokens.NewService(discoverer, reader, recorder, &bytes.Buffer{}, &bytes.Buffer{}, serviceTestClock(testInstance))

	options := tokens.CommandOptions{
		Roots:      []string{"docs"},
		Model:      serviceTestModelConstant,
		Extensions: []string{".md"},
		Method:     tokens.CountMethodApproximate,
		TopRows:    10,
		StoreRun:   true,
	}

	runError := service.Run(context.Background(), options)
	require.NoError(testInstance, runError)

	require.Len(testInstance, recorder.records, 1)
	record := recorder.records[0]
	require.Equal(testInstance, history.RunKindCount, record.Kind)
	require.Equal(testInstance, "docs", record.Subject)
	require.Equal(testInstance, int64(20), record.TotalTokens)
	require.Equal(testInstance, int64(1), record.FilesCounted)
	require.Contains(testInstance, record.Details, "method=approx")
}

func TestServiceRunPropagatesDiscoveryFailure(testInstance *testing.T) {
	discoverer := fakeDocumentDiscoverer{err: errors.New("walk failed")}
	service := tokens.NewService(discoverer, fakeFileReader{}, nil, &bytes.Buffer{}, &bytes.Buffer{}, nil)

	runError := service.Run(context.Background(), tokens.CommandOptions{Method: tokens.CountMethodApproximate})
	require.Error(testInstance, runError)
}
