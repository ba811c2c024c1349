package session_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tokenaudit/internal/history"
	"github.com/temirov/tokenaudit/internal/session"
)

type capturingRecorder struct {
	records []history.RunRecord
}

func (recorder *capturingRecorder) RecordRun(_ context.Context, record history.RunRecord) error {
	recorder.records = append(recorder.records, record)
	return nil
}

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

func decodeEventStream(testInstance *testing.T, raw []byte) []session.Event {
	testInstance.Helper()
	events := make([]session.Event, 0)
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		var event session.Event
		require.NoError(testInstance, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}
	require.NoError(testInstance, scanner.Err())
	return events
}

func TestServiceRunEmitsOrderedEventStream(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	clock := fixedClock{instant: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	service := session.NewService(nil, outputBuffer, clock)

	summary, runError := service.Run(context.Background(), session.CommandOptions{Seed: 42, SeedProvided: true})
	require.NoError(testInstance, runError)

	events := decodeEventStream(testInstance, outputBuffer.Bytes())
	require.Len(testInstance, events, 13)

	expectedSequence := []session.EventType{
		session.EventTypeStartAudit,
		session.EventTypeTokenUsage,
		session.EventTypeAnchorRecall,
		session.EventTypeAnchorRecall,
		session.EventTypeAnchorRecall,
		session.EventTypeAnchorRecall,
		session.EventTypeAnchorRecall,
		session.EventTypeStressProbe,
		session.EventTypeStressProbe,
		session.EventTypeStressProbe,
		session.EventTypeStressProbe,
		session.EventTypeConvergence,
		session.EventTypeEndAudit,
	}
	for index, event := range events {
		require.Equal(testInstance, expectedSequence[index], event.EventType)
		require.Equal(testInstance, "2026-03-01T12:00:00Z", event.Timestamp)
	}

	require.GreaterOrEqual(testInstance, summary.TokensUsed, 650)
	require.LessOrEqual(testInstance, summary.TokensUsed, 1150)
	require.Equal(testInstance, 5, summary.AnchorCount)
	require.GreaterOrEqual(testInstance, summary.AnchorsRecalled, 0)
	require.LessOrEqual(testInstance, summary.AnchorsRecalled, 5)
	require.GreaterOrEqual(testInstance, summary.MeanIntegrity, 0.6)
	require.LessOrEqual(testInstance, summary.MeanIntegrity, 0.95)
	require.GreaterOrEqual(testInstance, summary.Convergence, 0.7)
	require.LessOrEqual(testInstance, summary.Convergence, 0.95)

	endAuditData := events[len(events)-1].Data
	require.Equal(testInstance, "complete", endAuditData["status"])
	require.InDelta(testInstance, summary.RecallRate, endAuditData["recall_rate"], 0.001)
	require.InDelta(testInstance, summary.MeanIntegrity, endAuditData["mean_integrity"], 0.001)
}

func TestServiceRunIsDeterministicForSeed(testInstance *testing.T) {
	clock := fixedClock{instant: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	options := session.CommandOptions{Seed: 7, SeedProvided: true}

	firstBuffer := &bytes.Buffer{}
	firstSummary, firstError := session.NewService(nil, firstBuffer, clock).Run(context.Background(), options)
	require.NoError(testInstance, firstError)

	secondBuffer := &bytes.Buffer{}
	secondSummary, secondError := session.NewService(nil, secondBuffer, clock).Run(context.Background(), options)
	require.NoError(testInstance, secondError)

	require.Equal(testInstance, firstSummary, secondSummary)
	require.Equal(testInstance, firstBuffer.String(), secondBuffer.String())
}

func TestServiceRunWritesEventFile(testInstance *testing.T) {
	eventLogPath := filepath.Join(testInstance.TempDir(), "events.json")
	clock := fixedClock{instant: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	service := session.NewService(nil, &bytes.Buffer{}, clock)

	_, runError := service.Run(context.Background(), session.CommandOptions{
		Seed:          11,
		SeedProvided:  true,
		JSONEventPath: eventLogPath,
	})
	require.NoError(testInstance, runError)

	logBytes, readError := os.ReadFile(eventLogPath)
	require.NoError(testInstance, readError)

	events := decodeEventStream(testInstance, logBytes)
	require.Len(testInstance, events, 13)
	require.Equal(testInstance, session.EventTypeStartAudit, events[0].EventType)
	require.Equal(testInstance, session.EventTypeEndAudit, events[len(events)-1].EventType)
}

func TestServiceRunRecordsHistory(testInstance *testing.T) {
	recorder := &capturingRecorder{}
	clock := fixedClock{instant: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	service := session.NewService(recorder, &bytes.Buffer{}, clock)

	summary, runError := service.Run(context.Background(), session.CommandOptions{
		Seed:         3,
		SeedProvided: true,
		StoreRun:     true,
	})
	require.NoError(testInstance, runError)

	require.Len(testInstance, recorder.records, 1)
	record := recorder.records[0]
	require.Equal(testInstance, history.RunKindSession, record.Kind)
	require.Equal(testInstance, "builtin", record.Subject)
	require.Equal(testInstance, int64(summary.TokensUsed), record.TotalTokens)
	require.Equal(testInstance, summary.Convergence, record.Metric)
	require.Contains(testInstance, record.Details, "anchors=5")
}

func TestServiceRunUsesCustomScenario(testInstance *testing.T) {
	scenarioPath := filepath.Join(testInstance.TempDir(), "scenario.yaml")
	scenarioContent := "anchors:\n  - Collapse\n  - Rebuild\nprobes:\n  - Panic is story-driven\n"
	require.NoError(testInstance, os.WriteFile(scenarioPath, []byte(scenarioContent), 0o644))

	outputBuffer := &bytes.Buffer{}
	clock := fixedClock{instant: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	recorder := &capturingRecorder{}
	service := session.NewService(recorder, outputBuffer, clock)

	summary, runError := service.Run(context.Background(), session.CommandOptions{
		ScenarioPath: scenarioPath,
		Seed:         9,
		SeedProvided: true,
		StoreRun:     true,
	})
	require.NoError(testInstance, runError)

	require.Equal(testInstance, 2, summary.AnchorCount)
	events := decodeEventStream(testInstance, outputBuffer.Bytes())
	require.Len(testInstance, events, 7)
	require.Equal(testInstance, scenarioPath, recorder.records[0].Subject)
}

func TestServiceRunFailsOnMissingScenario(testInstance *testing.T) {
	service := session.NewService(nil, &bytes.Buffer{}, nil)
	_, runError := service.Run(context.Background(), session.CommandOptions{
		ScenarioPath: filepath.Join(testInstance.TempDir(), "absent.yaml"),
	})
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), "failed to load scenario")
}
