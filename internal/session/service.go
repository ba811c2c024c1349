package session

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/temirov/tokenaudit/internal/history"
)

const (
	eventTimestampLayoutConstant        = time.RFC3339
	eventFileErrorTemplateConstant      = "unable to write event log %s: %w"
	dataKeyAnchorsConstant              = "anchors"
	dataKeyProbesConstant               = "probes"
	dataKeyTokensConstant               = "tokens"
	dataKeyAnchorConstant               = "anchor"
	dataKeySuccessConstant              = "success"
	dataKeyProbeConstant                = "probe"
	dataKeyIntegrityConstant            = "integrity"
	dataKeyModelScoresConstant          = "model_scores"
	dataKeyConvergenceConstant          = "convergence"
	dataKeyStatusConstant               = "status"
	dataKeyAnchorsRecalledConstant      = "anchors_recalled"
	dataKeyRecallRateConstant           = "recall_rate"
	dataKeyMeanIntegrityConstant        = "mean_integrity"
	statusCompleteConstant              = "complete"
	baseTokenUsageMinimumConstant       = 800
	baseTokenUsageSpanConstant          = 401
	efficiencyGainMinimumConstant       = 50
	efficiencyGainSpanConstant          = 101
	anchorRecallSuccessNumeratorConst   = 2
	anchorRecallSuccessDenominatorConst = 3
	probeIntegrityMinimumConstant       = 0.6
	probeIntegritySpanConstant          = 0.35
	convergenceScoreMinimumConstant     = 0.7
	convergenceScoreSpanConstant        = 0.25
	convergenceModelCountConstant       = 3
	recordDetailsTemplateConstant       = "anchors=%d recall=%.2f integrity=%.2f"
)

// RunRecorder persists completed run summaries.
type RunRecorder interface {
	RecordRun(executionContext context.Context, record history.RunRecord) error
}

// EventWriter receives the audit event stream.
type EventWriter interface {
	WriteEvent(event Event) error
}

// Service executes coherence audit runs and emits their event streams.
type Service struct {
	recorder     RunRecorder
	outputWriter io.Writer
	clock        Clock
}

// NewService constructs a Service using the provided dependencies.
func NewService(recorder RunRecorder, outputWriter io.Writer, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		recorder:     recorder,
		outputWriter: outputWriter,
		clock:        clock,
	}
}

// Run executes one audit according to the provided options and returns its summary.
func (service *Service) Run(executionContext context.Context, options CommandOptions) (Summary, error) {
	scenario := DefaultScenario()
	subject := builtinScenarioSubjectNameConstant
	if len(options.ScenarioPath) > 0 {
		loadedScenario, loadError := LoadScenario(options.ScenarioPath)
		if loadError != nil {
			return Summary{}, loadError
		}
		scenario = loadedScenario
		subject = options.ScenarioPath
	}

	eventWriter, closeWriter, writerError := service.resolveEventWriter(options)
	if writerError != nil {
		return Summary{}, writerError
	}
	defer closeWriter()

	seed := options.Seed
	if !options.SeedProvided {
		seed = service.clock.Now().UnixNano()
	}
	random := rand.New(rand.NewSource(seed))

	emit := func(eventType EventType, data map[string]any) error {
		event := Event{
			Timestamp: service.clock.Now().UTC().Format(eventTimestampLayoutConstant),
			EventType: eventType,
			Data:      data,
		}
		return eventWriter.WriteEvent(event)
	}

	if emitError := emit(EventTypeStartAudit, map[string]any{
		dataKeyAnchorsConstant: scenario.Anchors,
		dataKeyProbesConstant:  scenario.Probes,
	}); emitError != nil {
		return Summary{}, emitError
	}

	tokensUsed := simulateTokenUsage(random)
	if emitError := emit(EventTypeTokenUsage, map[string]any{dataKeyTokensConstant: tokensUsed}); emitError != nil {
		return Summary{}, emitError
	}

	anchorsRecalled := 0
	for _, anchor := range scenario.Anchors {
		success := simulateAnchorRecall(random)
		if success {
			anchorsRecalled++
		}
		if emitError := emit(EventTypeAnchorRecall, map[string]any{
			dataKeyAnchorConstant:  anchor,
			dataKeySuccessConstant: success,
		}); emitError != nil {
			return Summary{}, emitError
		}
	}

	integritySum := 0.0
	for _, probe := range scenario.Probes {
		integrity := simulateProbeIntegrity(random)
		integritySum += integrity
		if emitError := emit(EventTypeStressProbe, map[string]any{
			dataKeyProbeConstant:     probe,
			dataKeyIntegrityConstant: integrity,
		}); emitError != nil {
			return Summary{}, emitError
		}
	}

	modelScores, convergence := simulateConvergence(random)
	if emitError := emit(EventTypeConvergence, map[string]any{
		dataKeyModelScoresConstant: modelScores,
		dataKeyConvergenceConstant: convergence,
	}); emitError != nil {
		return Summary{}, emitError
	}

	summary := Summary{
		TokensUsed:      tokensUsed,
		AnchorCount:     len(scenario.Anchors),
		AnchorsRecalled: anchorsRecalled,
		RecallRate:      roundToHundredths(float64(anchorsRecalled) / float64(len(scenario.Anchors))),
		MeanIntegrity:   roundToHundredths(integritySum / float64(len(scenario.Probes))),
		Convergence:     convergence,
	}

	if emitError := emit(EventTypeEndAudit, map[string]any{
		dataKeyStatusConstant:          statusCompleteConstant,
		dataKeyAnchorsRecalledConstant: summary.AnchorsRecalled,
		dataKeyRecallRateConstant:      summary.RecallRate,
		dataKeyMeanIntegrityConstant:   summary.MeanIntegrity,
	}); emitError != nil {
		return Summary{}, emitError
	}

	if options.StoreRun && service.recorder != nil {
		record := history.RunRecord{
			RecordedAt:  service.clock.Now(),
			Kind:        history.RunKindSession,
			Subject:     subject,
			TotalTokens: int64(summary.TokensUsed),
			Metric:      summary.Convergence,
			Details:     fmt.Sprintf(recordDetailsTemplateConstant, summary.AnchorCount, summary.RecallRate, summary.MeanIntegrity),
		}
		if recordError := service.recorder.RecordRun(executionContext, record); recordError != nil {
			return Summary{}, recordError
		}
	}

	return summary, nil
}

func (service *Service) resolveEventWriter(options CommandOptions) (EventWriter, func(), error) {
	if len(options.JSONEventPath) == 0 {
		return NewStreamEventWriter(service.outputWriter), func() {}, nil
	}

	eventFile, createError := os.Create(options.JSONEventPath)
	if createError != nil {
		return nil, nil, fmt.Errorf(eventFileErrorTemplateConstant, options.JSONEventPath, createError)
	}
	return NewStreamEventWriter(eventFile), func() { _ = eventFile.Close() }, nil
}

func simulateTokenUsage(random *rand.Rand) int {
	baseTokens := baseTokenUsageMinimumConstant + random.Intn(baseTokenUsageSpanConstant)
	efficiencyGain := efficiencyGainMinimumConstant + random.Intn(efficiencyGainSpanConstant)
	return baseTokens - efficiencyGain
}

func simulateAnchorRecall(random *rand.Rand) bool {
	return random.Intn(anchorRecallSuccessDenominatorConst) < anchorRecallSuccessNumeratorConst
}

func simulateProbeIntegrity(random *rand.Rand) float64 {
	return roundToHundredths(probeIntegrityMinimumConstant + random.Float64()*probeIntegritySpanConstant)
}

func simulateConvergence(random *rand.Rand) ([]float64, float64) {
	modelScores := make([]float64, 0, convergenceModelCountConstant)
	scoreSum := 0.0
	for scoreIndex := 0; scoreIndex < convergenceModelCountConstant; scoreIndex++ {
		score := roundToHundredths(convergenceScoreMinimumConstant + random.Float64()*convergenceScoreSpanConstant)
		modelScores = append(modelScores, score)
		scoreSum += score
	}
	return modelScores, roundToHundredths(scoreSum / convergenceModelCountConstant)
}

func roundToHundredths(value float64) float64 {
	return math.Round(value*100) / 100
}
