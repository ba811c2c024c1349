package session

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tokenaudit/internal/history"
	"github.com/temirov/tokenaudit/internal/utils"
	pathutils "github.com/temirov/tokenaudit/internal/utils/path"
)

const (
	commandNameConstant           = "session"
	commandShortDescription       = "Run a coherence audit session"
	commandLongDescription        = "session executes one coherence audit: simulated token usage, anchor recall, stress probes, and cross-model convergence, emitting a JSON event per step."
	flagScenarioName              = "scenario"
	flagScenarioDescription       = "Path to a YAML scenario defining anchors and probes."
	flagSeedName                  = "seed"
	flagSeedDescription           = "Seed for the audit generator; omit for a time-based seed."
	flagJSONName                  = "json"
	flagJSONDescription           = "Write the event stream to this path instead of stdout."
	flagStoreName                 = "store"
	flagStoreDescription          = "Record the run summary in the history database."
	commandStartedMessageConstant = "coherence audit started"
	logFieldScenarioConstant      = "scenario"
	logFieldSeededConstant        = "seeded"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the session cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	ConfigurationProvider       func() CommandConfiguration
	Recorder                    RunRecorder
	HistoryDatabasePathProvider func() string
}

// Build constructs the cobra command for coherence audit sessions.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(flagScenarioName, "", flagScenarioDescription)
	command.Flags().Int64(flagSeedName, 0, flagSeedDescription)
	command.Flags().String(flagJSONName, "", flagJSONDescription)
	command.Flags().Bool(flagStoreName, false, flagStoreDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	options := builder.parseOptions(command)

	logger := builder.resolveLogger()
	logger.Info(
		commandStartedMessageConstant,
		zap.String(logFieldScenarioConstant, options.ScenarioPath),
		zap.Bool(logFieldSeededConstant, options.SeedProvided),
	)

	recorder := builder.Recorder
	if recorder == nil && options.StoreRun {
		store, storeError := history.OpenStore(builder.resolveHistoryDatabasePath())
		if storeError != nil {
			return storeError
		}
		defer store.Close()
		recorder = store
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	service := NewService(recorder, outputWriter, nil)
	_, runError := service.Run(command.Context(), options)
	return runError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) CommandOptions {
	configuration := builder.resolveConfiguration()

	scenarioPath := configuration.Scenario
	if command.Flags().Changed(flagScenarioName) {
		scenarioPath, _ = command.Flags().GetString(flagScenarioName)
	}

	seed := configuration.Seed
	seedProvided := seed != 0
	if command.Flags().Changed(flagSeedName) {
		seed, _ = command.Flags().GetInt64(flagSeedName)
		seedProvided = true
	}

	jsonEventPath, _ := command.Flags().GetString(flagJSONName)
	storeRun, _ := command.Flags().GetBool(flagStoreName)

	return CommandOptions{
		ScenarioPath:  pathutils.NewHomeExpander().Expand(scenarioPath),
		Seed:          seed,
		SeedProvided:  seedProvided,
		JSONEventPath: jsonEventPath,
		StoreRun:      storeRun,
	}
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveHistoryDatabasePath() string {
	if builder.HistoryDatabasePathProvider == nil {
		return history.DefaultDatabasePath()
	}
	databasePath := builder.HistoryDatabasePathProvider()
	if len(databasePath) == 0 {
		return history.DefaultDatabasePath()
	}
	return databasePath
}
