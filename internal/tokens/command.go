package tokens

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tokenaudit/internal/discovery"
	"github.com/temirov/tokenaudit/internal/history"
	"github.com/temirov/tokenaudit/internal/utils"
	"github.com/temirov/tokenaudit/internal/utils/flags"
	pathutils "github.com/temirov/tokenaudit/internal/utils/path"
)

const (
	commandNameConstant           = "count [paths...]"
	commandShortDescription       = "Count tokens across files and directories"
	commandLongDescription        = "count walks the provided paths, measures per-file token totals using exact or approximate tokenization, and emits a console summary with optional JSON and CSV reports."
	flagModelName                 = "model"
	flagModelDescription          = "Model hint selecting the exact tokenizer encoding."
	flagExtensionsName            = "ext"
	flagExtensionsDescription     = "Comma-separated list of file extensions to include."
	flagExcludeName               = "exclude"
	flagExcludeDescription        = "Glob patterns excluding matched paths (repeatable)."
	flagMethodName                = "method"
	flagMethodDescription         = "Token counting method."
	flagTopName                   = "top"
	flagTopDescription            = "Number of rows displayed in the console summary."
	flagJSONName                  = "json"
	flagJSONDescription           = "Write the detailed JSON report to this path."
	flagCSVName                   = "csv"
	flagCSVDescription            = "Write the CSV report to this path."
	flagStoreName                 = "store"
	flagStoreDescription          = "Record the run summary in the history database."
	commandStartedMessageConstant = "token count started"
	logFieldRootCountConstant     = "root_count"
	logFieldModelConstant         = "model"
	logFieldMethodConstant        = "method"
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the count cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	ConfigurationProvider       func() CommandConfiguration
	Discoverer                  DocumentDiscoverer
	FileReader                  FileReader
	HistoryDatabasePathProvider func() string
}

// Build constructs the cobra command for token counting.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	var methodFlagValue string

	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments, methodFlagValue)
		},
	}

	command.Flags().String(flagModelName, "", flagModelDescription)
	command.Flags().String(flagExtensionsName, "", flagExtensionsDescription)
	command.Flags().StringSlice(flagExcludeName, nil, flagExcludeDescription)
	flags.AddChoiceFlag(command.Flags(), &methodFlagValue, flagMethodName, string(CountMethodAuto), []string{string(CountMethodAuto), string(CountMethodExact), string(CountMethodApproximate)}, flagMethodDescription)
	command.Flags().Int(flagTopName, 0, flagTopDescription)
	command.Flags().String(flagJSONName, "", flagJSONDescription)
	command.Flags().String(flagCSVName, "", flagCSVDescription)
	command.Flags().Bool(flagStoreName, false, flagStoreDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string, methodFlagValue string) error {
	options, optionsError := builder.parseOptions(command, arguments, methodFlagValue)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	logger.Info(
		commandStartedMessageConstant,
		zap.Int(logFieldRootCountConstant, len(options.Roots)),
		zap.String(logFieldModelConstant, options.Model),
		zap.String(logFieldMethodConstant, string(options.Method)),
	)

	var recorder RunRecorder
	if options.StoreRun {
		store, storeError := history.OpenStore(builder.resolveHistoryDatabasePath())
		if storeError != nil {
			return storeError
		}
		defer store.Close()
		recorder = store
	}

	discoverer := builder.Discoverer
	if discoverer == nil {
		discoverer = discovery.NewFilesystemDocumentDiscoverer()
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	service := NewService(discoverer, builder.FileReader, recorder, outputWriter, command.ErrOrStderr(), nil)
	return service.Run(command.Context(), options)
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, methodFlagValue string) (CommandOptions, error) {
	configuration := builder.resolveConfiguration()

	method, methodError := ParseCountMethod(methodFlagValue)
	if methodError != nil {
		return CommandOptions{}, methodError
	}

	model := configuration.Model
	if command.Flags().Changed(flagModelName) {
		model, _ = command.Flags().GetString(flagModelName)
	}

	extensions := configuration.Extensions
	if command.Flags().Changed(flagExtensionsName) {
		rawExtensions, _ := command.Flags().GetString(flagExtensionsName)
		extensions = ParseExtensionList(rawExtensions)
	}

	excludePatterns := configuration.Excludes
	if command.Flags().Changed(flagExcludeName) {
		excludePatterns, _ = command.Flags().GetStringSlice(flagExcludeName)
	}

	topRows := configuration.Top
	if command.Flags().Changed(flagTopName) {
		topRows, _ = command.Flags().GetInt(flagTopName)
	}

	jsonReportPath, _ := command.Flags().GetString(flagJSONName)
	csvReportPath, _ := command.Flags().GetString(flagCSVName)
	storeRun, _ := command.Flags().GetBool(flagStoreName)

	options := CommandOptions{
		Roots:           pathutils.NewHomeExpander().ExpandAll(arguments),
		Model:           model,
		Extensions:      extensions,
		ExcludePatterns: excludePatterns,
		Method:          method,
		TopRows:         topRows,
		JSONReportPath:  jsonReportPath,
		CSVReportPath:   csvReportPath,
		StoreRun:        storeRun,
	}

	return options, nil
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
