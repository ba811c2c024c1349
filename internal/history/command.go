package history

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tokenaudit/internal/utils"
	pathutils "github.com/temirov/tokenaudit/internal/utils/path"
)

const (
	commandNameConstant           = "history"
	commandShortDescription       = "List recorded audit runs"
	commandLongDescription        = "history lists stored token count and coherence audit runs, newest first."
	flagLimitName                 = "limit"
	flagLimitDescription          = "Maximum number of runs to list."
	flagDatabaseName              = "database"
	flagDatabaseDescription       = "Path to the history database."
	commandStartedMessageConstant = "history listing started"
	logFieldLimitConstant         = "limit"
	logFieldDatabaseConstant      = "database"
	noRunsMessageConstant         = "No recorded runs.\n"
	runLineTemplateConstant       = "%s  %-7s  tokens=%-8d files=%-5d metric=%.2f  %s\n"
	runSubjectTemplateConstant    = "%s (%s)"
	recordedAtDisplayLayoutConst  = "2006-01-02 15:04:05"
)

// RunLister retrieves stored runs for display.
type RunLister interface {
	ListRuns(executionContext context.Context, limit int) ([]StoredRun, error)
}

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the history cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	Lister                RunLister
}

// Build constructs the cobra command for listing recorded runs.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandNameConstant,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().Int(flagLimitName, defaultListLimitConstant, flagLimitDescription)
	command.Flags().String(flagDatabaseName, "", flagDatabaseDescription)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	limit := configuration.Limit
	if command.Flags().Changed(flagLimitName) {
		limit, _ = command.Flags().GetInt(flagLimitName)
	}
	if limit <= 0 {
		limit = defaultListLimitConstant
	}

	databasePath := configuration.Database
	if command.Flags().Changed(flagDatabaseName) {
		databasePath, _ = command.Flags().GetString(flagDatabaseName)
	}
	if len(databasePath) == 0 {
		databasePath = DefaultDatabasePath()
	}
	databasePath = pathutils.NewHomeExpander().Expand(databasePath)

	logger := builder.resolveLogger()
	logger.Info(
		commandStartedMessageConstant,
		zap.Int(logFieldLimitConstant, limit),
		zap.String(logFieldDatabaseConstant, databasePath),
	)

	lister := builder.Lister
	if lister == nil {
		store, storeError := OpenStore(databasePath)
		if storeError != nil {
			return storeError
		}
		defer store.Close()
		lister = store
	}

	storedRuns, listError := lister.ListRuns(command.Context(), limit)
	if listError != nil {
		return listError
	}

	outputWriter := utils.NewFlushingWriter(command.OutOrStdout())
	if len(storedRuns) == 0 {
		fmt.Fprint(outputWriter, noRunsMessageConstant)
		return nil
	}

	for _, storedRun := range storedRuns {
		subject := storedRun.Subject
		if len(storedRun.Details) > 0 {
			subject = fmt.Sprintf(runSubjectTemplateConstant, storedRun.Subject, storedRun.Details)
		}
		fmt.Fprintf(
			outputWriter,
			runLineTemplateConstant,
			storedRun.RecordedAt.Local().Format(recordedAtDisplayLayoutConst),
			string(storedRun.Kind),
			storedRun.TotalTokens,
			storedRun.FilesCounted,
			storedRun.Metric,
			subject,
		)
	}
	return nil
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
