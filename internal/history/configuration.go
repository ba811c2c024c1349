package history

import "strings"

const (
	configurationDatabaseKeySuffixConstant = ".database"
	configurationLimitKeySuffixConstant    = ".limit"
	defaultListLimitConstant               = 20
)

// CommandConfiguration captures persistent settings for the history command.
type CommandConfiguration struct {
	Database string `mapstructure:"database"`
	Limit    int    `mapstructure:"limit"`
}

// DefaultCommandConfiguration returns baseline configuration values for the history command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Database: "",
		Limit:    defaultListLimitConstant,
	}
}

// DefaultConfigurationValues exposes the history defaults keyed under the provided configuration prefix.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationPrefix + configurationDatabaseKeySuffixConstant: defaults.Database,
		configurationPrefix + configurationLimitKeySuffixConstant:    defaults.Limit,
	}
}

// sanitize trims whitespace and restores invalid limits to the default.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Database = strings.TrimSpace(configuration.Database)
	if sanitized.Limit <= 0 {
		sanitized.Limit = defaultListLimitConstant
	}
	return sanitized
}
