package session

import "strings"

const (
	configurationScenarioKeySuffixConstant = ".scenario"
	configurationSeedKeySuffixConstant     = ".seed"
)

// CommandConfiguration captures persistent settings for the session command.
type CommandConfiguration struct {
	Scenario string `mapstructure:"scenario"`
	Seed     int64  `mapstructure:"seed"`
}

// DefaultCommandConfiguration returns baseline configuration values for the session command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Scenario: "",
		Seed:     0,
	}
}

// DefaultConfigurationValues exposes the session defaults keyed under the provided configuration prefix.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationPrefix + configurationScenarioKeySuffixConstant: defaults.Scenario,
		configurationPrefix + configurationSeedKeySuffixConstant:     defaults.Seed,
	}
}

// sanitize trims whitespace on configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Scenario = strings.TrimSpace(configuration.Scenario)
	return sanitized
}
