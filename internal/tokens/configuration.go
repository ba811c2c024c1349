package tokens

import "strings"

const (
	configurationModelKeySuffixConstant      = ".model"
	configurationExtensionsKeySuffixConstant = ".extensions"
	configurationExcludesKeySuffixConstant   = ".excludes"
	configurationTopKeySuffixConstant        = ".top"
	defaultModelNameConstant                 = "gpt-4o"
	defaultTopRowCountConstant               = 10
)

// Extensions counted when neither configuration nor flags narrow the scan.
var defaultExtensionList = []string{
	".md", ".markdown", ".txt", ".py", ".json", ".yaml", ".yml",
	".csv", ".toml", ".ini", ".cfg", ".js", ".ts", ".go",
}

// CommandConfiguration captures persistent settings for the count command.
type CommandConfiguration struct {
	Model      string   `mapstructure:"model"`
	Extensions []string `mapstructure:"extensions"`
	Excludes   []string `mapstructure:"excludes"`
	Top        int      `mapstructure:"top"`
}

// DefaultCommandConfiguration returns baseline configuration values for the count command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Model:      defaultModelNameConstant,
		Extensions: DefaultExtensions(),
		Excludes:   nil,
		Top:        defaultTopRowCountConstant,
	}
}

// DefaultConfigurationValues exposes the count defaults keyed under the provided configuration prefix.
func DefaultConfigurationValues(configurationPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationPrefix + configurationModelKeySuffixConstant:      defaults.Model,
		configurationPrefix + configurationExtensionsKeySuffixConstant: defaults.Extensions,
		configurationPrefix + configurationExcludesKeySuffixConstant:   defaults.Excludes,
		configurationPrefix + configurationTopKeySuffixConstant:        defaults.Top,
	}
}

// DefaultExtensions returns a copy of the built-in extension allowlist.
func DefaultExtensions() []string {
	duplicated := make([]string, len(defaultExtensionList))
	copy(duplicated, defaultExtensionList)
	return duplicated
}

// sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.Model = strings.TrimSpace(configuration.Model)
	if len(sanitized.Model) == 0 {
		sanitized.Model = defaultModelNameConstant
	}

	sanitized.Extensions = sanitizeList(configuration.Extensions)
	if len(sanitized.Extensions) == 0 {
		sanitized.Extensions = DefaultExtensions()
	}

	sanitized.Excludes = sanitizeList(configuration.Excludes)

	if sanitized.Top <= 0 {
		sanitized.Top = defaultTopRowCountConstant
	}

	return sanitized
}

func sanitizeList(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for index := range raw {
		trimmed := strings.TrimSpace(raw[index])
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
