package session

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	scenarioLoadErrorTemplateConstant   = "failed to load scenario: %w"
	scenarioParseErrorTemplateConstant  = "failed to parse scenario: %w"
	scenarioPathRequiredMessageConstant = "scenario path must be provided"
	scenarioEmptyAnchorsMessageConstant = "scenario must define at least one anchor"
	scenarioEmptyProbesMessageConstant  = "scenario must define at least one probe"
	builtinScenarioSubjectNameConstant  = "builtin"
)

// Scenario defines the anchors and stress probes exercised by a session run.
type Scenario struct {
	Anchors []string `yaml:"anchors" json:"anchors"`
	Probes  []string `yaml:"probes" json:"probes"`
}

// DefaultScenario returns the built-in anchor and probe set.
func DefaultScenario() Scenario {
	return Scenario{
		Anchors: []string{
			"Identity=Operator",
			"Containment=Preservation",
			"CCRP",
			"Collapse",
			"Rebuild",
		},
		Probes: []string{
			"Law 1 - Discipline beats income",
			"Law 2 - Compounding is king",
			"Law 3 - Teaching doesn't save people",
			"Law 4 - Panic is story-driven",
		},
	}
}

// LoadScenario reads a scenario definition from disk and validates it.
func LoadScenario(filePath string) (Scenario, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Scenario{}, errors.New(scenarioPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Scenario{}, fmt.Errorf(scenarioLoadErrorTemplateConstant, readError)
	}

	var scenario Scenario
	if unmarshalError := yaml.Unmarshal(contentBytes, &scenario); unmarshalError != nil {
		return Scenario{}, fmt.Errorf(scenarioParseErrorTemplateConstant, unmarshalError)
	}

	scenario.Anchors = sanitizeEntries(scenario.Anchors)
	scenario.Probes = sanitizeEntries(scenario.Probes)

	if len(scenario.Anchors) == 0 {
		return Scenario{}, errors.New(scenarioEmptyAnchorsMessageConstant)
	}
	if len(scenario.Probes) == 0 {
		return Scenario{}, errors.New(scenarioEmptyProbesMessageConstant)
	}

	return scenario, nil
}

func sanitizeEntries(raw []string) []string {
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
