package flags_test

import (
	"fmt"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/temirov/tokenaudit/internal/utils/flags"
)

func TestAddChoiceFlag(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectedValue string
		expectedError bool
	}{
		{name: "default_without_argument", arguments: nil, expectedValue: "auto"},
		{name: "accepts_listed_choice", arguments: []string{"--method=exact"}, expectedValue: "exact"},
		{name: "normalizes_case", arguments: []string{"--method=EXACT"}, expectedValue: "exact"},
		{name: "rejects_unknown_choice", arguments: []string{"--method=guess"}, expectedError: true},
	}

	for index, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", index, testCase.name), func(subtestInstance *testing.T) {
			flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
			var methodValue string
			flags.AddChoiceFlag(flagSet, &methodValue, "method", "auto", []string{"auto", "exact", "approx"}, "Token counting method.")

			parseError := flagSet.Parse(testCase.arguments)
			if testCase.expectedError {
				require.Error(subtestInstance, parseError)
				require.Contains(subtestInstance, parseError.Error(), "expected one of")
				return
			}
			require.NoError(subtestInstance, parseError)
			require.Equal(subtestInstance, testCase.expectedValue, methodValue)
		})
	}
}

func TestFormatChoiceUsageHighlightsDefault(testInstance *testing.T) {
	usage := flags.FormatChoiceUsage("auto", []string{"auto", "exact", "approx"}, "Token counting method.")
	require.Contains(testInstance, usage, "<AUTO|exact|approx>")
	require.Contains(testInstance, usage, "Token counting method.")
}
