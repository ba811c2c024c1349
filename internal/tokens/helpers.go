package tokens

import (
	"fmt"
	"strings"
)

const (
	extensionListSeparatorConstant     = ","
	unknownCountMethodTemplateConstant = "unknown count method: %s"
	extensionDisplaySeparatorConstant  = ", "
)

// ParseExtensionList splits a comma-separated extension list into its elements.
func ParseExtensionList(rawList string) []string {
	segments := strings.Split(rawList, extensionListSeparatorConstant)
	extensions := make([]string, 0, len(segments))
	for _, segment := range segments {
		trimmed := strings.TrimSpace(segment)
		if len(trimmed) == 0 {
			continue
		}
		extensions = append(extensions, trimmed)
	}
	return extensions
}

// ParseCountMethod validates a raw method value.
func ParseCountMethod(rawMethod string) (CountMethod, error) {
	normalized := CountMethod(strings.ToLower(strings.TrimSpace(rawMethod)))
	switch normalized {
	case CountMethodAuto, CountMethodExact, CountMethodApproximate:
		return normalized, nil
	default:
		return "", fmt.Errorf(unknownCountMethodTemplateConstant, rawMethod)
	}
}

func formatExtensionList(extensions []string) string {
	return strings.Join(extensions, extensionDisplaySeparatorConstant)
}
