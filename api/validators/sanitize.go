package validators

import "strings"

// SanitizeString trims surrounding whitespace and truncates free-text
// input to maxLen bytes. A maxLen of zero disables truncation.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
