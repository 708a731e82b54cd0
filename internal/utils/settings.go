package utils

import (
	"strings"
)

// ParseList splits a settings value into a flat list of words.
// Lines are trimmed and blank lines dropped, then each line is split on whitespace.
func ParseList(value string) []string {
	result := make([]string, 0)

	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		result = append(result, strings.Fields(line)...)
	}

	return result
}

// ParseBool interprets the usual truthy spellings found in ini-style settings
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "t", "true", "y", "yes", "on", "1":
		return true
	}

	return false
}
