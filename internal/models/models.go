package models

import (
	"strings"
	"time"
)

// Now returns the current time in the form every entity stores it: UTC,
// truncated to the millisecond so it survives a round trip through any backend.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func requireText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &ValidationError{Field: field, Reason: "cannot be empty"}
	}
	return trimmed, nil
}

// NormalizeTags lowercases and trims tags, dropping empties and duplicates.
// The order of first occurrence is kept.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		clean := strings.ToLower(strings.TrimSpace(tag))
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		result = append(result, clean)
	}
	return result
}
