package hashtag

import (
	"strings"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
)

// Confidence bands used for the confidence tag
const (
	HighConfidence   = 0.9
	MediumConfidence = 0.7
)

// Generate creates the hashtag line for a camera alert.
//
// Order of hashtags:
// 1. Crime type (#Fighting, #ArmedRobbery and its words)
// 2. Location (place, then country when one is recognized)
// 3. Confidence band (#HighConfidence, #MediumConfidence, #LowConfidence)
//
// Returns formatted string (e.g., "🏷️ #Fighting, #UDSMNewLibrary, #HighConfidence")
func Generate(alert gateway.Alert) string {
	var allTags []string

	allTags = append(allTags, crimeTypeTags(alert.CrimeType)...)
	allTags = append(allTags, locationTags(alert.Location)...)
	allTags = append(allTags, confidenceTag(alert.Confidence))

	return formatHashtagText(deduplicateTags(allTags))
}

func confidenceTag(confidence float64) string {
	switch {
	case confidence >= HighConfidence:
		return "#HighConfidence"
	case confidence >= MediumConfidence:
		return "#MediumConfidence"
	default:
		return "#LowConfidence"
	}
}

// deduplicateTags removes duplicate tags (case-insensitive) while preserving order.
func deduplicateTags(tags []string) []string {
	seen := make(map[string]bool)
	var uniqueTags []string

	for _, tag := range tags {
		if tag == "" || tag == "#" {
			continue
		}
		tagLower := strings.ToLower(tag)
		if !seen[tagLower] {
			uniqueTags = append(uniqueTags, tag)
			seen[tagLower] = true
		}
	}

	return uniqueTags
}

func formatHashtagText(tags []string) string {
	if len(tags) == 0 {
		return ""
	}

	return "🏷️ " + strings.Join(tags, ", ")
}

// camelCase joins the words of text, capitalizing the first letter of each.
// Characters that cannot appear in a hashtag are dropped.
func camelCase(text string) string {
	var result strings.Builder

	text = strings.ReplaceAll(text, "'", "")
	for _, word := range strings.FieldsFunc(text, isSeparator) {
		result.WriteString(strings.ToUpper(word[:1]))
		result.WriteString(word[1:])
	}

	return result.String()
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '-', '_', '/', '.', '(', ')', '&':
		return true
	}
	return false
}
