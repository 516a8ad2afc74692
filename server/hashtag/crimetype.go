package hashtag

import "strings"

// crimeTypeTags turns a crime type into hashtags.
//
// The full type always becomes one CamelCase tag. Multi-word types also get a
// tag per word, skipping "and" and "of":
//   - "Fighting" -> #Fighting
//   - "Armed Robbery" -> #ArmedRobbery, #Armed, #Robbery
//   - "Breaking and Entering" -> #BreakingAndEntering, #Breaking, #Entering
//
// An empty type yields #Unknown.
func crimeTypeTags(crimeType string) []string {
	crimeType = strings.TrimSpace(crimeType)
	if crimeType == "" {
		return []string{"#Unknown"}
	}

	words := strings.FieldsFunc(crimeType, isSeparator)
	tags := []string{"#" + camelCase(crimeType)}
	if len(words) < 2 {
		return tags
	}

	for _, word := range words {
		switch strings.ToLower(word) {
		case "and", "of":
			continue
		}
		tags = append(tags, "#"+capitalizeFirst(word))
	}

	return tags
}

// capitalizeFirst capitalizes the first letter of a word and lowercases the rest.
func capitalizeFirst(word string) string {
	if len(word) == 0 {
		return ""
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
