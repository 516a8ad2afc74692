package hashtag

import (
	"strings"
	"unicode"

	"github.com/biter777/countries"
)

// locationTags extracts hashtags from a camera location.
//
// Camera locations are short place names, optionally followed by a city and
// a country: "UDSM New Library", "Main Gate, Nairobi, Kenya".
//
// Heuristic:
//   - split on commas, drop empty parts and parts with digits (room and
//     floor numbers, street numbers)
//   - the first remaining part is the place and always becomes a tag
//   - the last part becomes a country tag when it names a country (by name
//     or ISO code); the full country name is used ("KE" -> #Kenya)
//   - a middle part (the city) becomes a tag as-is
//
// Only the place, the part before the country and the country are kept.
func locationTags(location string) []string {
	var parts []string
	for _, part := range strings.Split(location, ",") {
		part = strings.TrimSpace(part)
		if part == "" || containsNumber(part) {
			continue
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return nil
	}

	tags := []string{"#" + camelCase(parts[0])}
	if len(parts) == 1 {
		return tags
	}

	last := parts[len(parts)-1]
	country := detectCountry(last)

	if len(parts) > 2 {
		tags = append(tags, "#"+camelCase(parts[len(parts)-2]))
	}

	if country != countries.Unknown {
		tags = append(tags, "#"+camelCase(country.String()))
	} else {
		tags = append(tags, "#"+camelCase(last))
	}

	return tags
}

func containsNumber(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// detectCountry identifies a country by full name or ISO alpha-2/alpha-3 code.
// Two-letter words that are not codes are common in place names, so only
// upper-case two-letter input is treated as a code.
func detectCountry(s string) countries.CountryCode {
	if s == "" {
		return countries.Unknown
	}
	if len(s) == 2 && s != strings.ToUpper(s) {
		return countries.Unknown
	}

	return countries.ByName(s)
}
