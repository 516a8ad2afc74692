package hashtag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		alert    gateway.Alert
		expected string
	}{
		{
			name:     "campus camera",
			alert:    gateway.Alert{CrimeType: "Fighting", Location: "UDSM New Library", Confidence: 0.93},
			expected: "🏷️ #Fighting, #UDSMNewLibrary, #HighConfidence",
		},
		{
			name:     "multi word crime with city and country",
			alert:    gateway.Alert{CrimeType: "Armed Robbery", Location: "Main Gate, Nairobi, Kenya", Confidence: 0.75},
			expected: "🏷️ #ArmedRobbery, #Armed, #Robbery, #MainGate, #Nairobi, #Kenya, #MediumConfidence",
		},
		{
			name:     "country code",
			alert:    gateway.Alert{CrimeType: "Theft", Location: "Kyiv, UA", Confidence: 0.4},
			expected: "🏷️ #Theft, #Kyiv, #Ukraine, #LowConfidence",
		},
		{
			name:     "numbered parts dropped",
			alert:    gateway.Alert{CrimeType: "vandalism", Location: "Hall 7, Room 12, Mabibo Hostel", Confidence: 0.9},
			expected: "🏷️ #Vandalism, #MabiboHostel, #HighConfidence",
		},
		{
			name:     "no crime type or location",
			alert:    gateway.Alert{Confidence: 0},
			expected: "🏷️ #Unknown, #LowConfidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.alert))
		})
	}
}

func TestCrimeTypeTags(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{input: "Fighting", expected: []string{"#Fighting"}},
		{input: "Breaking and Entering", expected: []string{"#BreakingAndEntering", "#Breaking", "#Entering"}},
		{input: "Possession of Weapon", expected: []string{"#PossessionOfWeapon", "#Possession", "#Weapon"}},
		{input: "hit-and-run", expected: []string{"#HitAndRun", "#Hit", "#Run"}},
		{input: "  ", expected: []string{"#Unknown"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, crimeTypeTags(tt.input))
		})
	}
}

func TestLocationTags(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{input: "", expected: nil},
		{input: "Cafeteria", expected: []string{"#Cafeteria"}},
		{input: "Library, Ukraine", expected: []string{"#Library", "#Ukraine"}},
		{input: "Library, Engineering Block", expected: []string{"#Library", "#EngineeringBlock"}},
		{input: "Gate, North, Campus, Kenya", expected: []string{"#Gate", "#Campus", "#Kenya"}},
		{input: "12 Main St", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, locationTags(tt.input))
		})
	}
}

func TestDeduplicateTags(t *testing.T) {
	assert.Equal(t, []string{"#Theft", "#Library"}, deduplicateTags([]string{"#Theft", "#theft", "", "#", "#Library"}))
}

func TestCamelCase(t *testing.T) {
	assert.Equal(t, "UDSMNewLibrary", camelCase("UDSM New Library"))
	assert.Equal(t, "StudentsCentre", camelCase("Student's Centre"))
	assert.Equal(t, "", camelCase("  "))
}
