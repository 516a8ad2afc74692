package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/hashtag"
)

// Confidence colors
const (
	ColorHigh    = "#FF0000" // Red 🔴
	ColorMedium  = "#FF9900" // Orange 🟠
	ColorLow     = "#FFFF00" // Yellow 🟡
	ColorWarning = "#FF9900"
)

// FormatAlert converts a camera alert into a Mattermost SlackAttachment with
// the detection frame embedded and the watch name in the footer.
func FormatAlert(alert gateway.Alert, watchName string) *model.SlackAttachment {
	attachment := &model.SlackAttachment{
		Fallback: fmt.Sprintf("%s detected at %s", crimeType(alert), location(alert)),
		Title:    fmt.Sprintf("🚨 %s Detected!", crimeType(alert)),
		Text:     fmt.Sprintf("%s at %s", crimeType(alert), location(alert)),
		Color:    confidenceColor(alert.Confidence),
		ImageURL: alert.ImageURL,
	}

	fields := []*model.SlackAttachmentField{
		{
			Title: "Detected At",
			Value: formatTime(alert.Timestamp),
			Short: true,
		},
		{
			Title: "Confidence",
			Value: formatPercent(alert.Confidence),
			Short: true,
		},
	}

	if !alert.Coordinates.IsZero() {
		fields = append(fields, &model.SlackAttachmentField{
			Title: "Coordinates",
			Value: formatCoordinates(alert.Coordinates),
			Short: true,
		})
	}

	fields = append(fields, &model.SlackAttachmentField{
		Title: "Alert ID",
		Value: fmt.Sprintf("`%s`", alert.ID),
		Short: true,
	})

	attachment.Fields = fields

	footer := []string{watchName}
	if tags := hashtag.Generate(alert); tags != "" {
		footer = append(footer, tags)
	}
	attachment.Footer = strings.Join(footer, " | ")

	return attachment
}

// FormatSpamWarning renders the warning shown to a sender whose message was classified as spam.
func FormatSpamWarning(analysis gateway.SpamAnalysis) *model.SlackAttachment {
	return &model.SlackAttachment{
		Fallback: "Spam Warning: " + analysis.Recommendation,
		Title:    "⚠️ Spam Warning",
		Text:     analysis.Recommendation,
		Color:    ColorWarning,
		Fields: []*model.SlackAttachmentField{
			{
				Title: "Classification",
				Value: analysis.Classification,
				Short: true,
			},
			{
				Title: "Spam Probability",
				Value: formatPercent(analysis.SpamProbability),
				Short: true,
			},
		},
	}
}

// FormatMessage renders a messaging panel message with its spam verdict.
func FormatMessage(sender, content string, analysis gateway.SpamAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📣 **@%s**: %s", sender, strings.TrimSpace(content))

	switch {
	case analysis.IsSpam:
		fmt.Fprintf(&b, "\n`Spam %s`", formatPercent(analysis.SpamProbability))
	case strings.EqualFold(analysis.Classification, "Unknown") || analysis.Classification == "":
		b.WriteString("\n`Not checked`")
	default:
		fmt.Fprintf(&b, "\n`%s`", analysis.Classification)
	}

	return b.String()
}

func confidenceColor(confidence float64) string {
	switch {
	case confidence >= hashtag.HighConfidence:
		return ColorHigh
	case confidence >= hashtag.MediumConfidence:
		return ColorMedium
	default:
		return ColorLow
	}
}

func crimeType(alert gateway.Alert) string {
	if alert.CrimeType == "" {
		return "Unknown activity"
	}
	return alert.CrimeType
}

func location(alert gateway.Alert) string {
	if alert.Location == "" {
		return "unknown location"
	}
	return alert.Location
}

// formatTime formats a time.Time to a readable string
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

// formatPercent renders a 0..1 probability as a whole percentage
func formatPercent(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}

func formatCoordinates(c gateway.Coordinates) string {
	return fmt.Sprintf("[%.4f, %.4f](https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f)", c.Lat, c.Lng, c.Lat, c.Lng)
}
