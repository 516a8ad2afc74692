package watch

import (
	"time"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/alerts"
)

// Config represents one configured camera watch.
// Each watch is uniquely identified by its ID (UUID v4).
type Config struct {
	// ID is the unique stable identifier for this watch (UUID v4, immutable)
	ID string `json:"id"`

	// Name is the display name for this watch (mutable, must be unique)
	Name string `json:"name"`

	// Enabled indicates whether this watch should be actively polling
	Enabled bool `json:"enabled"`

	// Site matches the alert location, case-insensitively; empty matches every site
	Site string `json:"site"`

	// Category matches the alert crime type, case-insensitively; empty matches every type
	Category string `json:"category"`

	// ChannelID is the Mattermost channel ID to post alerts to
	ChannelID string `json:"channelId"`

	// PollIntervalSeconds is how often to poll (minimum: MinPollIntervalSeconds)
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
}

// ControllerConfig converts the watch into the alert controller's configuration
func (c Config) ControllerConfig() alerts.Config {
	seconds := c.PollIntervalSeconds
	if seconds <= 0 {
		seconds = DefaultPollIntervalSeconds
	}

	return alerts.Config{
		WatchID:  c.ID,
		Name:     c.Name,
		Filter:   alerts.Filter{Site: c.Site, Category: c.Category},
		Interval: time.Duration(seconds) * time.Second,
	}
}

// Status represents the current operational status of a watch.
type Status struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ChannelID string `json:"channelId"`

	// Enabled indicates whether the watch is enabled in configuration
	Enabled bool `json:"enabled"`

	// LastPollTime is the timestamp of the last poll attempt
	LastPollTime time.Time `json:"lastPollTime"`

	// LastSuccessTime is the timestamp of the last successful poll
	LastSuccessTime time.Time `json:"lastSuccessTime"`

	// ConsecutiveFailures is the count of consecutive polling failures
	ConsecutiveFailures int `json:"consecutiveFailures"`

	// LastError contains the error message from the most recent failure (empty if no error)
	LastError string `json:"lastError"`

	// Alerts is the number of alerts currently in the feed
	Alerts int `json:"alerts"`
}
