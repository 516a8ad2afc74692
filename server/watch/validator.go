package watch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Validate checks a single watch. Site and category may be empty; they then
// match everything.
func (c Config) Validate() error {
	required := []struct {
		field string
		empty bool
	}{
		{"id", c.ID == ""},
		{"name", strings.TrimSpace(c.Name) == ""},
		{"channelId", c.ChannelID == ""},
		{"pollIntervalSeconds", c.PollIntervalSeconds == 0},
	}
	for _, r := range required {
		if r.empty {
			return fmt.Errorf("missing required field '%s'", r.field)
		}
	}

	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("invalid UUID format for id: %w", err)
	}
	if id.Version() != 4 {
		return fmt.Errorf("id must be a UUID v4 (got version %d)", id.Version())
	}

	if c.PollIntervalSeconds < MinPollIntervalSeconds {
		return fmt.Errorf("poll interval must be at least %d seconds (got %d)", MinPollIntervalSeconds, c.PollIntervalSeconds)
	}

	return nil
}

// ValidateWatches validates every watch and rejects duplicate IDs or names.
func ValidateWatches(configs []Config) error {
	ids := make(map[string]struct{}, len(configs))
	names := make(map[string]struct{}, len(configs))

	for i, c := range configs {
		if err := c.Validate(); err != nil {
			if c.Name == "" {
				return fmt.Errorf("watch configuration at position %d: %w", i+1, err)
			}
			return fmt.Errorf("watch '%s': %w", c.Name, err)
		}

		if _, dup := ids[c.ID]; dup {
			return fmt.Errorf("duplicate watch ID found: %s", c.ID)
		}
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("duplicate watch name found: '%s'", c.Name)
		}
		ids[c.ID] = struct{}{}
		names[c.Name] = struct{}{}
	}

	return nil
}

// DiffWatchConfigs returns the sorted IDs of watches that appear only in
// newConfigs, that changed, and that appear only in oldConfigs.
func DiffWatchConfigs(oldConfigs, newConfigs []Config) (toAdd, toUpdate, toRemove []string) {
	previous := make(map[string]Config, len(oldConfigs))
	for _, c := range oldConfigs {
		previous[c.ID] = c
	}

	for _, c := range newConfigs {
		old, ok := previous[c.ID]
		delete(previous, c.ID)
		switch {
		case !ok:
			toAdd = append(toAdd, c.ID)
		case old != c:
			toUpdate = append(toUpdate, c.ID)
		}
	}

	for id := range previous {
		toRemove = append(toRemove, id)
	}

	sort.Strings(toAdd)
	sort.Strings(toUpdate)
	sort.Strings(toRemove)
	return toAdd, toUpdate, toRemove
}

// FindByID finds a watch configuration by ID.
func FindByID(configs []Config, id string) (Config, bool) {
	for _, c := range configs {
		if c.ID == id {
			return c, true
		}
	}
	return Config{}, false
}
