package alerts

import (
	"sort"
	"strings"
	"time"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
)

// Filter selects the alerts a watch cares about. Both fields match
// case-insensitively as substrings; an empty field matches everything.
type Filter struct {
	Site     string `json:"site"`
	Category string `json:"category"`
}

// Match reports whether alert is at the site and of the category
func (f Filter) Match(alert gateway.Alert) bool {
	return containsFold(alert.Location, f.Site) && containsFold(alert.CrimeType, f.Category)
}

// Apply returns the matching alerts, newest first. Alerts with equal
// timestamps keep the backend's order.
func (f Filter) Apply(alerts []gateway.Alert) []gateway.Alert {
	filtered := make([]gateway.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if f.Match(alert) {
			filtered = append(filtered, alert)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	return filtered
}

func containsFold(s, substr string) bool {
	substr = strings.TrimSpace(substr)
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// feed is the alert state of one controller. Not safe for concurrent use.
type feed struct {
	// known holds every id seen this session; ids are never evicted
	known map[string]struct{}

	// items is the filtered result of the latest applied poll, newest first
	items []gateway.Alert

	lastPollAt time.Time
}

func newFeed() *feed {
	return &feed{
		known: make(map[string]struct{}),
		items: []gateway.Alert{},
	}
}

// apply replaces items with filtered (already newest first) and records
// unseen ids. It returns the newest unseen alert, if any, and the number of
// unseen ids.
func (f *feed) apply(filtered []gateway.Alert, at time.Time) (*gateway.Alert, int) {
	var newest *gateway.Alert
	fresh := 0

	for i := range filtered {
		id := filtered[i].ID
		if _, seen := f.known[id]; seen {
			continue
		}
		f.known[id] = struct{}{}
		fresh++
		if newest == nil {
			alert := filtered[i]
			newest = &alert
		}
	}

	f.items = filtered
	f.lastPollAt = at
	return newest, fresh
}

// remove drops id from items but keeps it known
func (f *feed) remove(id string) bool {
	for i, alert := range f.items {
		if alert.ID == id {
			items := make([]gateway.Alert, 0, len(f.items)-1)
			items = append(items, f.items[:i]...)
			f.items = append(items, f.items[i+1:]...)
			return true
		}
	}
	return false
}

func (f *feed) reset() {
	f.known = make(map[string]struct{})
	f.items = []gateway.Alert{}
	f.lastPollAt = time.Time{}
}

func (f *feed) snapshotItems() []gateway.Alert {
	items := make([]gateway.Alert, len(f.items))
	copy(items, f.items)
	return items
}
