package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
)

const (
	// DeduplicationCacheTTL is how long a posted alert ID is remembered
	DeduplicationCacheTTL = 24 * time.Hour

	// DeduplicationCleanupInterval is how often to clean up expired entries
	DeduplicationCleanupInterval = 10 * time.Minute
)

// Deduplicator remembers which alerts were posted to which channel, so two
// watches covering the same camera never post the same alert twice into one channel.
type Deduplicator struct {
	logger      gateway.Logger
	ttl         time.Duration
	now         func() time.Time
	posted      map[string]time.Time
	mu          sync.Mutex
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
}

// NewDeduplicator creates a deduplicator and starts its cleanup loop
func NewDeduplicator(logger gateway.Logger) *Deduplicator {
	d := &Deduplicator{
		logger:      logger,
		ttl:         DeduplicationCacheTTL,
		now:         time.Now,
		posted:      make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go d.cleanupLoop()

	return d
}

// RecordAlert atomically checks whether alertID was already posted to
// channelID and records it if not. Returns true if the caller should post.
func (d *Deduplicator) RecordAlert(channelID, alertID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := fmt.Sprintf("%s:%s", channelID, alertID)

	if seen, exists := d.posted[key]; exists && d.now().Sub(seen) <= d.ttl {
		return false
	}

	d.posted[key] = d.now()
	return true
}

// Len returns the number of remembered alerts
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.posted)
}

func (d *Deduplicator) cleanupLoop() {
	ticker := time.NewTicker(DeduplicationCleanupInterval)
	defer ticker.Stop()
	defer close(d.cleanupDone)

	for {
		select {
		case <-ticker.C:
			d.cleanup()
		case <-d.stopCleanup:
			return
		}
	}
}

// cleanup drops entries older than the TTL
func (d *Deduplicator) cleanup() {
	d.mu.Lock()
	now := d.now()
	expired := 0
	for key, seen := range d.posted {
		if now.Sub(seen) > d.ttl {
			delete(d.posted, key)
			expired++
		}
	}
	remaining := len(d.posted)
	d.mu.Unlock()

	if expired > 0 && d.logger != nil {
		d.logger.Debug("Cleaned up expired deduplication entries",
			"expired", expired,
			"remaining", remaining)
	}
}

// Stop stops the cleanup goroutine and waits for it to finish. Safe to call more than once.
func (d *Deduplicator) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCleanup)
	})
	<-d.cleanupDone
}
