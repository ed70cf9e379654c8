// Package flood throttles expensive bulk-import requests per identity.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the sliding window for throttling decisions.
	windowDuration = 60 * time.Second
	// cleanupInterval is how often idle entries are swept.
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long an identity may be idle before its entry
	// is removed.
	idleTimeout = 10 * time.Minute
)

// Floodgate limits how many bulk imports a single identity may start per
// minute. Each import fans out into many catalog searches, so the window
// is counted per request, not per resolved track.
type Floodgate struct {
	limitPerMinute int
	entries        map[string]*identityEntry
	mutex          sync.RWMutex
	stopCleanup    chan struct{}
}

type identityEntry struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// New creates a Floodgate with the given per-minute import limit. The
// window is fixed at 60 seconds.
func New(limitPerMinute int) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		entries:        make(map[string]*identityEntry),
		stopCleanup:    make(chan struct{}),
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine.
func (fg *Floodgate) Stop() {
	close(fg.stopCleanup)
}

// Allow reports whether the identity may start another import right now.
// A true result counts against the identity's window.
func (fg *Floodgate) Allow(identity string) bool {
	now := time.Now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[identity]
	if !exists {
		entry = &identityEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[identity] = entry
	}

	entry.lastSeen = now

	// Drop timestamps that fell out of the window.
	windowStart := now.Add(-windowDuration)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limitPerMinute {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

func (fg *Floodgate) cleanup() {
	fg.performCleanup()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	for identity, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(fg.entries, identity)
		}
	}
}

// Stats contains throttle statistics for monitoring.
type Stats struct {
	ActiveIdentities int `json:"active_identities"`
	LimitPerMinute   int `json:"limit_per_minute"`
	WindowSeconds    int `json:"window_seconds"`
}

// GetStats returns statistics about the floodgate for monitoring.
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.RLock()
	defer fg.mutex.RUnlock()

	return Stats{
		ActiveIdentities: len(fg.entries),
		LimitPerMinute:   fg.limitPerMinute,
		WindowSeconds:    int(windowDuration.Seconds()),
	}
}
