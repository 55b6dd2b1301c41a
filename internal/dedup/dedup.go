package dedup

import (
	"sync"
	"time"
)

// pruneThreshold bounds map growth between opportunistic sweeps.
const pruneThreshold = 1024

// Deduplicator suppresses repeat delivery of logically identical events
// within a fixed window. Keys expire automatically; a key delivered again
// after its window has passed is treated as new.
type Deduplicator struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time // key to expiry deadline
	now    func() time.Time
}

// New creates a Deduplicator with the given expiry window.
func New(window time.Duration) *Deduplicator {
	return &Deduplicator{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// NewWithClock creates a Deduplicator with an injectable clock for tests.
func NewWithClock(window time.Duration, now func() time.Time) *Deduplicator {
	d := New(window)
	d.now = now
	return d
}

// Seen reports whether key was already accepted within the window.
// If not, the key is recorded and false is returned; the caller should
// forward the event exactly once.
func (d *Deduplicator) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()

	if deadline, ok := d.seen[key]; ok && now.Before(deadline) {
		return true
	}

	d.seen[key] = now.Add(d.window)

	if len(d.seen) > pruneThreshold {
		d.pruneLocked(now)
	}

	return false
}

// Len returns the number of tracked keys, counting expired entries that
// have not been swept yet.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Clear drops all tracked keys.
func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]time.Time)
}

func (d *Deduplicator) pruneLocked(now time.Time) {
	for key, deadline := range d.seen {
		if !now.Before(deadline) {
			delete(d.seen, key)
		}
	}
}
