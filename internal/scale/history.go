// Package scale turns the raw line stream from the weight-scale serial head
// into stable weight readings the fusion pipeline can query by timestamp.
package scale

import (
	"sync"
	"time"
)

// DefaultHistoryCapacity bounds the stable reading history. At typical scale
// sample rates this covers several minutes of plateau readings.
const DefaultHistoryCapacity = 100

// StableWeightEntry is a single accepted stable reading. Immutable once
// created.
type StableWeightEntry struct {
	WeightKg  float64
	Timestamp time.Time
}

// History is a bounded, timestamp-ascending FIFO of stable weight readings.
// The ingest path appends while the fusion lookup path reads concurrently;
// all access goes through one mutex held only for the duration of the
// individual operation.
type History struct {
	mu       sync.Mutex
	capacity int
	entries  []StableWeightEntry
}

// NewHistory creates a History bounded to the given capacity. A capacity of
// zero or less falls back to DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		capacity: capacity,
		entries:  make([]StableWeightEntry, 0, capacity),
	}
}

// Append adds a stable reading, evicting the oldest entry when full.
func (h *History) Append(e StableWeightEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.entries = append(h.entries, e)
}

// Len returns the number of buffered readings.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops all buffered readings. Called when the scale disconnects so
// stale readings cannot leak into a future package.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
}

// LatestAtOrBefore returns the reading with the latest timestamp satisfying
// 0 <= (t - entry.Timestamp) < window. This is the backward search of the
// weight lookup: the scale had already settled before the barcode was read.
func (h *History) LatestAtOrBefore(t time.Time, window time.Duration) (StableWeightEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Entries are timestamp ascending, so scan from the newest end.
	for i := len(h.entries) - 1; i >= 0; i-- {
		age := t.Sub(h.entries[i].Timestamp)
		if age < 0 {
			continue
		}
		if age < window {
			return h.entries[i], true
		}
		// Older than the window; everything before it is older still.
		return StableWeightEntry{}, false
	}
	return StableWeightEntry{}, false
}

// EarliestAfter returns the reading with the earliest timestamp strictly
// after t. This is the forward wait of the weight lookup: the first reading
// that settles after the trigger belongs to the package on the scale now,
// not a later one.
func (h *History) EarliestAfter(t time.Time) (StableWeightEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.entries {
		if e.Timestamp.After(t) {
			return e, true
		}
	}
	return StableWeightEntry{}, false
}
