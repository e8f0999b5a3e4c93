package fusion

import (
	"strings"
	"sync"
	"time"
)

// DuplicateFilter rejects a trigger that is a near-duplicate of the
// immediately preceding one. Scanners re-reading the same physical label
// sometimes emit truncated or extended reads, so containment counts as a
// duplicate, not just equality. State is a single (barcode, time) pair, not
// a history.
type DuplicateFilter struct {
	mu          sync.Mutex
	window      time.Duration
	lastBarcode string
	lastTime    time.Time
}

// NewDuplicateFilter creates a filter with the given suppression window.
func NewDuplicateFilter(window time.Duration) *DuplicateFilter {
	return &DuplicateFilter{window: window}
}

// ShouldSuppress reports whether a trigger for barcode arriving at now is a
// near-duplicate of the previously recorded trigger: within the window, and
// one read contains the other with the contained read longer than 5
// characters. Exact equality is the trivial containment case.
func (f *DuplicateFilter) ShouldSuppress(barcode string, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lastBarcode == "" {
		return false
	}
	elapsed := now.Sub(f.lastTime)
	if elapsed < 0 || elapsed >= f.window {
		return false
	}

	if strings.Contains(f.lastBarcode, barcode) && len(barcode) > 5 {
		return true
	}
	if strings.Contains(barcode, f.lastBarcode) && len(f.lastBarcode) > 5 {
		return true
	}
	return false
}

// Record stores the trigger as the new comparison point. Called only when
// processing actually proceeds.
func (f *DuplicateFilter) Record(barcode string, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBarcode = barcode
	f.lastTime = now
}
