package fusion

import (
	"context"
	"time"

	"github.com/banshee-data/parcel.station/internal/scale"
	"github.com/banshee-data/parcel.station/internal/timeutil"
)

// WeightHistory is the slice of the scale history the lookup needs.
type WeightHistory interface {
	// LatestAtOrBefore returns the latest entry with
	// 0 <= (t - entry.Timestamp) < window.
	LatestAtOrBefore(t time.Time, window time.Duration) (scale.StableWeightEntry, bool)
	// EarliestAfter returns the earliest entry strictly after t.
	EarliestAfter(t time.Time) (scale.StableWeightEntry, bool)
}

// WeightLookup resolves the gross stable weight for a trigger timestamp.
//
// Phase 1 searches backward: the scale usually settled before the barcode
// was read, so the latest stable reading within QueryWindow before the scan
// wins. Phase 2 waits forward: if nothing preceded the scan, poll for the
// earliest reading after it — first, not latest, so a later, possibly
// different package cannot be picked up — bounded by MaxWait.
type WeightLookup struct {
	History      WeightHistory
	Clock        timeutil.Clock
	QueryWindow  time.Duration
	MaxWait      time.Duration
	PollInterval time.Duration
}

// Find returns the gross stable weight for a package scanned at scanTime,
// or false if no reading could be resolved within the budget. Absence is not
// fatal: the caller degrades the record to an incomplete one.
func (l *WeightLookup) Find(ctx context.Context, scanTime time.Time) (float64, bool) {
	if e, ok := l.History.LatestAtOrBefore(scanTime, l.QueryWindow); ok {
		return e.WeightKg, true
	}

	ticker := l.Clock.NewTicker(l.PollInterval)
	defer ticker.Stop()
	deadline := l.Clock.NewTimer(l.MaxWait)
	defer deadline.Stop()

	for {
		if e, ok := l.History.EarliestAfter(scanTime); ok {
			return e.WeightKg, true
		}
		select {
		case <-ticker.C():
		case <-deadline.C():
			// One last look: an entry may have landed since the last poll.
			if e, ok := l.History.EarliestAfter(scanTime); ok {
				return e.WeightKg, true
			}
			return 0, false
		case <-ctx.Done():
			return 0, false
		}
	}
}
