package scale

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Detector consumes raw weight samples and emits a stable reading into its
// History whenever a full sliding window of samples varies by less than the
// configured threshold.
//
// The window keeps sliding after a stable detection, so a long plateau emits
// many closely spaced entries. That is intentional: the lookup side only
// ever wants the most relevant one.
type Detector struct {
	mu          sync.Mutex
	windowSize  int
	thresholdKg float64
	buffer      []float64
	history     *History
}

// NewDetector creates a Detector emitting into history. windowSize is the
// number of consecutive raw samples considered (minimum 2); thresholdKg is
// the maximum max-min spread for the window to count as stable.
func NewDetector(windowSize int, thresholdKg float64, history *History) *Detector {
	if windowSize < 2 {
		windowSize = 2
	}
	return &Detector{
		windowSize:  windowSize,
		thresholdKg: thresholdKg,
		buffer:      make([]float64, 0, windowSize),
		history:     history,
	}
}

// Ingest feeds one raw sample. Zero and negative samples are sensor glitches
// and never enter the window. Returns the stable entry if this sample
// completed a stable window, for callers that want to observe emissions.
func (d *Detector) Ingest(rawKg float64, timestamp time.Time) (StableWeightEntry, bool) {
	if rawKg <= 0 {
		return StableWeightEntry{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.buffer) == d.windowSize {
		copy(d.buffer, d.buffer[1:])
		d.buffer = d.buffer[:len(d.buffer)-1]
	}
	d.buffer = append(d.buffer, rawKg)

	if len(d.buffer) < d.windowSize {
		return StableWeightEntry{}, false
	}

	spread := floats.Max(d.buffer) - floats.Min(d.buffer)
	if spread >= d.thresholdKg {
		return StableWeightEntry{}, false
	}

	entry := StableWeightEntry{
		WeightKg:  stat.Mean(d.buffer, nil),
		Timestamp: timestamp,
	}
	d.history.Append(entry)
	return entry, true
}

// BufferLen returns the current raw window fill.
func (d *Detector) BufferLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffer)
}

// Reset clears the raw window and the stable history. Called when the scale
// disconnects; readings taken before a disconnect must not describe a
// package scanned after it.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.buffer = d.buffer[:0]
	d.mu.Unlock()
	d.history.Clear()
}
