// Package fusion correlates the station's three independent sensor signals
// (barcode trigger, weight stream, volume head) into one consistent record
// per physical package. It owns the per-trigger workflow: admission,
// duplicate suppression, the fusion delay, photo capture, stable-weight
// lookup, gated volume measurement, and the final completeness decision.
package fusion

import (
	"time"

	"github.com/banshee-data/parcel.station/internal/units"
)

// Status is the lifecycle state of a package record.
type Status string

const (
	StatusCreated   Status = "created"
	StatusMeasuring Status = "measuring"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
)

// Completeness reasons, in operator triage priority order: a barcode failure
// is actionable immediately, weight and volume failures may be transient.
const (
	ReasonMissingBarcode = "Missing Barcode"
	ReasonMissingWeight  = "Missing Weight"
	ReasonMissingVolume  = "Missing Volume"
)

// PalletProfile is the operator-selected pallet the package sits on. Its
// tare weight is subtracted from the gross scale reading. The all-zero
// profile is "no pallet" and acts as identity.
type PalletProfile struct {
	Name         string  `json:"name"`
	TareWeightKg float64 `json:"tare_weight_kg"`
	LengthCm     float64 `json:"length_cm"`
	WidthCm      float64 `json:"width_cm"`
	HeightCm     float64 `json:"height_cm"`
}

// NoPallet returns the identity profile.
func NoPallet() PalletProfile {
	return PalletProfile{Name: "none"}
}

// PackageRecord is the unit of work and final output of the pipeline. It is
// created at trigger acceptance, mutated in place by the pipeline stages
// (single writer: the orchestrator goroutine owning the trigger), and handed
// read-only to the output collaborators once terminal. Never reused for a
// second barcode.
type PackageRecord struct {
	ID           string        `json:"id"`
	Barcode      string        `json:"barcode"`
	CreateTime   time.Time     `json:"create_time"`
	WeightKg     float64       `json:"weight_kg"`
	LengthCm     float64       `json:"length_cm"`
	WidthCm      float64       `json:"width_cm"`
	HeightCm     float64       `json:"height_cm"`
	VolumeCm3    float64       `json:"volume_cm3"`
	Pallet       PalletProfile `json:"pallet"`
	ImagePath    string        `json:"image_path,omitempty"`
	Status       Status        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Complete reports whether all three signals were fused: barcode present,
// positive weight, and all dimensions positive. When incomplete, reason
// names the first missing field in priority order barcode > weight > volume.
func (r *PackageRecord) Complete() (complete bool, reason string) {
	if r.Barcode == "" {
		return false, ReasonMissingBarcode
	}
	if r.WeightKg <= 0 {
		return false, ReasonMissingWeight
	}
	if r.LengthCm <= 0 || r.WidthCm <= 0 || r.HeightCm <= 0 {
		return false, ReasonMissingVolume
	}
	return true, ""
}

// RecomputeVolume refreshes the derived volume from the current dimensions.
func (r *PackageRecord) RecomputeVolume() {
	r.VolumeCm3 = units.VolumeCm3(r.LengthCm, r.WidthCm, r.HeightCm)
}
