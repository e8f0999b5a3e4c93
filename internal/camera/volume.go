package camera

import "context"

// VolumeResult is the volume head's answer to a single-shot measurement.
// Dimensions are reported in millimetres, the device's native unit.
type VolumeResult struct {
	Success      bool
	LengthMm     float64
	WidthMm      float64
	HeightMm     float64
	ErrorMessage string
}

// VolumeDevice is the single-shot volume-measurement head. TriggerMeasure is
// synchronous and accepts exactly one in-flight call; the fusion pipeline
// serialises access through its measurement gate. A returned error means the
// call itself failed (transport fault, SDK crash); a result with
// Success=false means the device answered and said no.
type VolumeDevice interface {
	TriggerMeasure(ctx context.Context) (VolumeResult, error)
}

// StaticVolumeDevice is a VolumeDevice returning a fixed result, used in dev
// mode and tests.
type StaticVolumeDevice struct {
	Result VolumeResult
	Err    error
}

// TriggerMeasure returns the configured result.
func (d *StaticVolumeDevice) TriggerMeasure(ctx context.Context) (VolumeResult, error) {
	if err := ctx.Err(); err != nil {
		return VolumeResult{}, err
	}
	return d.Result, d.Err
}
