package fusion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/parcel.station/internal/camera"
	"github.com/banshee-data/parcel.station/internal/monitoring"
	"github.com/banshee-data/parcel.station/internal/timeutil"
	"github.com/banshee-data/parcel.station/internal/units"
)

// Persister stores a finished record. Append-only.
type Persister interface {
	SaveRecord(ctx context.Context, r *PackageRecord) error
}

// Uploader forwards a finished record to the external reporting service.
type Uploader interface {
	UploadRecord(ctx context.Context, r *PackageRecord) error
}

// Display refreshes the operator view with a finished record.
type Display interface {
	RefreshRecord(r *PackageRecord)
}

// Sounder plays the error cue. Fired once per failed trigger.
type Sounder interface {
	PlayError()
}

// FrameSaver persists a captured frame and returns its path.
type FrameSaver interface {
	Save(frame camera.Frame) (string, error)
}

// session is the ephemeral per-trigger context. One is created fresh per
// accepted trigger and passed through every step; no step touches another
// trigger's session.
type session struct {
	ctx      context.Context
	barcode  string
	scanTime time.Time
	record   *PackageRecord
}

// Orchestrator runs the per-trigger fusion workflow. Collaborator fields
// other than Clock, Filter, Admission, Gate, Lookup and Volume may be nil;
// nil collaborators are skipped.
type Orchestrator struct {
	Clock timeutil.Clock

	FusionDelay  time.Duration
	PhotoTimeout time.Duration
	GateTimeout  time.Duration

	Filter    *DuplicateFilter
	Admission *Admission
	Gate      *Gate
	Lookup    *WeightLookup
	Pallets   *PalletRegistry

	Frames     camera.FrameSource
	FrameSaver FrameSaver
	Volume     camera.VolumeDevice

	Persister Persister
	Uploader  Uploader
	Display   Display
	Sounder   Sounder
}

// ProcessTrigger is the top-level entry point, invoked once per barcode
// event. It returns the finished record, or nil when the trigger was dropped
// (pipeline busy) or suppressed as a duplicate. No panic escapes and the
// admission slot is always released.
func (o *Orchestrator) ProcessTrigger(ctx context.Context, barcode string, scanTime time.Time) (rec *PackageRecord) {
	if !o.Admission.TryAcquire() {
		monitoring.Logf("fusion: unit busy, dropping trigger %q", barcode)
		return nil
	}
	defer o.Admission.Release()
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("fusion: panic processing trigger %q: %v", barcode, r)
			rec = nil
		}
	}()

	// Let late-arriving sensor data catch up with the physical transit
	// between the scan point and the measurement point.
	o.Clock.Sleep(o.FusionDelay)

	if o.Filter.ShouldSuppress(barcode, scanTime) {
		monitoring.Logf("fusion: suppressing duplicate trigger %q", barcode)
		return nil
	}
	o.Filter.Record(barcode, scanTime)

	sess := &session{
		ctx:      ctx,
		barcode:  barcode,
		scanTime: scanTime,
		record: &PackageRecord{
			ID:         uuid.New().String(),
			Barcode:    barcode,
			CreateTime: scanTime,
			Pallet:     o.Pallets.Selected(),
			Status:     StatusCreated,
		},
	}

	o.capturePhoto(sess)
	o.resolveWeight(sess)
	o.measureVolume(sess)
	o.finalize(sess)
	o.publish(sess)

	return sess.record
}

// capturePhoto grabs exactly one frame, bounded by PhotoTimeout. Any failure
// is non-fatal: the record simply has no image.
func (o *Orchestrator) capturePhoto(sess *session) {
	if o.Frames == nil {
		return
	}
	frame, err := camera.CaptureOne(sess.ctx, o.Frames, o.Clock, o.PhotoTimeout)
	if err != nil {
		monitoring.Logf("fusion: no photo for %q: %v", sess.barcode, err)
		return
	}
	if o.FrameSaver == nil {
		return
	}
	path, err := o.FrameSaver.Save(frame)
	if err != nil {
		monitoring.Logf("fusion: failed to store photo for %q: %v", sess.barcode, err)
		return
	}
	sess.record.ImagePath = path
}

// resolveWeight runs the two-phase stable-weight lookup and applies the
// pallet tare. Absence is non-fatal.
func (o *Orchestrator) resolveWeight(sess *session) {
	gross, ok := o.Lookup.Find(sess.ctx, sess.scanTime)
	if !ok {
		monitoring.Logf("fusion: no stable weight for %q", sess.barcode)
		return
	}
	sess.record.WeightKg = units.NetWeightKg(gross, sess.record.Pallet.TareWeightKg)
}

// measureVolume runs the gated single-shot volume measurement. The gate is
// released however the call exits; a panic in the device call marks the
// record Error rather than Failed.
func (o *Orchestrator) measureVolume(sess *session) {
	if !o.Gate.TryAcquire(sess.ctx, o.GateTimeout) {
		monitoring.Logf("fusion: measurement gate busy, skipping volume for %q", sess.barcode)
		return
	}
	defer o.Gate.Release()

	record := sess.record
	record.Status = StatusMeasuring

	result, err := o.triggerMeasure(sess.ctx)
	switch {
	case err != nil:
		record.Status = StatusError
		record.ErrorMessage = err.Error()
		record.LengthCm, record.WidthCm, record.HeightCm = 0, 0, 0
	case !result.Success:
		record.Status = StatusFailed
		record.ErrorMessage = result.ErrorMessage
		record.LengthCm, record.WidthCm, record.HeightCm = 0, 0, 0
	default:
		record.ErrorMessage = ""
		record.LengthCm = units.MillimetersToCentimeters(result.LengthMm)
		record.WidthCm = units.MillimetersToCentimeters(result.WidthMm)
		record.HeightCm = units.MillimetersToCentimeters(result.HeightMm)
	}
}

// triggerMeasure invokes the device behind a recover boundary so an
// unexpected fault inside the vendor call surfaces as an error, not a crash.
func (o *Orchestrator) triggerMeasure(ctx context.Context) (result camera.VolumeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = camera.VolumeResult{}
			err = fmt.Errorf("measurement panicked: %v", r)
		}
	}()
	return o.Volume.TriggerMeasure(ctx)
}

// finalize computes completeness and assigns the terminal status. A record
// already marked Error keeps it: "device said no" and "our code broke" stay
// distinguishable.
func (o *Orchestrator) finalize(sess *session) {
	record := sess.record
	record.RecomputeVolume()

	if record.Status == StatusError {
		return
	}

	if complete, reason := record.Complete(); !complete {
		record.Status = StatusFailed
		if record.ErrorMessage == "" {
			record.ErrorMessage = reason
		}
		return
	}
	record.Status = StatusSuccess
}

// publish hands the finished, read-only record to the output collaborators.
// Their failures are logged and never alter the status decided in finalize.
func (o *Orchestrator) publish(sess *session) {
	record := sess.record

	if o.Persister != nil {
		if err := o.Persister.SaveRecord(sess.ctx, record); err != nil {
			monitoring.Logf("fusion: failed to persist record %s: %v", record.ID, err)
		}
	}
	if o.Uploader != nil {
		if err := o.Uploader.UploadRecord(sess.ctx, record); err != nil {
			monitoring.Logf("fusion: failed to upload record %s: %v", record.ID, err)
		}
	}
	if o.Display != nil {
		o.Display.RefreshRecord(record)
	}
	if record.Status != StatusSuccess && o.Sounder != nil {
		o.Sounder.PlayError()
	}
}
