package scale

import (
	"context"

	"github.com/banshee-data/parcel.station/internal/monitoring"
	"github.com/banshee-data/parcel.station/internal/serialmux"
	"github.com/banshee-data/parcel.station/internal/timeutil"
)

// Feed subscribes to the scale mux and pushes every parsed sample into the
// detector, stamping each with the clock's current time. It returns when the
// context is cancelled or the subscription channel closes (device shutdown).
// Unparsable lines are logged and skipped.
func Feed(ctx context.Context, mux serialmux.SerialMuxInterface, d *Detector, clock timeutil.Clock) {
	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return
			}
			kg, err := ParseWeightLine(line)
			if err != nil {
				monitoring.Logf("scale: dropping line: %v", err)
				continue
			}
			d.Ingest(kg, clock.Now())
		case <-ctx.Done():
			return
		}
	}
}
