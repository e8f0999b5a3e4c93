// Package scanner turns the barcode scanner's serial line stream into
// trigger events for the fusion pipeline.
package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/parcel.station/internal/serialmux"
	"github.com/banshee-data/parcel.station/internal/timeutil"
)

// Trigger is one barcode read: the physical "a package arrived" event.
type Trigger struct {
	Barcode   string
	Timestamp time.Time
}

// ParseTriggerLine extracts a barcode from one scanner line. Scanners in
// serial-emulation mode emit the label text followed by CR/LF; some firmware
// wraps it in an STX/ETX frame, which is stripped here.
func ParseTriggerLine(line string) (string, error) {
	s := strings.Trim(strings.TrimSpace(line), "\x02\x03")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty scanner line")
	}
	return s, nil
}

// Feed subscribes to the scanner mux and invokes handle once per parsed
// trigger, stamping each with the clock's current time. Blank or unframed
// noise lines are skipped silently. Feed returns when the context is
// cancelled or the subscription channel closes.
func Feed(ctx context.Context, mux serialmux.SerialMuxInterface, clock timeutil.Clock, handle func(Trigger)) {
	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return
			}
			barcode, err := ParseTriggerLine(line)
			if err != nil {
				continue
			}
			handle(Trigger{Barcode: barcode, Timestamp: clock.Now()})
		case <-ctx.Done():
			return
		}
	}
}
