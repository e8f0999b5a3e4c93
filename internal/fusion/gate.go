package fusion

import (
	"context"
	"time"

	"github.com/banshee-data/parcel.station/internal/timeutil"
)

// Gate serialises access to the volume-measurement head, which accepts one
// in-flight operation. It is separate from Admission: the device resource is
// narrower than the whole pipeline and must fail fast rather than serialise
// entire packages behind it.
type Gate struct {
	tokens chan struct{}
	clock  timeutil.Clock
}

// NewGate creates a capacity-1 gate.
func NewGate(clock timeutil.Clock) *Gate {
	return &Gate{
		tokens: make(chan struct{}, 1),
		clock:  clock,
	}
}

// TryAcquire claims the device, waiting at most timeout. A request that
// cannot acquire in time is rejected outright, not queued.
func (g *Gate) TryAcquire(ctx context.Context, timeout time.Duration) bool {
	select {
	case g.tokens <- struct{}{}:
		return true
	default:
	}

	timer := g.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case g.tokens <- struct{}{}:
		return true
	case <-timer.C():
		return false
	case <-ctx.Done():
		return false
	}
}

// Release returns the device. Idempotent: releasing an unheld gate is a
// no-op rather than banking an extra token, so a stray Release from an
// error path can never let two measurements overlap.
func (g *Gate) Release() {
	select {
	case <-g.tokens:
	default:
	}
}
