package fusion

import "sync/atomic"

// Admission is the single-trigger-at-a-time guard for the whole pipeline.
// A trigger arriving while another is in flight is dropped, never queued;
// queuing would let triggers pile up without bound under sustained load.
type Admission struct {
	busy atomic.Bool
}

// NewAdmission creates an idle admission gate.
func NewAdmission() *Admission {
	return &Admission{}
}

// TryAcquire claims the pipeline if it is idle. Non-blocking.
func (a *Admission) TryAcquire() bool {
	return a.busy.CompareAndSwap(false, true)
}

// Release returns the pipeline to idle.
func (a *Admission) Release() {
	a.busy.Store(false)
}

// Busy reports whether a trigger is currently being processed.
func (a *Admission) Busy() bool {
	return a.busy.Load()
}
