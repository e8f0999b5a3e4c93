package fusion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/parcel.station/internal/timeutil"
)

func TestAdmissionSingleSlot(t *testing.T) {
	a := NewAdmission()

	if !a.TryAcquire() {
		t.Fatal("TryAcquire on idle admission failed")
	}
	if a.TryAcquire() {
		t.Error("TryAcquire succeeded while held")
	}
	if !a.Busy() {
		t.Error("Busy() = false while held")
	}

	a.Release()
	if !a.TryAcquire() {
		t.Error("TryAcquire failed after Release")
	}
}

func TestAdmissionConcurrentAcquire(t *testing.T) {
	a := NewAdmission()

	const goroutines = 32
	var wg sync.WaitGroup
	var acquired sync.Map
	wins := make(chan int, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if a.TryAcquire() {
				acquired.Store(n, true)
				wins <- n
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("%d goroutines acquired the admission slot, want exactly 1", count)
	}
}

func TestGateAcquireRelease(t *testing.T) {
	g := NewGate(timeutil.RealClock{})
	ctx := context.Background()

	if !g.TryAcquire(ctx, 50*time.Millisecond) {
		t.Fatal("TryAcquire on idle gate failed")
	}

	// A concurrent attempt fails within its budget, without blocking past it.
	start := time.Now()
	if g.TryAcquire(ctx, 30*time.Millisecond) {
		t.Error("TryAcquire succeeded while gate held")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("busy acquire took %v, want about the 30ms budget", elapsed)
	}

	g.Release()
	if !g.TryAcquire(ctx, 50*time.Millisecond) {
		t.Error("TryAcquire failed after Release")
	}
}

func TestGateAcquireWaitsForRelease(t *testing.T) {
	g := NewGate(timeutil.RealClock{})
	ctx := context.Background()

	if !g.TryAcquire(ctx, 50*time.Millisecond) {
		t.Fatal("initial acquire failed")
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Release()
	}()

	// The pending acquire succeeds once the holder releases inside the budget.
	if !g.TryAcquire(ctx, 2*time.Second) {
		t.Error("acquire did not succeed after release within budget")
	}
}

func TestGateAcquireHonoursContext(t *testing.T) {
	g := NewGate(timeutil.RealClock{})
	ctx, cancel := context.WithCancel(context.Background())

	if !g.TryAcquire(ctx, time.Second) {
		t.Fatal("initial acquire failed")
	}

	done := make(chan bool, 1)
	go func() {
		done <- g.TryAcquire(ctx, time.Minute)
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("acquire succeeded after context cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not return after context cancel")
	}
}

func TestGateReleaseWhenNotHeld(t *testing.T) {
	g := NewGate(timeutil.RealClock{})
	// Must not panic or corrupt state.
	g.Release()
	if !g.TryAcquire(context.Background(), 10*time.Millisecond) {
		t.Error("acquire failed after spurious Release")
	}
	// A spurious Release must not bank a token: with the gate held, the
	// next acquire still times out.
	g.Release()
	g.Release()
	if !g.TryAcquire(context.Background(), 10*time.Millisecond) {
		t.Error("acquire failed after double Release")
	}
	if g.TryAcquire(context.Background(), 10*time.Millisecond) {
		t.Error("second acquire succeeded while the gate was held")
	}
}
