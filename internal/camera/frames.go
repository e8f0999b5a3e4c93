// Package camera defines the station-side interfaces to the photo camera
// and the volume-measurement head. The vendor transports behind them (GigE,
// USB, SDK decoding) stay outside this repository; the fusion pipeline only
// ever sees frames and measurement results.
package camera

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/banshee-data/parcel.station/internal/timeutil"
)

// ErrNoFrame reports that no frame arrived within the capture budget.
var ErrNoFrame = errors.New("no frame received before timeout")

// Frame is one decoded photo frame as delivered by the camera collaborator.
type Frame struct {
	CameraID  string
	Data      []byte
	Timestamp time.Time
}

// FrameSource is a stream of photo frames. The orchestrator subscribes once
// per trigger and takes the first frame that arrives.
type FrameSource interface {
	// Subscribe creates a new channel receiving frames. The returned ID
	// identifies the channel for Unsubscribe.
	Subscribe() (string, chan Frame)
	// Unsubscribe removes and closes a subscriber channel.
	Unsubscribe(id string)
}

// CaptureOne waits for the first frame from src, bounded by timeout and the
// context. Returns ErrNoFrame on timeout, the stream error if the channel
// closes, or the context error on cancellation.
func CaptureOne(ctx context.Context, src FrameSource, clock timeutil.Clock, timeout time.Duration) (Frame, error) {
	id, ch := src.Subscribe()
	defer src.Unsubscribe(id)

	timer := clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-ch:
		if !ok {
			return Frame{}, errors.New("frame stream closed")
		}
		return frame, nil
	case <-timer.C():
		return Frame{}, ErrNoFrame
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Bus is a channel fan-out FrameSource fed by Publish. The camera adapter
// owned by cmd/station pushes decoded frames into it.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string]chan Frame
}

// NewBus creates an empty frame bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]chan Frame)}
}

func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers a new frame channel.
func (b *Bus) Subscribe() (string, chan Frame) {
	id := randomID()
	ch := make(chan Frame, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Publish fans a frame out to all subscribers. Full subscriber channels are
// skipped so a stalled consumer cannot block the camera adapter.
func (b *Bus) Publish(frame Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- frame:
		default:
		}
	}
}

// StartReplay publishes the given frames into bus in order, looping at the
// given interval, until ctx is cancelled. Dev mode uses it in place of a
// camera adapter, mirroring the serial replay fixtures.
func StartReplay(ctx context.Context, bus *Bus, interval time.Duration, frames []Frame) {
	if len(frames) == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-ticker.C:
				frame := frames[i%len(frames)]
				frame.Timestamp = time.Now()
				bus.Publish(frame)
				i++
			case <-ctx.Done():
				return
			}
		}
	}()
}
