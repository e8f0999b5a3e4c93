package serialmux

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// MockSerialPort implements SerialPorter for dev mode. Reads come from a
// replay pipe; writes are discarded.
type MockSerialPort struct {
	io.Reader
	closeOnce sync.Once
	closer    io.Closer
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.closer != nil {
			err = m.closer.Close()
		}
	})
	return err
}

// NewMockSerialMux creates a SerialMux backed by a mock port that replays
// the given lines in order at the given interval, then goes quiet. Used by
// dev mode to exercise the full pipeline without hardware.
func NewMockSerialMux(name string, lines []string, interval time.Duration) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()

	mockPort := &MockSerialPort{
		Reader: r,
		closer: r,
	}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for range ticker.C {
			line := lines[i%len(lines)]
			if _, err := w.Write([]byte(line + "\n")); err != nil {
				return
			}
			i++
		}
	}()

	return NewSerialMux(name, mockPort)
}

// TestableSerialPort implements SerialPorter with configurable behaviour for
// tests: scripted reads, captured writes, injectable errors and latency.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port.
	WriteBuffer *bytes.Buffer

	// ReadLatency delays each Read call.
	ReadLatency time.Duration

	// ReadError, WriteError and CloseError are returned by the respective
	// calls when set.
	ReadError  error
	WriteError error
	CloseError error

	// WriteShort makes Write report one byte fewer than requested.
	WriteShort bool

	closed bool
}

// NewTestableSerialPort returns a TestableSerialPort preloaded with the
// given read data.
func NewTestableSerialPort(readData string) *TestableSerialPort {
	return &TestableSerialPort{
		ReadBuffer:  bytes.NewBufferString(readData),
		WriteBuffer: &bytes.Buffer{},
	}
}

func (p *TestableSerialPort) Read(b []byte) (int, error) {
	if p.ReadLatency > 0 {
		time.Sleep(p.ReadLatency)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ReadError != nil {
		return 0, p.ReadError
	}
	if p.closed {
		return 0, io.EOF
	}
	return p.ReadBuffer.Read(b)
}

func (p *TestableSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.WriteError != nil {
		return 0, p.WriteError
	}
	n, err := p.WriteBuffer.Write(b)
	if err != nil {
		return n, err
	}
	if p.WriteShort && n > 0 {
		return n - 1, nil
	}
	return n, nil
}

func (p *TestableSerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.CloseError
}

// Written returns everything written to the port so far.
func (p *TestableSerialPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.WriteBuffer.String()
}
