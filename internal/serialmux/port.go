package serialmux

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial device.
// Both the weight scale and the barcode scanner satisfy it; the abstraction
// enables unit testing without real hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with a read timeout. Ports may
// optionally implement it.
type TimeoutSerialPorter interface {
	SerialPorter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}
