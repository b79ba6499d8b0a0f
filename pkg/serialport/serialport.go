// Package serialport adapts go.bug.st/serial to the narrow port surface the
// wallet transport needs, and enumerates candidate USB CDC ports.
package serialport

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the subset of a serial port used by the transport.
// go.bug.st/serial.Port satisfies it.
type Port interface {
	io.ReadWriteCloser
	// ResetInputBuffer discards bytes received but not yet read.
	ResetInputBuffer() error
	// SetReadTimeout bounds a single Read; on expiry Read returns (0, nil).
	SetReadTimeout(t time.Duration) error
}

// OpenFunc opens the named port at the given baud rate.
type OpenFunc func(name string, baudRate int) (Port, error)

// Open opens a real serial port in 8N1 mode.
func Open(name string, baudRate int) (Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	return port, nil
}
