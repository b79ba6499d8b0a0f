package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrFrameTooShort    = errors.New("protocol: frame too short")
	ErrInvalidSOF       = errors.New("protocol: invalid start of frame")
	ErrInvalidLength    = errors.New("protocol: invalid length field")
	ErrIncompleteFrame  = errors.New("protocol: incomplete frame")
	ErrChecksumMismatch = errors.New("protocol: checksum mismatch")
	ErrPayloadTooLarge  = errors.New("protocol: payload too large")
	ErrNoResponse       = errors.New("protocol: no response")
	ErrDeviceStatus     = errors.New("protocol: device reported failure")
)

// ChecksumError carries both checksums of a rejected frame.
type ChecksumError struct {
	Received uint16
	Computed uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s (received 0x%04x, computed 0x%04x)", ErrChecksumMismatch, e.Received, e.Computed)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

// StatusError is returned when the device answers a command with a status
// other than STATUS_OK.
type StatusError struct {
	Command Command
	Status  Status
}

func NewStatusError(cmd Command, status Status) *StatusError {
	return &StatusError{
		Command: cmd,
		Status:  status,
	}
}

func (e *StatusError) Error() string {
	return e.Command.String() + " failed (" + e.Status.String() + ")"
}

func (e *StatusError) Unwrap() error {
	return ErrDeviceStatus
}

// IsStatus reports whether err carries the given device status.
func IsStatus(err error, status Status) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
