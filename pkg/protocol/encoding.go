package protocol

import (
	"io"
	"slices"
)

// Frame is a complete wire frame.
type Frame []byte

// BuildFrame serializes cmd and payload into a wire frame. The CRC covers
// everything from the LEN byte onward.
//
// The payload is not bounded here: LEN is a single byte, so callers must keep
// len(payload) <= MAX_PAYLOAD_SIZE or use NewFrame.
func BuildFrame(cmd Command, payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+MIN_FRAME_SIZE)
	frame = append(frame, SOF, byte(len(payload)+1), byte(cmd))
	frame = append(frame, payload...)

	crc := CRC16(frame[1:])
	return append(frame, byte(crc), byte(crc>>8))
}

// NewFrame is BuildFrame with the LEN and MAX_FRAME_SIZE bounds enforced.
func NewFrame(cmd Command, payload []byte) (Frame, error) {
	if len(payload) > MAX_PAYLOAD_SIZE || len(payload)+MIN_FRAME_SIZE > MAX_FRAME_SIZE {
		return nil, ErrPayloadTooLarge
	}

	return BuildFrame(cmd, payload), nil
}

// Command returns the command (or status) byte of the frame.
func (f Frame) Command() Command {
	if len(f) < HEADER_SIZE+1 {
		return 0
	}
	return Command(f[HEADER_SIZE])
}

// WriteTo writes the frame to w in full. A short write is reported as
// io.ErrShortWrite.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f)
	if err != nil {
		return int64(n), err
	}
	if n != len(f) {
		return int64(n), io.ErrShortWrite
	}

	return int64(n), nil
}

// Clone returns a copy that does not alias f.
func (f Frame) Clone() Frame {
	return slices.Clone(f)
}
