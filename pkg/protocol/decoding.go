package protocol

import (
	"errors"
	"io"
	"time"
)

// ParseResponse validates a response frame and splits it into its status and
// payload. Checks run in a fixed order: minimum size, SOF, declared length,
// CRC. Bytes past the declared length are ignored.
func ParseResponse(frame []byte) (Status, []byte, error) {
	if len(frame) < MIN_FRAME_SIZE {
		return STATUS_ERROR, nil, ErrFrameTooShort
	}

	if frame[0] != SOF {
		return STATUS_ERROR, nil, ErrInvalidSOF
	}

	length := int(frame[1])
	if length < 1 {
		return STATUS_ERROR, nil, ErrInvalidLength
	}

	total := HEADER_SIZE + length + CRC_SIZE
	if len(frame) < total {
		return STATUS_ERROR, nil, ErrIncompleteFrame
	}

	received := uint16(frame[total-2]) | uint16(frame[total-1])<<8
	computed := CRC16(frame[1 : total-CRC_SIZE])
	if received != computed {
		return STATUS_ERROR, nil, &ChecksumError{
			Received: received,
			Computed: computed,
		}
	}

	payload := make([]byte, length-1)
	copy(payload, frame[HEADER_SIZE+1:total-CRC_SIZE])

	return ParseStatus(frame[HEADER_SIZE]), payload, nil
}

// FrameLength returns the total frame size declared by the header of buf.
// It reports false until both SOF and LEN have been received.
func FrameLength(buf []byte) (int, bool) {
	if len(buf) < HEADER_SIZE {
		return 0, false
	}

	return HEADER_SIZE + int(buf[1]) + CRC_SIZE, true
}

// ReadFrame accumulates bytes from r until the frame length declared in the
// header has arrived or the deadline passes. A reader that returns (0, nil)
// on its own read timeout is polled again until the deadline.
//
// Whatever has been collected is returned for ParseResponse to judge, so a
// truncated frame surfaces as ErrIncompleteFrame or ErrFrameTooShort.
// ErrNoResponse is returned only when nothing at all arrived.
func ReadFrame(r io.Reader, deadline time.Time) ([]byte, error) {
	buf := make([]byte, 0, MAX_FRAME_SIZE)
	chunk := make([]byte, MAX_FRAME_SIZE)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)

			// Nothing after a bad SOF can be framed; let the parser reject it.
			if buf[0] != SOF {
				return buf, nil
			}

			if total, ok := FrameLength(buf); ok && len(buf) >= total {
				return buf[:total], nil
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return buf, err
		}

		if !time.Now().Before(deadline) {
			break
		}
	}

	if len(buf) == 0 {
		return nil, ErrNoResponse
	}

	return buf, nil
}
