package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFrame_Ping(t *testing.T) {
	frame := BuildFrame(CMD_PING, nil)
	assert.Equal(t, []byte{0xAA, 0x01, 0x01, 0xC1, 0xE0}, frame)
}

func TestBuildFrame_Payload(t *testing.T) {
	frame := BuildFrame(CMD_GET_ADDRESS, []byte{0x07, 0x00, 0x00, 0x00})
	require.Len(t, frame, 9)

	assert.Equal(t, SOF, frame[0])
	assert.Equal(t, byte(5), frame[1])
	assert.Equal(t, byte(CMD_GET_ADDRESS), frame[2])
	assert.Equal(t, []byte{0x07, 0x00, 0x00, 0x00}, frame[3:7])

	crc := CRC16(frame[1:7])
	assert.Equal(t, byte(crc), frame[7])
	assert.Equal(t, byte(crc>>8), frame[8])
}

func TestNewFrame_Bounds(t *testing.T) {
	maxPayload := MAX_FRAME_SIZE - MIN_FRAME_SIZE

	f, err := NewFrame(CMD_UNLOCK, make([]byte, maxPayload))
	require.NoError(t, err)
	assert.Len(t, f, MAX_FRAME_SIZE)
	assert.Equal(t, CMD_UNLOCK, f.Command())

	_, err = NewFrame(CMD_UNLOCK, make([]byte, maxPayload+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = NewFrame(CMD_UNLOCK, make([]byte, 300))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) - 1, nil
}

func TestFrame_WriteTo(t *testing.T) {
	f, err := NewFrame(CMD_LOCK, nil)
	require.NoError(t, err)

	buf := bytes.NewBuffer(nil)
	n, err := f.WriteTo(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(f)), n)
	assert.Equal(t, []byte(f), buf.Bytes())

	_, err = f.WriteTo(shortWriter{})
	assert.ErrorIs(t, err, io.ErrShortWrite)
}
