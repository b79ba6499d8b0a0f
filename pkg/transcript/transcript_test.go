package transcript

import (
	"bytes"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librecrypt/walletlink/pkg/protocol"
)

var (
	pingRequest  = protocol.BuildFrame(protocol.CMD_PING, nil)
	pongResponse = []byte{0xAA, 0x05, 0x00, 'P', 'O', 'N', 'G', 0x55, 0x0B}
)

func session() []*Record {
	return []*Record{
		{Direction: DirectionRX, Data: []byte{0x00, 0x13}},
		{Direction: DirectionTX, Data: pingRequest},
		{Direction: DirectionRX, Data: pongResponse[:4]},
		{Direction: DirectionRX, Data: pongResponse[4:]},
		{Direction: DirectionTX, Data: pingRequest[:2]},
		{Direction: DirectionTX, Data: pingRequest[2:]},
	}
}

func TestReplayPort(t *testing.T) {
	port := NewReplayPort(session())
	require.NoError(t, port.SetReadTimeout(time.Millisecond))

	assert.Equal(t, 2, port.Remaining())
	assert.Equal(t, [][]byte{pingRequest, pingRequest}, port.Requests())

	n, err := port.Write(pingRequest)
	require.NoError(t, err)
	assert.Equal(t, len(pingRequest), n)

	buf := make([]byte, 64)
	n, err = port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, pongResponse, buf[:n])

	n, err = port.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = port.Write(protocol.BuildFrame(protocol.CMD_LOCK, nil))
	assert.ErrorIs(t, err, ErrReplayMismatch)

	_, err = port.Write(pingRequest)
	require.NoError(t, err)
	assert.Zero(t, port.Remaining())

	_, err = port.Write(pingRequest)
	assert.ErrorIs(t, err, ErrReplayMismatch)

	require.NoError(t, port.Close())
	_, err = port.Read(buf)
	assert.Error(t, err)
}

func TestReplayPort_ResetInputBuffer(t *testing.T) {
	port := NewReplayPort(session())

	_, err := port.Write(pingRequest)
	require.NoError(t, err)
	require.NoError(t, port.ResetInputBuffer())
	require.NoError(t, port.SetReadTimeout(time.Millisecond))

	n, err := port.Read(make([]byte, 64))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecorder_RoundTrip(t *testing.T) {
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	require.NoError(t, err)

	out := bytes.NewBuffer(nil)
	rec := NewRecorder(NewReplayPort(session()), out, encMode)

	_, err = rec.Write(pingRequest)
	require.NoError(t, err)

	buf := make([]byte, 3)
	var got []byte
	for len(got) < len(pongResponse) {
		n, err := rec.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, pongResponse, got)
	require.NoError(t, rec.Err())

	records, err := ReadAll(out)
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, DirectionTX, records[0].Direction)
	assert.Equal(t, pingRequest, records[0].Data)
	assert.Equal(t, DirectionRX, records[1].Direction)
	assert.Equal(t, pongResponse[:3], records[1].Data)
	assert.False(t, records[1].Time.IsZero())

	// A recorded session replays as the original device.
	replay := NewReplayPort(records)
	assert.Equal(t, 1, replay.Remaining())
	_, err = replay.Write(pingRequest)
	require.NoError(t, err)

	n, err := replay.Read(make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, len(pongResponse), n)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := ReadAll(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF}))
	assert.Error(t, err)

	records, err := ReadAll(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "tx", DirectionTX.String())
	assert.Equal(t, "rx", DirectionRX.String())
	assert.Equal(t, "unknown", Direction(9).String())
}
