package sugar

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librecrypt/walletlink/internal/simulator"
	"github.com/librecrypt/walletlink/pkg/device"
	"github.com/librecrypt/walletlink/pkg/options"
	"github.com/librecrypt/walletlink/pkg/protocol"
	"github.com/librecrypt/walletlink/pkg/serialport"
	"github.com/librecrypt/walletlink/pkg/wallet"
)

func baseOptions() []options.Option {
	return []options.Option{
		options.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		options.WithReadTimeout(50 * time.Millisecond),
	}
}

func simWallet(t *testing.T, sim *simulator.Simulator) *Wallet {
	t.Helper()

	w := New(append(baseOptions(),
		options.WithOpener(sim.Open),
		options.WithEnumerator(sim.Enumerate),
	)...)
	t.Cleanup(func() { _ = w.Close() })

	return w
}

func TestWallet_DeviceAbsent(t *testing.T) {
	w := New(append(baseOptions(), options.WithEnumerator(serialport.Static()))...)

	ok, err := w.CheckConnection()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, Disconnected, w.GetWalletStatus())

	_, err = w.GetFirmwareVersion()
	assert.ErrorIs(t, err, device.ErrDiscoveryFailed)
}

func TestWallet_DeviceSilent(t *testing.T) {
	w := simWallet(t, simulator.New(simulator.WithSilence()))

	ok, err := w.CheckConnection()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Disconnected, w.GetWalletStatus())
}

func TestWallet_CheckConnection(t *testing.T) {
	sim := simulator.New()
	w := simWallet(t, sim)

	ok, err := w.CheckConnection()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []protocol.Command{protocol.CMD_PING}, sim.Received())

	// A second check reopens the same port.
	ok, err = w.CheckConnection()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, simulator.PortName, w.Manager().PortName())
}

func TestWallet_Lifecycle(t *testing.T) {
	w := simWallet(t, simulator.New())

	v, err := w.GetFirmwareVersion()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v.Minor)

	assert.Equal(t, Uninitialized, w.GetWalletStatus())

	ok, err := w.CreateWallet("2468")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Unlocked, w.GetWalletStatus())

	addr, err := w.GetAddress(0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr, simulator.AddressPrefix))

	sig, err := w.SignTransaction(0, addr, 5, 1)
	require.NoError(t, err)
	assert.Len(t, sig, 128)

	require.NoError(t, w.LockWallet())
	assert.Equal(t, Locked, w.GetWalletStatus())

	_, err = w.UnlockWallet("1111")
	assert.True(t, protocol.IsStatus(err, protocol.STATUS_INVALID_PIN))

	ok, err = w.UnlockWallet("2468")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWallet_LockedStatus(t *testing.T) {
	w := simWallet(t, simulator.New(simulator.WithWallet("0000")))

	assert.Equal(t, Locked, w.GetWalletStatus())
}

func TestWallet_StatusCommandRejected(t *testing.T) {
	sim := simulator.New()
	w := simWallet(t, sim)

	require.Equal(t, Uninitialized, w.GetWalletStatus())

	sim.ForceNext(protocol.STATUS_LOCKED)
	assert.Equal(t, Disconnected, w.GetWalletStatus())
}

func TestWallet_SignRejectsLongAddress(t *testing.T) {
	sim := simulator.New(simulator.WithWallet("0000"))
	w := simWallet(t, sim)

	ok, err := w.CheckConnection()
	require.NoError(t, err)
	require.True(t, ok)
	before := len(sim.Received())

	_, err = w.SignTransaction(0, strings.Repeat("x", 201), 1, 1)
	assert.ErrorIs(t, err, wallet.ErrAddressTooLong)
	assert.Len(t, sim.Received(), before)
}

func TestWallet_SignRejectsLongAddressWithoutDevice(t *testing.T) {
	w := New(append(baseOptions(), options.WithEnumerator(serialport.Static()))...)

	_, err := w.SignTransaction(0, strings.Repeat("x", 201), 1, 1)
	assert.ErrorIs(t, err, wallet.ErrAddressTooLong)
	assert.False(t, w.Manager().Connected())
}

func TestEnumerateWalletPorts(t *testing.T) {
	ports, err := EnumerateWalletPorts(options.WithEnumerator(serialport.Static(
		&serialport.Info{Name: "COM1"},
		&serialport.Info{Name: "COM7", IsUSB: true, VendorID: 0x2E8A, ProductID: 0x000C},
	)))
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "COM7", ports[0].Name)
}

func TestSelectWallet(t *testing.T) {
	silent := simulator.New(simulator.WithSilence())
	live := simulator.New()
	sims := map[string]*simulator.Simulator{"COM5": silent, "COM6": live}

	w, err := SelectWallet(append(baseOptions(),
		options.WithEnumerator(serialport.Static(
			&serialport.Info{Name: "COM5", IsUSB: true, VendorID: 0x2E8A, ProductID: 0x0009},
			&serialport.Info{Name: "COM6", IsUSB: true, VendorID: 0x2E8A, ProductID: 0x000A},
		)),
		options.WithOpener(func(name string, baudRate int) (serialport.Port, error) {
			return sims[name].Open(name, baudRate)
		}),
	)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "COM6", w.Manager().PortName())
	assert.Equal(t, Uninitialized, w.GetWalletStatus())
}

func TestSelectWallet_NoneAnswers(t *testing.T) {
	silent := simulator.New(simulator.WithSilence())

	_, err := SelectWallet(append(baseOptions(),
		options.WithOpener(silent.Open),
		options.WithEnumerator(silent.Enumerate),
	)...)
	assert.ErrorIs(t, err, ErrNoWalletSelected)
	assert.ErrorIs(t, err, device.ErrNoResponse)

	_, err = SelectWallet(append(baseOptions(), options.WithEnumerator(serialport.Static()))...)
	assert.ErrorIs(t, err, device.ErrDiscoveryFailed)
}

func TestAppWalletStatus_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]AppWalletStatus{"status": Locked})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Locked"}`, string(b))

	var s AppWalletStatus
	require.NoError(t, json.Unmarshal([]byte(`"Unlocked"`), &s))
	assert.Equal(t, Unlocked, s)

	assert.Error(t, json.Unmarshal([]byte(`"Bricked"`), &s))
}

func TestFromWalletStatus(t *testing.T) {
	assert.Equal(t, Uninitialized, FromWalletStatus(protocol.WalletStatusUninitialized))
	assert.Equal(t, Locked, FromWalletStatus(protocol.WalletStatusLocked))
	assert.Equal(t, Unlocked, FromWalletStatus(protocol.WalletStatusUnlocked))
	assert.Equal(t, Disconnected, FromWalletStatus(protocol.WalletStatus(9)))
}
