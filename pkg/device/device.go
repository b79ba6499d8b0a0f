package device

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/librecrypt/walletlink/pkg/options"
	"github.com/librecrypt/walletlink/pkg/protocol"
	"github.com/librecrypt/walletlink/pkg/serialport"
	"github.com/librecrypt/walletlink/pkg/transcript"
)

// Manager owns the single serial handle to a wallet and serializes every
// exchange on it. The handle is only ever replaced as a whole.
type Manager struct {
	mu   sync.Mutex
	port serialport.Port
	name string

	logger      *slog.Logger
	ctx         context.Context
	fixedPort   string
	baudRate    int
	readTimeout time.Duration
	allowList   []serialport.USBID
	permissive  bool
	open        serialport.OpenFunc
	enumerate   serialport.EnumerateFunc
	transcript  io.Writer
	encMode     cbor.EncMode
}

// NewManager creates a Manager without an open port.
func NewManager(opts ...options.Option) *Manager {
	oo := options.NewOptions(opts...)

	return &Manager{
		logger:      oo.Logger,
		ctx:         oo.Context,
		fixedPort:   oo.Port,
		baudRate:    oo.BaudRate,
		readTimeout: oo.ReadTimeout,
		allowList:   oo.AllowList,
		permissive:  oo.PermissiveDiscovery,
		open:        oo.Opener,
		enumerate:   oo.Enumerator,
		transcript:  oo.Transcript,
		encMode:     oo.EncMode,
	}
}

// Connect opens the named port, dropping the previously held handle first so
// the same port can be reopened. On failure the Manager is left disconnected.
func (m *Manager) Connect(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()

	port, err := m.open(name, m.baudRate)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrPortOpen, name, err)
	}

	if err := port.SetReadTimeout(m.readTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("%w %s: %w", ErrPortOpen, name, err)
	}

	if m.transcript != nil {
		port = transcript.NewRecorder(port, m.transcript, m.encMode)
	}

	m.port = port
	m.name = name
	m.logger.Debug("port opened", "port", name, "baud", m.baudRate, "timeout", m.readTimeout)

	return nil
}

// Close releases the handle, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	if m.port == nil {
		return nil
	}

	err := m.port.Close()
	if err != nil {
		m.logger.Debug("error closing port", "port", m.name, "err", err)
	}
	m.port = nil
	m.name = ""

	return err
}

// Connected reports whether a handle is held. It says nothing about whether
// the device still answers.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.port != nil
}

// PortName returns the name of the open port or an empty string.
func (m *Manager) PortName() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.name
}

// Exchange sends one command frame and waits for its response, holding the
// port for the whole round trip. It returns the payload of a STATUS_OK
// response; any other status is returned as a *protocol.StatusError.
//
// There is no retry and no way to abort an exchange once written; it ends on
// a complete frame, an I/O error or the read timeout.
func (m *Manager) Exchange(cmd protocol.Command, payload []byte) ([]byte, error) {
	frame, err := protocol.NewFrame(cmd, payload)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.port == nil {
		return nil, ErrNotConnected
	}

	logger := m.logger.With("exchange", uuid.NewString(), "command", cmd.String())

	// Drop anything left over from an earlier exchange that timed out.
	if err := m.port.ResetInputBuffer(); err != nil {
		logger.Debug("cannot reset input buffer", "err", err)
	}

	logger.Debug("request", "hex", hex.EncodeToString(frame))
	if _, err := frame.WriteTo(m.port); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	raw, err := protocol.ReadFrame(m.port, time.Now().Add(m.readTimeout))
	if err != nil {
		if errors.Is(err, protocol.ErrNoResponse) {
			logger.Debug("no response", "timeout", m.readTimeout)
			return nil, ErrNoResponse
		}
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	logger.Debug("response", "hex", hex.EncodeToString(raw))

	status, data, err := protocol.ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	if status != protocol.STATUS_OK {
		return nil, protocol.NewStatusError(cmd, status)
	}

	return data, nil
}
