// Package simulator is a software wallet speaking the device side of the
// serial protocol. It satisfies serialport.Port so the transport can drive it
// exactly like a USB CDC link.
package simulator

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"iter"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/librecrypt/walletlink/pkg/protocol"
	"github.com/librecrypt/walletlink/pkg/serialport"
)

var ErrClosed = errors.New("simulator: port closed")

const (
	PortName      = "sim0"
	CryptoVersion = "librecipher-0.1"
	AddressPrefix = "lc1"
)

// Simulator is safe for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	rx      []byte
	tx      []byte
	ready   chan struct{}
	timeout time.Duration
	closed  bool

	chunkSize int
	silent    bool
	corrupt   bool
	forced    *protocol.Status

	version  [3]byte
	status   protocol.WalletStatus
	pinHash  [32]byte
	seed     [32]byte
	received []protocol.Command
}

type Option func(*Simulator)

// WithChunkSize limits how many bytes a single Read returns.
func WithChunkSize(n int) Option {
	return func(s *Simulator) {
		s.chunkSize = n
	}
}

// WithSilence makes the device swallow requests without answering.
func WithSilence() Option {
	return func(s *Simulator) {
		s.silent = true
	}
}

// WithWallet provisions a locked wallet protected by pin.
func WithWallet(pin string) Option {
	return func(s *Simulator) {
		s.provision([]byte(pin))
		s.status = protocol.WalletStatusLocked
	}
}

func WithVersion(major, minor, patch uint8) Option {
	return func(s *Simulator) {
		s.version = [3]byte{major, minor, patch}
	}
}

func New(opts ...Option) *Simulator {
	s := &Simulator{
		ready:   make(chan struct{}, 1),
		timeout: protocol.DEFAULT_READ_TIMEOUT_MS * time.Millisecond,
		version: [3]byte{0, 1, 0},
		status:  protocol.WalletStatusUninitialized,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Open lets the simulator stand in for serialport.Open.
func (s *Simulator) Open(name string, baudRate int) (serialport.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = false
	s.rx = nil
	s.tx = nil

	return s, nil
}

// Info describes the simulator the way enumeration reports a real wallet.
func (s *Simulator) Info() *serialport.Info {
	return &serialport.Info{
		Name:      PortName,
		IsUSB:     true,
		VendorID:  serialport.DefaultAllowList[0].VendorID,
		ProductID: serialport.DefaultAllowList[0].ProductID,
		Product:   "LibreCrypt Wallet (simulated)",
	}
}

// Enumerate lists the simulator as the only port.
func (s *Simulator) Enumerate(ctx context.Context) iter.Seq2[*serialport.Info, error] {
	return serialport.Static(s.Info())(ctx)
}

// Received returns the commands of every valid frame seen so far.
func (s *Simulator) Received() []protocol.Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.received)
}

// Status returns the wallet state.
func (s *Simulator) Status() protocol.WalletStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// CorruptNext damages the checksum of the next response.
func (s *Simulator) CorruptNext() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.corrupt = true
}

// ForceNext answers the next request with status and no payload.
func (s *Simulator) ForceNext(status protocol.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.forced = &status
}

// SetSilent toggles whether requests are answered.
func (s *Simulator) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.silent = silent
}

// PublicKey returns the verification key of an account.
func (s *Simulator) PublicKey(account uint32) ed25519.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accountKey(account).Public().(ed25519.PublicKey)
}

func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrClosed
	}

	for _, b := range p {
		s.feed(b)
	}

	return len(p), nil
}

func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}

	if len(s.tx) == 0 {
		timeout := s.timeout
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-time.After(timeout):
			return 0, nil
		}

		s.mu.Lock()
	}
	defer s.mu.Unlock()

	n := len(s.tx)
	if s.chunkSize > 0 && n > s.chunkSize {
		n = s.chunkSize
	}
	n = copy(p, s.tx[:n])
	s.tx = s.tx[n:]

	return n, nil
}

func (s *Simulator) ResetInputBuffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tx = nil
	return nil
}

func (s *Simulator) SetReadTimeout(t time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timeout = t
	return nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// feed runs the firmware receive state machine one byte at a time.
func (s *Simulator) feed(b byte) {
	s.rx = append(s.rx, b)

	if s.rx[0] != protocol.SOF {
		s.rx = s.rx[:0]
		return
	}

	total, ok := protocol.FrameLength(s.rx)
	if !ok || len(s.rx) < total {
		if len(s.rx) >= protocol.MAX_FRAME_SIZE {
			s.rx = s.rx[:0]
		}
		return
	}

	frame := s.rx[:total]
	s.rx = s.rx[:0]

	length := int(frame[1])
	received := binary.LittleEndian.Uint16(frame[total-2:])
	if length < 1 || received != protocol.CRC16(frame[1:total-2]) {
		// The firmware drops damaged frames without answering.
		return
	}

	cmd := protocol.Command(frame[2])
	data := slices.Clone(frame[3 : total-2])
	s.received = append(s.received, cmd)

	if s.silent {
		return
	}

	if s.forced != nil {
		status := *s.forced
		s.forced = nil
		s.respond(status, nil)
		return
	}

	s.respond(s.process(cmd, data))
}

func (s *Simulator) respond(status protocol.Status, payload []byte) {
	frame := protocol.BuildFrame(protocol.Command(status), payload)
	if s.corrupt {
		frame[len(frame)-1] ^= 0xFF
		s.corrupt = false
	}

	s.tx = append(s.tx, frame...)

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Simulator) process(cmd protocol.Command, data []byte) (protocol.Status, []byte) {
	switch cmd {
	case protocol.CMD_PING:
		return protocol.STATUS_OK, []byte("PONG")

	case protocol.CMD_GET_VERSION:
		return protocol.STATUS_OK, slices.Concat(s.version[:], []byte(CryptoVersion))

	case protocol.CMD_GET_STATUS:
		return protocol.STATUS_OK, []byte{byte(s.status)}

	case protocol.CMD_CREATE_WALLET:
		if s.status != protocol.WalletStatusUninitialized || len(data) == 0 {
			return protocol.STATUS_ERROR, nil
		}
		s.provision(data)
		s.status = protocol.WalletStatusUnlocked
		return protocol.STATUS_OK, nil

	case protocol.CMD_UNLOCK:
		if s.status != protocol.WalletStatusLocked || len(data) == 0 {
			return protocol.STATUS_ERROR, nil
		}
		attempt := hashPIN(data)
		if subtle.ConstantTimeCompare(attempt[:], s.pinHash[:]) != 1 {
			return protocol.STATUS_INVALID_PIN, nil
		}
		s.status = protocol.WalletStatusUnlocked
		return protocol.STATUS_OK, nil

	case protocol.CMD_LOCK:
		if s.status != protocol.WalletStatusUninitialized {
			s.status = protocol.WalletStatusLocked
		}
		return protocol.STATUS_OK, nil

	case protocol.CMD_GET_ADDRESS:
		if len(data) < 4 {
			return protocol.STATUS_ERROR, nil
		}
		if status, ok := s.requireUnlocked(); !ok {
			return status, nil
		}
		return protocol.STATUS_OK, []byte(s.address(binary.LittleEndian.Uint32(data)))

	case protocol.CMD_SIGN_TRANSACTION:
		account, ok := parseTransaction(data)
		if !ok {
			return protocol.STATUS_ERROR, nil
		}
		if status, ok := s.requireUnlocked(); !ok {
			return status, nil
		}
		return protocol.STATUS_OK, ed25519.Sign(s.accountKey(account), data)

	default:
		return protocol.STATUS_INVALID_COMMAND, nil
	}
}

func (s *Simulator) requireUnlocked() (protocol.Status, bool) {
	switch s.status {
	case protocol.WalletStatusUnlocked:
		return protocol.STATUS_OK, true
	case protocol.WalletStatusLocked:
		return protocol.STATUS_LOCKED, false
	default:
		return protocol.STATUS_ERROR, false
	}
}

func (s *Simulator) provision(pin []byte) {
	if _, err := rand.Read(s.seed[:]); err != nil {
		panic(err)
	}
	s.pinHash = hashPIN(pin)
}

func (s *Simulator) accountKey(account uint32) ed25519.PrivateKey {
	var index [4]byte
	binary.LittleEndian.PutUint32(index[:], account)

	seed := blake2b.Sum256(slices.Concat(s.seed[:], index[:]))
	return ed25519.NewKeyFromSeed(seed[:])
}

func (s *Simulator) address(account uint32) string {
	pub := s.accountKey(account).Public().(ed25519.PublicKey)
	sum := blake2b.Sum256(pub)
	return AddressPrefix + hex.EncodeToString(sum[:20])
}

func hashPIN(pin []byte) [32]byte {
	return blake2b.Sum256(pin)
}

// parseTransaction checks the signing payload layout:
// account(4) amount(8) fee(8) addrLen(1) addr(addrLen).
func parseTransaction(data []byte) (uint32, bool) {
	const header = 4 + 8 + 8 + 1
	if len(data) < header {
		return 0, false
	}
	if len(data) != header+int(data[header-1]) {
		return 0, false
	}

	return binary.LittleEndian.Uint32(data), true
}
