package wallet

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/librecrypt/walletlink/pkg/options"
	"github.com/librecrypt/walletlink/pkg/protocol"
)

// MaxAddressLength bounds the destination address of SignTransaction so the
// request always fits a single frame.
const MaxAddressLength = 200

// Exchanger performs one command/response round trip with the device.
// *device.Manager implements it.
type Exchanger interface {
	Exchange(cmd protocol.Command, payload []byte) ([]byte, error)
}

type Client struct {
	logger *slog.Logger
}

func NewClient(opts ...options.Option) *Client {
	oo := options.NewOptions(opts...)

	return &Client{
		logger: oo.Logger,
	}
}

func (cl *Client) Ping(dev Exchanger) error {
	resp, err := dev.Exchange(protocol.CMD_PING, nil)
	if err != nil {
		return err
	}
	cl.logger.Debug("Ping response", "hex", hex.EncodeToString(resp))

	return nil
}

// GetVersion reads the firmware version. The first three payload bytes are
// major, minor and patch; anything after is the crypto library version,
// decoded leniently.
func (cl *Client) GetVersion(dev Exchanger) (*protocol.VersionInfo, error) {
	resp, err := dev.Exchange(protocol.CMD_GET_VERSION, nil)
	if err != nil {
		return nil, err
	}
	cl.logger.Debug("GetVersion response", "hex", hex.EncodeToString(resp))

	if len(resp) < 3 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidVersion, len(resp))
	}

	return &protocol.VersionInfo{
		Major:         resp[0],
		Minor:         resp[1],
		Patch:         resp[2],
		CryptoVersion: strings.ToValidUTF8(string(resp[3:]), "�"),
	}, nil
}

func (cl *Client) GetStatus(dev Exchanger) (protocol.WalletStatus, error) {
	resp, err := dev.Exchange(protocol.CMD_GET_STATUS, nil)
	if err != nil {
		return 0, err
	}
	cl.logger.Debug("GetStatus response", "hex", hex.EncodeToString(resp))

	if len(resp) == 0 {
		return 0, ErrEmptyStatus
	}

	status := protocol.WalletStatus(resp[0])
	if !status.Valid() {
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnknownWalletStatus, resp[0])
	}

	return status, nil
}

// CreateWallet provisions a new wallet protected by pin. The device accepts
// it only while uninitialized and leaves the wallet unlocked.
func (cl *Client) CreateWallet(dev Exchanger, pin string) (bool, error) {
	payload, err := pinPayload(pin)
	if err != nil {
		return false, err
	}

	if _, err := dev.Exchange(protocol.CMD_CREATE_WALLET, payload); err != nil {
		return false, err
	}

	return true, nil
}

// Unlock unlocks a locked wallet. A wrong PIN comes back as a
// *protocol.StatusError carrying STATUS_INVALID_PIN.
func (cl *Client) Unlock(dev Exchanger, pin string) (bool, error) {
	payload, err := pinPayload(pin)
	if err != nil {
		return false, err
	}

	if _, err := dev.Exchange(protocol.CMD_UNLOCK, payload); err != nil {
		return false, err
	}

	return true, nil
}

func pinPayload(pin string) ([]byte, error) {
	if len(pin) > protocol.MAX_PAYLOAD_SIZE {
		return nil, fmt.Errorf("%w: PIN is %d bytes", protocol.ErrPayloadTooLarge, len(pin))
	}

	return []byte(pin), nil
}

func (cl *Client) Lock(dev Exchanger) error {
	_, err := dev.Exchange(protocol.CMD_LOCK, nil)
	return err
}

func (cl *Client) GetAddress(dev Exchanger, accountIndex uint32) (string, error) {
	resp, err := dev.Exchange(protocol.CMD_GET_ADDRESS, binary.LittleEndian.AppendUint32(nil, accountIndex))
	if err != nil {
		return "", err
	}
	cl.logger.Debug("GetAddress response", "account", accountIndex, "hex", hex.EncodeToString(resp))

	if !utf8.Valid(resp) {
		return "", ErrInvalidEncoding
	}

	return string(resp), nil
}

// SignTransaction asks the device to sign a transfer and returns the raw
// signature hex-encoded.
func (cl *Client) SignTransaction(
	dev Exchanger,
	accountIndex uint32,
	toAddress string,
	amount uint64,
	fee uint64,
) (string, error) {
	if len(toAddress) > MaxAddressLength {
		return "", fmt.Errorf("%w: %d bytes, at most %d allowed", ErrAddressTooLong, len(toAddress), MaxAddressLength)
	}

	payload := EncodeTransaction(accountIndex, toAddress, amount, fee)
	cl.logger.Debug("SignTransaction request", "hex", hex.EncodeToString(payload))

	sig, err := dev.Exchange(protocol.CMD_SIGN_TRANSACTION, payload)
	if err != nil {
		return "", err
	}
	cl.logger.Debug("SignTransaction response", "hex", hex.EncodeToString(sig))

	return hex.EncodeToString(sig), nil
}

// EncodeTransaction lays out a signing request: account index, amount and
// fee little endian, then the address prefixed with its one-byte length.
// The address must already be bounded by MaxAddressLength.
func EncodeTransaction(accountIndex uint32, toAddress string, amount uint64, fee uint64) []byte {
	b := make([]byte, 0, 4+8+8+1+len(toAddress))
	b = binary.LittleEndian.AppendUint32(b, accountIndex)
	b = binary.LittleEndian.AppendUint64(b, amount)
	b = binary.LittleEndian.AppendUint64(b, fee)
	b = append(b, byte(len(toAddress)))

	return append(b, toAddress...)
}
