package device

import (
	"errors"

	"github.com/librecrypt/walletlink/pkg/protocol"
)

var (
	ErrDiscoveryFailed = errors.New("device: no wallet found")
	ErrPortOpen        = errors.New("device: cannot open port")
	ErrNotConnected    = errors.New("device: not connected")
	ErrWrite           = errors.New("device: write failed")
	ErrRead            = errors.New("device: read failed")
	ErrProtocol        = errors.New("device: malformed response")
	ErrNoResponse      = protocol.ErrNoResponse
)

type ErrorWithMessage struct {
	Message string
	Err     error
}

func newErrorMessage(err error, msg string) *ErrorWithMessage {
	return &ErrorWithMessage{
		Message: msg,
		Err:     err,
	}
}

func (m *ErrorWithMessage) Error() string {
	if m.Message != "" {
		return m.Err.Error() + " (" + m.Message + ")"
	}
	return m.Err.Error()
}

func (m *ErrorWithMessage) Unwrap() error {
	return m.Err
}
