package protocol

// Frame layout:
//
//	[SOF][LEN][CMD or STATUS][PAYLOAD: LEN-1][CRC_LO][CRC_HI]
const (
	SOF            byte = 0xAA
	MAX_FRAME_SIZE      = 256

	// HEADER_SIZE covers SOF and LEN, CRC_SIZE the trailing checksum.
	HEADER_SIZE    = 2
	CRC_SIZE       = 2
	MIN_FRAME_SIZE = HEADER_SIZE + 1 + CRC_SIZE

	// MAX_PAYLOAD_SIZE is bounded by the one-byte LEN field, which also counts
	// the command byte.
	MAX_PAYLOAD_SIZE = 255 - 1
)

const (
	DEFAULT_BAUD_RATE       = 115200
	DEFAULT_READ_TIMEOUT_MS = 1000
)

// Command represents a request code sent by the host.
type Command byte

const (
	CMD_PING             Command = 0x01
	CMD_GET_VERSION      Command = 0x02
	CMD_GET_STATUS       Command = 0x03
	CMD_CREATE_WALLET    Command = 0x10
	CMD_UNLOCK           Command = 0x11
	CMD_LOCK             Command = 0x12
	CMD_GET_ADDRESS      Command = 0x20
	CMD_SIGN_TRANSACTION Command = 0x21
	CMD_VERIFY_SIGNATURE Command = 0x22

	// Reserved for a session layer; no request is built with them yet.
	CMD_INIT_SESSION  Command = 0x30
	CMD_CLOSE_SESSION Command = 0x31
)

// Status represents the outcome code carried by a response frame.
type Status byte

const (
	STATUS_OK                Status = 0x00
	STATUS_ERROR             Status = 0x01
	STATUS_INVALID_COMMAND   Status = 0x02
	STATUS_LOCKED            Status = 0x03
	STATUS_NEED_CONFIRM      Status = 0x04
	STATUS_INVALID_PIN       Status = 0x05
	STATUS_INVALID_SIGNATURE Status = 0x06
	STATUS_SESSION_EXPIRED   Status = 0x07
)

// ParseStatus maps a raw status byte onto the known set.
// Unknown codes degrade to STATUS_ERROR so they are never mistaken for success.
func ParseStatus(b byte) Status {
	s := Status(b)
	if s > STATUS_SESSION_EXPIRED {
		return STATUS_ERROR
	}
	return s
}
