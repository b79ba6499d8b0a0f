package protocol

import "strconv"

func (c Command) String() string {
	switch c {
	case CMD_PING:
		return "CMD_PING"
	case CMD_GET_VERSION:
		return "CMD_GET_VERSION"
	case CMD_GET_STATUS:
		return "CMD_GET_STATUS"
	case CMD_CREATE_WALLET:
		return "CMD_CREATE_WALLET"
	case CMD_UNLOCK:
		return "CMD_UNLOCK"
	case CMD_LOCK:
		return "CMD_LOCK"
	case CMD_GET_ADDRESS:
		return "CMD_GET_ADDRESS"
	case CMD_SIGN_TRANSACTION:
		return "CMD_SIGN_TRANSACTION"
	case CMD_VERIFY_SIGNATURE:
		return "CMD_VERIFY_SIGNATURE"
	case CMD_INIT_SESSION:
		return "CMD_INIT_SESSION"
	case CMD_CLOSE_SESSION:
		return "CMD_CLOSE_SESSION"
	default:
		return "Command(" + strconv.FormatInt(int64(c), 10) + ")"
	}
}

func (s Status) String() string {
	switch s {
	case STATUS_OK:
		return "STATUS_OK"
	case STATUS_ERROR:
		return "STATUS_ERROR"
	case STATUS_INVALID_COMMAND:
		return "STATUS_INVALID_COMMAND"
	case STATUS_LOCKED:
		return "STATUS_LOCKED"
	case STATUS_NEED_CONFIRM:
		return "STATUS_NEED_CONFIRM"
	case STATUS_INVALID_PIN:
		return "STATUS_INVALID_PIN"
	case STATUS_INVALID_SIGNATURE:
		return "STATUS_INVALID_SIGNATURE"
	case STATUS_SESSION_EXPIRED:
		return "STATUS_SESSION_EXPIRED"
	default:
		return "Status(" + strconv.FormatInt(int64(s), 10) + ")"
	}
}

func (s WalletStatus) String() string {
	switch s {
	case WalletStatusUninitialized:
		return "Uninitialized"
	case WalletStatusLocked:
		return "Locked"
	case WalletStatusUnlocked:
		return "Unlocked"
	default:
		return "WalletStatus(" + strconv.FormatInt(int64(s), 10) + ")"
	}
}
