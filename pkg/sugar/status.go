package sugar

import (
	"encoding/json"
	"fmt"

	"github.com/librecrypt/walletlink/pkg/protocol"
)

// AppWalletStatus is the wallet state as the host application presents it.
// Disconnected is never reported by the device; it stands for any failure
// to obtain a status.
type AppWalletStatus int

const (
	Disconnected AppWalletStatus = iota
	Uninitialized
	Locked
	Unlocked
)

func (s AppWalletStatus) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Uninitialized:
		return "Uninitialized"
	case Locked:
		return "Locked"
	case Unlocked:
		return "Unlocked"
	default:
		return fmt.Sprintf("AppWalletStatus(%d)", int(s))
	}
}

func (s AppWalletStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *AppWalletStatus) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}

	for _, v := range []AppWalletStatus{Disconnected, Uninitialized, Locked, Unlocked} {
		if v.String() == name {
			*s = v
			return nil
		}
	}

	return fmt.Errorf("unknown wallet status %q", name)
}

// FromWalletStatus maps a device-reported state; unknown values are
// treated as Disconnected.
func FromWalletStatus(status protocol.WalletStatus) AppWalletStatus {
	switch status {
	case protocol.WalletStatusUninitialized:
		return Uninitialized
	case protocol.WalletStatusLocked:
		return Locked
	case protocol.WalletStatusUnlocked:
		return Unlocked
	default:
		return Disconnected
	}
}
