package protocol

// VersionInfo represents the CMD_GET_VERSION response.
type VersionInfo struct {
	Major         uint8  `json:"major"`
	Minor         uint8  `json:"minor"`
	Patch         uint8  `json:"patch"`
	CryptoVersion string `json:"crypto_version"`
}

// WalletStatus is the wallet state reported by the device in the first byte
// of a CMD_GET_STATUS response.
type WalletStatus byte

const (
	WalletStatusUninitialized WalletStatus = 0
	WalletStatusLocked        WalletStatus = 1
	WalletStatusUnlocked      WalletStatus = 2
)

// Valid reports whether the device can legitimately emit s.
func (s WalletStatus) Valid() bool {
	return s <= WalletStatusUnlocked
}
