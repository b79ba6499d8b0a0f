package wallet

import "errors"

var (
	ErrInvalidVersion      = errors.New("wallet: invalid version data")
	ErrEmptyStatus         = errors.New("wallet: no status data")
	ErrUnknownWalletStatus = errors.New("wallet: unknown wallet status")
	ErrInvalidEncoding     = errors.New("wallet: invalid address encoding")
	ErrAddressTooLong      = errors.New("wallet: destination address too long")
)
