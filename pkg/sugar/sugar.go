package sugar

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/librecrypt/walletlink/pkg/device"
	"github.com/librecrypt/walletlink/pkg/options"
	"github.com/librecrypt/walletlink/pkg/protocol"
	"github.com/librecrypt/walletlink/pkg/serialport"
	"github.com/librecrypt/walletlink/pkg/wallet"
)

var ErrNoWalletSelected = errors.New("sugar: no wallet answered")

// EnumerateWalletPorts lists the serial ports whose USB identity is on the
// allow-list.
func EnumerateWalletPorts(opts ...options.Option) ([]*serialport.Info, error) {
	return device.NewManager(opts...).Ports()
}

// Wallet is the host-facing surface of a single connected wallet. Every
// method is safe to call from multiple goroutines; exchanges are serialized
// by the underlying device.Manager.
type Wallet struct {
	mgr    *device.Manager
	client *wallet.Client
	logger *slog.Logger
}

// New returns a Wallet that connects lazily on first use.
func New(opts ...options.Option) *Wallet {
	oo := options.NewOptions(opts...)

	return &Wallet{
		mgr:    device.NewManager(opts...),
		client: wallet.NewClient(opts...),
		logger: oo.Logger,
	}
}

// Manager exposes the underlying connection manager.
func (w *Wallet) Manager() *device.Manager {
	return w.mgr
}

// CheckConnection rediscovers the wallet, reopens its port and pings it.
// A missing or silent device is reported as false, never as an error.
func (w *Wallet) CheckConnection() (bool, error) {
	info, err := w.mgr.DiscoverAndConnect()
	if err != nil {
		w.logger.Debug("wallet not reachable", "err", err)
		return false, nil
	}

	if err := w.client.Ping(w.mgr); err != nil {
		w.logger.Debug("wallet did not answer ping", "port", info.Name, "err", err)
		return false, nil
	}

	return true, nil
}

func (w *Wallet) GetFirmwareVersion() (*protocol.VersionInfo, error) {
	if err := w.ensureConnected(); err != nil {
		return nil, err
	}

	return w.client.GetVersion(w.mgr)
}

// GetWalletStatus never fails: anything that prevents reading a known
// status from the device yields Disconnected.
func (w *Wallet) GetWalletStatus() AppWalletStatus {
	if err := w.ensureConnected(); err != nil {
		w.logger.Debug("wallet status unavailable", "err", err)
		return Disconnected
	}

	status, err := w.client.GetStatus(w.mgr)
	if err != nil {
		w.logger.Debug("wallet status unavailable", "err", err)
		return Disconnected
	}

	return FromWalletStatus(status)
}

func (w *Wallet) CreateWallet(pin string) (bool, error) {
	if err := w.ensureConnected(); err != nil {
		return false, err
	}

	return w.client.CreateWallet(w.mgr, pin)
}

func (w *Wallet) UnlockWallet(pin string) (bool, error) {
	if err := w.ensureConnected(); err != nil {
		return false, err
	}

	return w.client.Unlock(w.mgr, pin)
}

func (w *Wallet) LockWallet() error {
	if err := w.ensureConnected(); err != nil {
		return err
	}

	return w.client.Lock(w.mgr)
}

func (w *Wallet) GetAddress(accountIndex uint32) (string, error) {
	if err := w.ensureConnected(); err != nil {
		return "", err
	}

	return w.client.GetAddress(w.mgr, accountIndex)
}

func (w *Wallet) SignTransaction(accountIndex uint32, toAddress string, amount uint64, fee uint64) (string, error) {
	// Reject an oversized address without touching the port.
	if len(toAddress) > wallet.MaxAddressLength {
		return w.client.SignTransaction(w.mgr, accountIndex, toAddress, amount, fee)
	}

	if err := w.ensureConnected(); err != nil {
		return "", err
	}

	return w.client.SignTransaction(w.mgr, accountIndex, toAddress, amount, fee)
}

func (w *Wallet) Close() error {
	return w.mgr.Close()
}

func (w *Wallet) ensureConnected() error {
	if w.mgr.Connected() {
		return nil
	}

	_, err := w.mgr.DiscoverAndConnect()
	return err
}

// SelectWallet pings every allow-listed port at once and keeps the first
// wallet that answers; the others are closed. Useful when several devices
// with the same USB identity are plugged in.
func SelectWallet(opts ...options.Option) (*Wallet, error) {
	ports, err := EnumerateWalletPorts(opts...)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, device.ErrDiscoveryFailed
	}

	oo := options.NewOptions(opts...)
	ctx, cancel := context.WithCancel(oo.Context)
	defer cancel()

	selection := make(chan mo.Either[*Wallet, error], len(ports))

	var wg sync.WaitGroup
	var once sync.Once
	candidates := make([]*Wallet, 0, len(ports))
	errs := make([]error, len(ports))

	for i, info := range ports {
		w := New(append(opts, options.WithPort(info.Name))...)
		candidates = append(candidates, w)

		wg.Add(1)
		go func(i int, w *Wallet) {
			defer wg.Done()

			if err := w.mgr.Connect(info.Name); err != nil {
				errs[i] = err
				return
			}
			if err := w.client.Ping(w.mgr); err != nil {
				errs[i] = err
				return
			}

			if ctx.Err() == nil {
				once.Do(func() {
					cancel()
					selection <- mo.Left[*Wallet, error](w)
				})
			}
		}(i, w)
	}

	wg.Wait()

	once.Do(func() {
		err := errors.Join(lo.Filter(errs, func(err error, _ int) bool { return err != nil })...)
		selection <- mo.Right[*Wallet, error](errors.Join(ErrNoWalletSelected, err))
	})

	sel := <-selection
	if err, ok := sel.Right(); ok {
		for _, w := range candidates {
			_ = w.Close()
		}
		return nil, err
	}
	selected := sel.MustLeft()

	for _, w := range candidates {
		if w == selected {
			continue
		}
		if err := w.Close(); err != nil {
			w.logger.Debug("cannot close unselected port", "err", err)
		}
	}

	return selected, nil
}
