package device

import (
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/librecrypt/walletlink/pkg/serialport"
)

// Ports lists every enumerated port whose USB identity is on the allow-list.
func (m *Manager) Ports() ([]*serialport.Info, error) {
	all, err := m.enumerateAll()
	if err != nil {
		return nil, err
	}

	return lo.Filter(all, func(info *serialport.Info, _ int) bool {
		return serialport.Allowed(info, m.allowList)
	}), nil
}

// Discover picks the port the wallet is attached to.
//
// An explicitly configured port wins. Otherwise the first port whose USB
// vendor/product ID is on the allow-list is returned. Only when permissive
// discovery is enabled does it fall back to the first COM*/ttyACM* port,
// which may well be an unrelated serial device.
func (m *Manager) Discover() mo.Option[*serialport.Info] {
	if m.fixedPort != "" {
		return mo.Some(&serialport.Info{Name: m.fixedPort})
	}

	all, err := m.enumerateAll()
	if err != nil {
		m.logger.Warn("cannot enumerate serial ports", "err", err)
		return mo.None[*serialport.Info]()
	}

	if info, ok := lo.Find(all, func(info *serialport.Info) bool {
		return serialport.Allowed(info, m.allowList)
	}); ok {
		m.logger.Debug("wallet port found", "port", info.Name, "product", info.Product)
		return mo.Some(info)
	}

	if m.permissive {
		if info, ok := lo.Find(all, func(info *serialport.Info) bool {
			return serialport.LooksLikeCDC(info.Name)
		}); ok {
			m.logger.Warn("wallet port matched by name only, device identity not verified", "port", info.Name)
			return mo.Some(info)
		}
	}

	m.logger.Debug("no wallet port found", "ports", len(all))
	return mo.None[*serialport.Info]()
}

// DiscoverAndConnect runs Discover and opens the port it returns,
// replacing any open handle.
func (m *Manager) DiscoverAndConnect() (*serialport.Info, error) {
	info, ok := m.Discover().Get()
	if !ok {
		allowed := lo.Map(m.allowList, func(id serialport.USBID, _ int) string {
			return id.String()
		})
		return nil, newErrorMessage(ErrDiscoveryFailed, "allowed usb ids: "+strings.Join(allowed, ", "))
	}

	if err := m.Connect(info.Name); err != nil {
		return nil, err
	}

	return info, nil
}

func (m *Manager) enumerateAll() ([]*serialport.Info, error) {
	all := make([]*serialport.Info, 0)
	for info, err := range m.enumerate(m.ctx) {
		if err != nil {
			return nil, err
		}
		all = append(all, info)
	}

	return all, nil
}
