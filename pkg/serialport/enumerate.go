package serialport

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.bug.st/serial/enumerator"
)

// Info describes an enumerated serial port.
type Info struct {
	Name         string
	IsUSB        bool
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Product      string
}

// EnumerateFunc lists the serial ports visible to the host.
type EnumerateFunc func(ctx context.Context) iter.Seq2[*Info, error]

// Enumerate lists the serial ports of the host with their USB identity.
func Enumerate(ctx context.Context) iter.Seq2[*Info, error] {
	return func(yield func(*Info, error) bool) {
		ports, err := enumerator.GetDetailedPortsList()
		if err != nil {
			yield(nil, err)
			return
		}

		for _, p := range ports {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			if !yield(fromDetails(p), nil) {
				return
			}
		}
	}
}

// Static returns an EnumerateFunc yielding a fixed list of ports.
func Static(infos ...*Info) EnumerateFunc {
	return func(ctx context.Context) iter.Seq2[*Info, error] {
		return func(yield func(*Info, error) bool) {
			for _, info := range infos {
				if !yield(info, nil) {
					return
				}
			}
		}
	}
}

func fromDetails(p *enumerator.PortDetails) *Info {
	info := &Info{
		Name:         p.Name,
		IsUSB:        p.IsUSB,
		SerialNumber: p.SerialNumber,
		Product:      p.Product,
	}

	if p.IsUSB {
		// Unparseable IDs stay zero and never match an allow-list entry.
		info.VendorID = parseHexID(p.VID)
		info.ProductID = parseHexID(p.PID)
	}

	return info
}

func parseHexID(s string) uint16 {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x"), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

// USBID identifies a USB device by vendor and product ID.
type USBID struct {
	VendorID  uint16
	ProductID uint16
}

// DefaultAllowList holds the Raspberry Pi RP2040/RP2350 CDC identities the
// wallet firmware enumerates with.
var DefaultAllowList = []USBID{
	{VendorID: 0x2E8A, ProductID: 0x0009},
	{VendorID: 0x2E8A, ProductID: 0x000A},
	{VendorID: 0x2E8A, ProductID: 0x000C},
}

// ParseUSBID parses "VVVV:PPPP" (hexadecimal, optional 0x prefixes).
func ParseUSBID(s string) (USBID, error) {
	vid, pid, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return USBID{}, fmt.Errorf("serialport: invalid usb id %q, expected VID:PID", s)
	}

	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(vid), "0x"), 16, 16)
	if err != nil {
		return USBID{}, fmt.Errorf("serialport: invalid vendor id %q: %w", vid, err)
	}
	p, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(pid), "0x"), 16, 16)
	if err != nil {
		return USBID{}, fmt.Errorf("serialport: invalid product id %q: %w", pid, err)
	}

	return USBID{VendorID: uint16(v), ProductID: uint16(p)}, nil
}

func (id USBID) String() string {
	return fmt.Sprintf("%04X:%04X", id.VendorID, id.ProductID)
}

// Matches reports whether info is a USB port with this identity.
func (id USBID) Matches(info *Info) bool {
	return info != nil && info.IsUSB && info.VendorID == id.VendorID && info.ProductID == id.ProductID
}

// Allowed reports whether info matches any entry of allow.
func Allowed(info *Info, allow []USBID) bool {
	return lo.ContainsBy(allow, func(id USBID) bool {
		return id.Matches(info)
	})
}

// LooksLikeCDC is the coarse name heuristic: Windows COM ports and Linux
// ttyACM nodes. It carries no device identity.
func LooksLikeCDC(name string) bool {
	return strings.Contains(name, "COM") || strings.Contains(name, "ttyACM")
}
