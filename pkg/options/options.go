package options

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/librecrypt/walletlink/pkg/protocol"
	"github.com/librecrypt/walletlink/pkg/serialport"
)

type Options struct {
	Logger  *slog.Logger
	EncMode cbor.EncMode
	Context context.Context

	// Port skips discovery and always uses the named port.
	Port        string
	BaudRate    int
	ReadTimeout time.Duration

	// AllowList is the set of USB identities discovery trusts.
	AllowList []serialport.USBID
	// PermissiveDiscovery falls back to the COM*/ttyACM* name heuristic.
	PermissiveDiscovery bool

	Opener     serialport.OpenFunc
	Enumerator serialport.EnumerateFunc

	// Transcript, when set, receives a CBOR record of every frame on the link.
	Transcript io.Writer
}

type Option func(*Options)

func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func WithEncMode(encMode cbor.EncMode) Option {
	return func(opts *Options) {
		opts.EncMode = encMode
	}
}

func WithContext(ctx context.Context) Option {
	return func(opts *Options) {
		opts.Context = ctx
	}
}

func WithPort(name string) Option {
	return func(opts *Options) {
		opts.Port = name
	}
}

func WithBaudRate(baudRate int) Option {
	return func(opts *Options) {
		if baudRate > 0 {
			opts.BaudRate = baudRate
		}
	}
}

func WithReadTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		if timeout > 0 {
			opts.ReadTimeout = timeout
		}
	}
}

func WithAllowList(ids ...serialport.USBID) Option {
	return func(opts *Options) {
		opts.AllowList = ids
	}
}

func WithPermissiveDiscovery() Option {
	return func(opts *Options) {
		opts.PermissiveDiscovery = true
	}
}

func WithOpener(open serialport.OpenFunc) Option {
	return func(opts *Options) {
		opts.Opener = open
	}
}

func WithEnumerator(enumerate serialport.EnumerateFunc) Option {
	return func(opts *Options) {
		opts.Enumerator = enumerate
	}
}

func WithTranscript(w io.Writer) Option {
	return func(opts *Options) {
		opts.Transcript = w
	}
}

func NewOptions(opts ...Option) *Options {
	encMode, _ := cbor.CoreDetEncOptions().EncMode()
	oo := &Options{
		Logger:      slog.Default(),
		EncMode:     encMode,
		Context:     context.Background(),
		BaudRate:    protocol.DEFAULT_BAUD_RATE,
		ReadTimeout: protocol.DEFAULT_READ_TIMEOUT_MS * time.Millisecond,
		AllowList:   serialport.DefaultAllowList,
		Opener:      serialport.Open,
		Enumerator:  serialport.Enumerate,
	}

	for _, opt := range opts {
		opt(oo)
	}

	return oo
}
