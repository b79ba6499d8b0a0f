// Package config loads walletlink settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/librecrypt/walletlink/pkg/options"
	"github.com/librecrypt/walletlink/pkg/protocol"
	"github.com/librecrypt/walletlink/pkg/serialport"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Port                string
	BaudRate            int
	ReadTimeout         time.Duration
	PermissiveDiscovery bool
	LogLevel            slog.Level
	// Transcript is a file path that receives a CBOR capture of the link.
	Transcript string
	AllowList  []serialport.USBID
}

type allowEntry struct {
	VID string `toml:"vid"`
	PID string `toml:"pid"`
}

type fileConfig struct {
	Port                string       `toml:"port"`
	BaudRate            int          `toml:"baud_rate"`
	ReadTimeout         string       `toml:"read_timeout"`
	PermissiveDiscovery bool         `toml:"permissive_discovery"`
	LogLevel            string       `toml:"log_level"`
	Transcript          string       `toml:"transcript"`
	Allow               []allowEntry `toml:"allow"`
}

func Default() Config {
	return Config{
		BaudRate:    protocol.DEFAULT_BAUD_RATE,
		ReadTimeout: protocol.DEFAULT_READ_TIMEOUT_MS * time.Millisecond,
		LogLevel:    slog.LevelInfo,
		AllowList:   serialport.DefaultAllowList,
	}
}

// Load reads path on top of Default. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return fromFile(raw, meta)
}

// Parse is Load for an in-memory document.
func Parse(doc string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(doc, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return fromFile(raw, meta)
}

func fromFile(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := Default()

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}

	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}

	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if meta.IsDefined("permissive_discovery") {
		cfg.PermissiveDiscovery = raw.PermissiveDiscovery
	}

	if meta.IsDefined("log_level") {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw.LogLevel))); err != nil {
			return Config{}, fmt.Errorf("parse log_level: %w", err)
		}
	}

	if meta.IsDefined("transcript") {
		cfg.Transcript = strings.TrimSpace(raw.Transcript)
	}

	if meta.IsDefined("allow") {
		cfg.AllowList = make([]serialport.USBID, 0, len(raw.Allow))
		for _, entry := range raw.Allow {
			id, err := serialport.ParseUSBID(strings.TrimSpace(entry.VID) + ":" + strings.TrimSpace(entry.PID))
			if err != nil {
				return Config{}, fmt.Errorf("parse allow entry: %w", err)
			}
			cfg.AllowList = append(cfg.AllowList, id)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("%w: baud_rate must be positive, got %d", ErrInvalidConfig, c.BaudRate)
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: read_timeout must be positive, got %s", ErrInvalidConfig, c.ReadTimeout)
	}

	if len(c.AllowList) == 0 && !c.PermissiveDiscovery && c.Port == "" {
		return fmt.Errorf("%w: empty allow list needs port or permissive_discovery", ErrInvalidConfig)
	}

	return nil
}

// Options translates the configuration for device.NewManager and friends.
// The transcript file is left to the caller to open.
func (c Config) Options(logger *slog.Logger) []options.Option {
	opts := []options.Option{
		options.WithLogger(logger),
		options.WithBaudRate(c.BaudRate),
		options.WithReadTimeout(c.ReadTimeout),
		options.WithAllowList(c.AllowList...),
	}

	if c.Port != "" {
		opts = append(opts, options.WithPort(c.Port))
	}

	if c.PermissiveDiscovery {
		opts = append(opts, options.WithPermissiveDiscovery())
	}

	return opts
}
