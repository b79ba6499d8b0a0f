package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/samber/lo"

	"github.com/librecrypt/walletlink/internal/simulator"
	"github.com/librecrypt/walletlink/pkg/config"
	"github.com/librecrypt/walletlink/pkg/device"
	"github.com/librecrypt/walletlink/pkg/options"
	"github.com/librecrypt/walletlink/pkg/protocol"
	"github.com/librecrypt/walletlink/pkg/serialport"
	"github.com/librecrypt/walletlink/pkg/sugar"
	"github.com/librecrypt/walletlink/pkg/transcript"
)

const usage = `usage: walletctl [flags] <command> [args]

commands:
  ports                          list allow-listed serial ports
  ping                           check that a wallet answers
  version                        print the firmware version
  status                         print the wallet state
  create PIN                     provision a new wallet
  unlock PIN                     unlock the wallet
  lock                           lock the wallet
  address INDEX                  print the address of an account
  sign INDEX TO AMOUNT FEE       sign a transfer
  replay FILE                    resend the requests of a captured session

flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "walletctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("walletctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "path to a TOML configuration file")
	port := fs.String("port", "", "serial port to use instead of discovery")
	simulate := fs.Bool("simulate", false, "talk to an in-process simulated wallet")
	capture := fs.String("transcript", "", "write a CBOR capture of the serial link to this file")
	verbose := fs.Bool("v", false, "log frames at debug level")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *capture != "" {
		cfg.Transcript = *capture
	}

	lvl := new(slog.LevelVar)
	lvl.Set(cfg.LogLevel)
	if *verbose {
		lvl.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: lvl,
	}))

	opts := cfg.Options(logger)

	if *simulate {
		sim := simulator.New()
		opts = append(opts, options.WithOpener(sim.Open), options.WithEnumerator(sim.Enumerate))
	}

	if cfg.Transcript != "" {
		f, err := os.Create(cfg.Transcript)
		if err != nil {
			return fmt.Errorf("cannot create transcript: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		opts = append(opts, options.WithTranscript(f))
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]

	if cmd == "ports" {
		ports, err := sugar.EnumerateWalletPorts(opts...)
		if err != nil {
			return err
		}
		return printJSON(stdout, lo.Map(ports, func(info *serialport.Info, _ int) map[string]string {
			return map[string]string{
				"name":    info.Name,
				"usb_id":  serialport.USBID{VendorID: info.VendorID, ProductID: info.ProductID}.String(),
				"serial":  info.SerialNumber,
				"product": info.Product,
			}
		}))
	}

	if cmd == "replay" {
		if len(cmdArgs) != 1 {
			return errors.New("replay needs FILE")
		}
		return replay(cmdArgs[0], stdout, opts)
	}

	w := sugar.New(opts...)
	defer func() {
		_ = w.Close()
	}()

	result, err := dispatch(w, cmd, cmdArgs)
	if err != nil {
		return err
	}

	return printJSON(stdout, result)
}

func dispatch(w *sugar.Wallet, cmd string, args []string) (any, error) {
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s needs %d argument(s), got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "ping":
		ok, err := w.CheckConnection()
		return map[string]bool{"connected": ok}, err

	case "version":
		return w.GetFirmwareVersion()

	case "status":
		return map[string]sugar.AppWalletStatus{"status": w.GetWalletStatus()}, nil

	case "create":
		if err := need(1); err != nil {
			return nil, err
		}
		ok, err := w.CreateWallet(args[0])
		return map[string]bool{"created": ok}, err

	case "unlock":
		if err := need(1); err != nil {
			return nil, err
		}
		ok, err := w.UnlockWallet(args[0])
		return map[string]bool{"unlocked": ok}, err

	case "lock":
		return map[string]bool{"locked": true}, w.LockWallet()

	case "address":
		if err := need(1); err != nil {
			return nil, err
		}
		index, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid account index: %w", err)
		}
		addr, err := w.GetAddress(uint32(index))
		return map[string]any{"account": index, "address": addr}, err

	case "sign":
		if err := need(4); err != nil {
			return nil, err
		}
		index, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid account index: %w", err)
		}
		amount, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
		fee, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fee: %w", err)
		}
		sig, err := w.SignTransaction(uint32(index), args[1], amount, fee)
		return map[string]string{"signature": sig}, err

	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

type replayedExchange struct {
	Command  string `json:"command"`
	Request  string `json:"request"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// replay feeds the requests of a captured session back through a Manager
// whose port answers from the capture.
func replay(path string, stdout io.Writer, opts []options.Option) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	records, err := transcript.ReadAll(f)
	if err != nil {
		return err
	}

	port := transcript.NewReplayPort(records)
	requests := port.Requests()

	m := device.NewManager(append(opts,
		options.WithTranscript(nil),
		options.WithOpener(func(string, int) (serialport.Port, error) { return port, nil }),
	)...)
	if err := m.Connect(path); err != nil {
		return err
	}
	defer func() {
		_ = m.Close()
	}()

	results := make([]replayedExchange, 0, len(requests))
	for _, req := range requests {
		frame := protocol.Frame(req)
		ex := replayedExchange{
			Command: frame.Command().String(),
			Request: hex.EncodeToString(req),
		}

		_, payload, err := protocol.ParseResponse(req)
		if err != nil {
			ex.Error = err.Error()
			results = append(results, ex)
			continue
		}

		data, err := m.Exchange(frame.Command(), payload)
		if err != nil {
			ex.Error = err.Error()
		} else {
			ex.Response = hex.EncodeToString(data)
		}
		results = append(results, ex)
	}

	return printJSON(stdout, results)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
