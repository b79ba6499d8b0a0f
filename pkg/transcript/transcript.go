// Package transcript captures the bytes crossing a serial link as a CBOR
// sequence and replays a captured session as a fake port.
package transcript

import (
	"errors"
	"io"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/librecrypt/walletlink/pkg/serialport"
)

var ErrReplayMismatch = errors.New("transcript: request does not match recorded session")

type Direction uint8

const (
	DirectionTX Direction = iota + 1
	DirectionRX
)

func (d Direction) String() string {
	switch d {
	case DirectionTX:
		return "tx"
	case DirectionRX:
		return "rx"
	default:
		return "unknown"
	}
}

// Record is one chunk of bytes written to or read from the port.
type Record struct {
	Time      time.Time `cbor:"1,keyasint"`
	Direction Direction `cbor:"2,keyasint"`
	Data      []byte    `cbor:"3,keyasint"`
}

// Recorder is a serialport.Port that logs every chunk passing through it.
// Encoding failures never disturb the link; the first one is kept in Err.
type Recorder struct {
	serialport.Port

	mu  sync.Mutex
	enc *cbor.Encoder
	err error
}

func NewRecorder(port serialport.Port, w io.Writer, encMode cbor.EncMode) *Recorder {
	return &Recorder{
		Port: port,
		enc:  encMode.NewEncoder(w),
	}
}

func (r *Recorder) Write(p []byte) (int, error) {
	n, err := r.Port.Write(p)
	if n > 0 {
		r.record(DirectionTX, p[:n])
	}
	return n, err
}

func (r *Recorder) Read(p []byte) (int, error) {
	n, err := r.Port.Read(p)
	if n > 0 {
		r.record(DirectionRX, p[:n])
	}
	return n, err
}

// Err returns the first encoding error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.err
}

func (r *Recorder) record(dir Direction, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}

	r.err = r.enc.Encode(&Record{
		Time:      time.Now(),
		Direction: dir,
		Data:      slices.Clone(data),
	})
}

// Decode iterates over the records of a CBOR sequence.
func Decode(r io.Reader) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		dec := cbor.NewDecoder(r)
		for {
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, err)
				}
				return
			}

			if !yield(&rec, nil) {
				return
			}
		}
	}
}

// ReadAll decodes every record of a CBOR sequence.
func ReadAll(r io.Reader) ([]*Record, error) {
	records := make([]*Record, 0)
	for rec, err := range Decode(r) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}
