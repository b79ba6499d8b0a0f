package transcript

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/samber/lo"
)

type exchange struct {
	request  []byte
	response []byte
}

// ReplayPort plays a recorded session back: every write must match the next
// recorded request and makes the recorded response readable.
type ReplayPort struct {
	mu        sync.Mutex
	exchanges []exchange
	next      int
	pending   []byte
	timeout   time.Duration
	closed    bool
}

// NewReplayPort groups records into request/response pairs. Consecutive
// chunks in the same direction are joined.
func NewReplayPort(records []*Record) *ReplayPort {
	exchanges := make([]exchange, 0)
	for _, rec := range records {
		switch rec.Direction {
		case DirectionTX:
			if len(exchanges) == 0 || len(exchanges[len(exchanges)-1].response) > 0 {
				exchanges = append(exchanges, exchange{})
			}
			last := &exchanges[len(exchanges)-1]
			last.request = append(last.request, rec.Data...)
		case DirectionRX:
			// Input received before any request was stale and got discarded live.
			if len(exchanges) == 0 {
				continue
			}
			last := &exchanges[len(exchanges)-1]
			last.response = append(last.response, rec.Data...)
		}
	}

	return &ReplayPort{
		exchanges: exchanges,
		timeout:   10 * time.Millisecond,
	}
}

// Remaining returns how many recorded exchanges have not been replayed.
func (p *ReplayPort) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.exchanges) - p.next
}

// Requests returns the recorded request frames in order.
func (p *ReplayPort) Requests() [][]byte {
	return lo.Map(p.exchanges, func(e exchange, _ int) []byte {
		return e.request
	})
}

func (p *ReplayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if p.next >= len(p.exchanges) || !bytes.Equal(p.exchanges[p.next].request, b) {
		return 0, ErrReplayMismatch
	}

	p.pending = append(p.pending, p.exchanges[p.next].response...)
	p.next++

	return len(b), nil
}

func (p *ReplayPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(p.pending) == 0 {
		timeout := p.timeout
		p.mu.Unlock()
		time.Sleep(timeout)
		return 0, nil
	}
	defer p.mu.Unlock()

	n := copy(b, p.pending)
	p.pending = p.pending[n:]

	return n, nil
}

func (p *ReplayPort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = nil
	return nil
}

func (p *ReplayPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timeout = t
	return nil
}

func (p *ReplayPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}
