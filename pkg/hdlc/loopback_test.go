package hdlc

import (
	"sync"
	"time"
)

// loopbackTransport is an in-memory Transport used only by this
// package's tests: a virtual null-modem cable connecting two IO cores so
// session behavior can be exercised without a real serial port.
type loopbackTransport struct {
	out chan byte
	in  chan byte

	mu      sync.Mutex
	pending []byte
}

// newLoopbackPair returns two Transports wired to each other.
func newLoopbackPair(bufSize int) (a, b *loopbackTransport) {
	ab := make(chan byte, bufSize)
	ba := make(chan byte, bufSize)
	a = &loopbackTransport{out: ab, in: ba}
	b = &loopbackTransport{out: ba, in: ab}
	return
}

func (t *loopbackTransport) Write(data []byte) (int, error) {
	for _, b := range data {
		t.out <- b
	}
	return len(data), nil
}

func (t *loopbackTransport) ReadOne() (byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) > 0 {
		b := t.pending[0]
		t.pending = t.pending[1:]
		return b, true, nil
	}
	select {
	case b := <-t.in:
		return b, true, nil
	default:
		return 0, false, nil
	}
}

func (t *loopbackTransport) WaitReadable() bool {
	t.mu.Lock()
	if len(t.pending) > 0 {
		t.mu.Unlock()
		return true
	}
	t.mu.Unlock()

	select {
	case b := <-t.in:
		t.mu.Lock()
		t.pending = append(t.pending, b)
		t.mu.Unlock()
		return true
	case <-time.After(20 * time.Millisecond):
		return false
	}
}

func (t *loopbackTransport) Flush() error {
	t.mu.Lock()
	t.pending = nil
	t.mu.Unlock()
	for {
		select {
		case <-t.in:
		default:
			return nil
		}
	}
}
