// Package serialport adapts a physical serial line to the hdlc.Transport
// capability set using go.bug.st/serial.
package serialport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// readChunk is the scratch buffer size used when draining the OS read
// queue after WaitReadable unblocks.
const readChunk = 256

// defaultReadTimeout bounds how long a single blocking Read on the
// underlying port call waits before WaitReadable reports "not yet".
const defaultReadTimeout = 50 * time.Millisecond

// Port adapts a go.bug.st/serial.Port to hdlc.Transport. Grounded on the
// teacher's USOCK port lifecycle (pkg/usock/usock.go's New/Write/readLoop:
// open, blocking byte-at-a-time read, mutex-guarded state), adapted from
// github.com/tarm/serial to go.bug.st/serial.
type Port struct {
	port serial.Port

	mu      sync.Mutex
	pending []byte
}

// Open opens device at baud with 8N1 framing, matching the teacher's
// serial.Config (Size: 8, Parity: None, StopBits: 1).
func Open(device string, baud int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", device, err)
	}
	if err := port.SetReadTimeout(defaultReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serialport: set read timeout on %s: %w", device, err)
	}

	return &Port{port: port}, nil
}

// Write writes data to the port.
func (p *Port) Write(data []byte) (int, error) {
	return p.port.Write(data)
}

// WaitReadable blocks on the underlying port (bounded by the configured
// read timeout) until at least one byte is available, buffering whatever
// it reads for subsequent ReadOne calls. It reports false on timeout.
func (p *Port) WaitReadable() bool {
	p.mu.Lock()
	if len(p.pending) > 0 {
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()

	buf := make([]byte, readChunk)
	n, err := p.port.Read(buf)
	if err != nil || n == 0 {
		return false
	}

	p.mu.Lock()
	p.pending = append(p.pending, buf[:n]...)
	p.mu.Unlock()
	return true
}

// ReadOne pops one buffered byte. It never itself blocks on the port;
// callers drive blocking via WaitReadable.
func (p *Port) ReadOne() (byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return 0, false, nil
	}
	b := p.pending[0]
	p.pending = p.pending[1:]
	return b, true, nil
}

// Flush discards any buffered input/output on the port.
func (p *Port) Flush() error {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()

	if err := p.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("serialport: reset input buffer: %w", err)
	}
	if err := p.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("serialport: reset output buffer: %w", err)
	}
	return nil
}

// Close closes the underlying port.
func (p *Port) Close() error {
	return p.port.Close()
}
