package hdlc

import (
	"context"
	"sync"
	"time"
)

// defaultResponseTimeout is the default time recv_frame waits for a
// complete, valid frame before giving up, per §4.4.
const defaultResponseTimeout = 2 * time.Second

// pollInterval is how long RecvFrame sleeps between polls of the in
// pipe's frame count, so the protocol loop doesn't spin a CPU core while
// waiting, per §5 ("Implementations SHOULD yield between polls").
const pollInterval = 2 * time.Millisecond

// Transport is the narrow byte-level capability the IO core needs from
// whatever carries bytes on and off the wire (typically a serial port).
// It is the only collaborator the core depends on for physical I/O; see
// spec.md §6. Implementations live outside this package (pkg/serialport
// in this repository).
type Transport interface {
	// Write writes as many bytes of data as possible and returns how
	// many were written.
	Write(data []byte) (int, error)
	// ReadOne performs a non-blocking single-byte read. It reports
	// whether a byte was available.
	ReadOne() (b byte, ok bool, err error)
	// WaitReadable blocks until at least one byte is available to read
	// or a driver-level timeout expires. It returns false on timeout.
	WaitReadable() bool
	// Flush discards any buffered bytes in both directions.
	Flush() error
}

// IO is the coordinator (C4) owning the in/out FramePipes and a
// configurable response timeout. Grounded on
// original_source/hdlc/include/hdlc/io.h's base_io.
type IO struct {
	outPipe *FramePipe
	inPipe  *FramePipe

	responseTimeout time.Duration

	transport Transport

	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	Logger func(format string, args ...interface{}) // optional; nil is silent
}

// NewIO constructs an IO core with the given pipe capacity (applied to
// both the in and out pipes) and transport. Use SetResponseTimeout to
// override the 2-second default.
func NewIO(bufferSize int, transport Transport) *IO {
	return &IO{
		outPipe:         NewFramePipe(bufferSize),
		inPipe:          NewFramePipe(bufferSize),
		responseTimeout: defaultResponseTimeout,
		transport:       transport,
		stop:            make(chan struct{}),
	}
}

// SetResponseTimeout overrides the default 2-second recv_frame timeout.
func (io *IO) SetResponseTimeout(d time.Duration) { io.responseTimeout = d }

// MaxSendSize returns the out pipe's capacity.
func (io *IO) MaxSendSize() int { return io.outPipe.Capacity() }

// MaxRecvSize returns the in pipe's capacity.
func (io *IO) MaxRecvSize() int { return io.inPipe.Capacity() }

// SendFrame serializes and byte-stuffs f and atomically appends it to
// the out pipe. It fails if there isn't enough space.
func (io *IO) SendFrame(f Frame) bool {
	raw := Escape(Serialize(f))
	ok := io.outPipe.WriteBytes(raw)
	if !ok {
		io.logf("hdlc: send_frame dropped, out pipe has %d bytes free, need %d", io.outPipe.Space(), len(raw))
	}
	return ok
}

// RecvFrame blocks (busy-polling frame_count with a small sleep between
// attempts, per §5) until a complete valid frame arrives or the response
// timeout expires. On timeout it clears any partial frame from the in
// pipe so the next receive starts resynchronized, and returns false.
func (io *IO) RecvFrame() (Frame, bool) {
	deadline := time.Now().Add(io.responseTimeout)

	for {
		if io.inPipe.FrameCount() >= 1 {
			raw := io.inPipe.ReadFrame()
			f := Deserialize(Descape(raw))
			if !f.IsUnset() {
				return f, true
			}
			// Invalid frame: it has already been removed from the pipe
			// (§4.4's S1 state machine); keep waiting for the deadline.
			continue
		}
		if time.Now().After(deadline) {
			io.inPipe.ClearPartial()
			return Frame{}, false
		}
		time.Sleep(pollInterval)
	}
}

// InByte pushes a single byte into the in pipe from the reader side. It
// reports whether the pipe had space.
func (io *IO) InByte(b byte) bool {
	if io.inPipe.Full() {
		return false
	}
	io.inPipe.Write(b)
	return true
}

// OutByte pops the next byte from the out pipe for the writer side. It
// reports whether a byte was available.
func (io *IO) OutByte() (byte, bool) {
	if io.outPipe.Empty() {
		return 0, false
	}
	return io.outPipe.Read(), true
}

// Reset clears both pipes.
func (io *IO) Reset() {
	io.inPipe.Clear()
	io.outPipe.Clear()
}

// Start spawns the reader and writer pump goroutines (§5's Reader and
// Writer logical activities) that drive bytes between the transport and
// the pipes. Grounded on the teacher's usock.readLoop byte-at-a-time
// pattern (pkg/usock/usock.go).
func (io *IO) Start() {
	io.wg.Add(2)
	go io.readLoop()
	go io.writeLoop()
}

// Close stops the pump goroutines and waits for them to exit.
func (io *IO) Close() {
	io.once.Do(func() { close(io.stop) })
	io.wg.Wait()
}

func (io *IO) readLoop() {
	defer io.wg.Done()
	for {
		select {
		case <-io.stop:
			return
		default:
		}
		if !io.transport.WaitReadable() {
			continue
		}
		for {
			b, ok, err := io.transport.ReadOne()
			if err != nil {
				io.logf("hdlc: transport read error: %v", err)
				break
			}
			if !ok {
				break
			}
			if !io.InByte(b) {
				io.logf("hdlc: in pipe full, dropping byte 0x%02x", b)
			}
		}
	}
}

func (io *IO) writeLoop() {
	defer io.wg.Done()
	for {
		select {
		case <-io.stop:
			return
		default:
		}
		b, ok := io.OutByte()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		if _, err := io.transport.Write([]byte{b}); err != nil {
			io.logf("hdlc: transport write error: %v", err)
		}
	}
}

// Drain pumps both pipes against the transport, synchronously, until the
// out pipe is empty and the in pipe has no more immediately-readable
// bytes, or ctx is done. It is the single-threaded alternative to
// Start/Close for callers (e.g. a CLI demo) that don't want separate
// reader/writer goroutines, grounded on
// original_source/hdlc/include/hdlc/blocking_connection_simple.h.
func (io *IO) Drain(ctx context.Context) {
	for !io.outPipe.Empty() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		b, ok := io.OutByte()
		if !ok {
			break
		}
		if _, err := io.transport.Write([]byte{b}); err != nil {
			io.logf("hdlc: drain write error: %v", err)
			break
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		b, ok, err := io.transport.ReadOne()
		if err != nil {
			io.logf("hdlc: drain read error: %v", err)
			return
		}
		if !ok {
			return
		}
		io.InByte(b)
	}
}

func (io *IO) logf(format string, args ...interface{}) {
	if io.Logger != nil {
		io.Logger(format, args...)
	}
}
