package hdlc

import (
	"bytes"
	"fmt"
)

// Frame is a single HDLC frame held in memory. It is a short-lived value
// type: produced by a constructor, handed to the serializer or session
// layer, then discarded.
type Frame struct {
	typ     FrameType
	address byte
	poll    bool // also called "final" on responses
	recvSeq byte // N(R), 3-bit modulo-8
	sendSeq byte // N(S), 3-bit modulo-8; only meaningful when typ == I
	payload []byte
}

// NewUnsetFrame returns the sentinel frame produced when validation
// fails. It carries no other meaningful field.
func NewUnsetFrame() Frame {
	return Frame{typ: UNSET}
}

// NewFrame constructs a frame with no payload.
func NewFrame(typ FrameType, address byte, poll bool) Frame {
	return Frame{typ: typ, address: address, poll: poll}
}

// NewPayloadFrame constructs a frame carrying a copy of payload. payload
// is only meaningful when typ.IsPayloadType(); it is still copied and
// stored for non-payload types; callers are expected to only materialize
// it for payload-bearing ones, per §4.1.
func NewPayloadFrame(typ FrameType, address byte, poll bool, payload []byte) Frame {
	f := Frame{typ: typ, address: address, poll: poll}
	if len(payload) > 0 {
		f.payload = append([]byte(nil), payload...)
	}
	return f
}

// Type returns the frame's type.
func (f Frame) Type() FrameType { return f.typ }

// Address returns the frame's address field.
func (f Frame) Address() byte { return f.address }

// Poll returns the poll/final bit.
func (f Frame) Poll() bool { return f.poll }

// Final is an alias for Poll, used on responses for readability at call
// sites that only ever see the bit on a reply.
func (f Frame) Final() bool { return f.poll }

// RecvSeq returns N(R). Meaningless on unnumbered frames.
func (f Frame) RecvSeq() byte { return f.recvSeq }

// SendSeq returns N(S). Only meaningful when Type() == I.
func (f Frame) SendSeq() byte { return f.sendSeq }

// Payload returns the frame's payload. The returned slice aliases the
// frame's internal storage and must not be mutated by the caller.
func (f Frame) Payload() []byte { return f.payload }

// PayloadSize returns len(Payload()).
func (f Frame) PayloadSize() int { return len(f.payload) }

// SetAddress sets the frame's address.
func (f *Frame) SetAddress(address byte) { f.address = address }

// SetPoll sets the poll/final bit.
func (f *Frame) SetPoll(poll bool) { f.poll = poll }

// SetRecvSeq sets N(R), masking to the low 3 bits (modulo 8).
func (f *Frame) SetRecvSeq(seq byte) { f.recvSeq = seq & 0x07 }

// SetSendSeq sets N(S), masking to the low 3 bits (modulo 8).
func (f *Frame) SetSendSeq(seq byte) { f.sendSeq = seq & 0x07 }

// IsInformation reports whether this is an Information frame.
func (f Frame) IsInformation() bool { return f.typ.IsInformation() }

// IsSupervisory reports whether this is a supervisory (RR/RNR/REJ/SREJ)
// frame.
func (f Frame) IsSupervisory() bool { return f.typ.IsSupervisory() }

// IsUnnumbered reports whether this is an unnumbered frame.
func (f Frame) IsUnnumbered() bool { return f.typ.IsUnnumbered() }

// IsPayloadType reports whether this frame's type may carry a payload
// (I, UI, or TEST).
func (f Frame) IsPayloadType() bool { return f.typ.IsPayloadType() }

// IsUnset reports whether this is the UNSET sentinel produced by a
// failed decode.
func (f Frame) IsUnset() bool { return f.typ == UNSET }

// Equal reports whether f and other are equal per §4.1: type, poll,
// effective RecvSeq (ignored for unnumbered frames), effective SendSeq
// (only compared for Information frames), and payload all agree.
func (f Frame) Equal(other Frame) bool {
	if f.typ != other.typ {
		return false
	}
	if f.poll != other.poll {
		return false
	}
	if !f.typ.IsUnnumbered() && f.recvSeq != other.recvSeq {
		return false
	}
	if f.typ == I && f.sendSeq != other.sendSeq {
		return false
	}
	return bytes.Equal(f.payload, other.payload)
}

// String renders a log-friendly summary, e.g. "I(addr=0x02 poll N(S)=2
// N(R)=1 len=6)".
func (f Frame) String() string {
	flag := ""
	if f.poll {
		flag = " poll"
	}
	seqs := ""
	switch {
	case f.typ == I:
		seqs = fmt.Sprintf(" N(S)=%d N(R)=%d", f.sendSeq, f.recvSeq)
	case f.typ.IsSupervisory():
		seqs = fmt.Sprintf(" N(R)=%d", f.recvSeq)
	}
	return fmt.Sprintf("%s(addr=0x%02x%s%s len=%d)", f.typ, f.address, flag, seqs, len(f.payload))
}
