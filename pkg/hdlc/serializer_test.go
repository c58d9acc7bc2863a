package hdlc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSerializeInformationFrame(t *testing.T) {
	f := NewPayloadFrame(I, 0x11, true, []byte{1, 2, 3, 0x7E, 0x7D, 4})
	f.SetRecvSeq(1)
	f.SetSendSeq(2)

	raw := Serialize(f)
	assert.Len(t, raw, 12)
	assert.Equal(t, byte(FrameBoundary), raw[0])
	assert.Equal(t, byte(FrameBoundary), raw[11])
	assert.Equal(t, byte(0x11), raw[1])
	assert.Equal(t, byte(0x34), raw[2])

	escaped := Escape(raw)
	assert.Len(t, escaped, 14)
	assert.Equal(t, []byte{EscapeByte, 0x5E}, escaped[6:8])
	assert.Equal(t, []byte{EscapeByte, 0x5D}, escaped[8:10])
}

func TestEncodeSupervisoryControlByte(t *testing.T) {
	f := NewFrame(RR, 0x05, true)
	f.SetRecvSeq(3)
	assert.Equal(t, byte(0x71), encodeControl(f))
}

func TestRoundTripThroughEscapeAndDeserialize(t *testing.T) {
	f := NewPayloadFrame(I, 0x11, true, []byte{1, 2, 3, 0x7E, 0x7D, 4})
	f.SetRecvSeq(1)
	f.SetSendSeq(2)

	wire := Escape(Serialize(f))
	got := Deserialize(Descape(wire))
	assert.True(t, f.Equal(got))
}

func TestDeserializeRejectsCorruptedFCS(t *testing.T) {
	f := NewPayloadFrame(I, 0x11, true, []byte{1, 2, 3})
	wire := Escape(Serialize(f))
	plain := Descape(wire)
	plain[3] ^= 0xFF // flip a byte inside the payload region

	got := Deserialize(plain)
	assert.True(t, got.IsUnset())
}

func TestDescapeDoesNotLeakStateAcrossCalls(t *testing.T) {
	// A trailing dangling escape byte in one call must not affect the next.
	first := Descape([]byte{0x01, EscapeByte})
	assert.Equal(t, []byte{0x01}, first)

	second := Descape([]byte{0x02})
	assert.Equal(t, []byte{0x02}, second)
}

func genFrame(t *rapid.T) Frame {
	typ := FrameType(rapid.SampledFrom([]int{
		int(I), int(RR), int(RNR), int(REJ), int(SREJ),
		int(UI), int(SABM), int(UA), int(SARM_DM), int(SNRM), int(TEST),
	}).Draw(t, "type"))
	addr := rapid.Byte().Draw(t, "addr")
	poll := rapid.Bool().Draw(t, "poll")

	var payload []byte
	if typ.IsPayloadType() {
		payload = rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(t, "payload")
	}

	f := NewPayloadFrame(typ, addr, poll, payload)
	if typ == I || typ.IsSupervisory() {
		f.SetRecvSeq(rapid.Byte().Draw(t, "recvSeq") & 0x07)
	}
	if typ == I {
		f.SetSendSeq(rapid.Byte().Draw(t, "sendSeq") & 0x07)
	}
	return f
}

func TestSerializeRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := genFrame(t)
		wire := Escape(Serialize(f))

		assert.Equal(t, byte(FrameBoundary), wire[0])
		assert.Equal(t, byte(FrameBoundary), wire[len(wire)-1])

		got := Deserialize(Descape(wire))
		assert.True(t, f.Equal(got), "round trip of %v produced %v", f, got)
	})
}

func TestEscapeDescapeIdentityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		inner := rapid.SliceOfN(rapid.Byte(), 0, 32).
			Filter(func(bs []byte) bool {
				for _, b := range bs {
					if b == FrameBoundary || b == EscapeByte {
						return false
					}
				}
				return true
			}).Draw(t, "inner")

		b := append([]byte{FrameBoundary}, append(append([]byte(nil), inner...), FrameBoundary)...)
		assert.Equal(t, b, Descape(Escape(b)))
	})
}

func TestFCSProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := genFrame(t)
		raw := Serialize(f)
		body := raw[1 : len(raw)-3]
		want := uint16(raw[len(raw)-3]) | uint16(raw[len(raw)-2])<<8
		assert.Equal(t, want, crc16CCITT(body))
	})
}
