package hdlc

// This file implements the serializer (C2): control-byte encode/decode,
// CRC-CCITT FCS, byte-stuffing/unstuffing, and serialize/deserialize.
// Grounded on original_source/hdlc/include/hdlc/serializer.h; the CRC
// itself is hand-rolled (see DESIGN.md) in the same style as the
// teacher's own calculateCRC16/crc16Table in pkg/usock/usock.go.

const minFrameLength = 6 // 2 boundaries + address + control + 2 FCS bytes

// Serialize encodes f into its on-wire representation (without
// byte-stuffing): 0x7E || address || control || payload? || FCS_lo ||
// FCS_hi || 0x7E. Serialization of a legal Frame always succeeds.
func Serialize(f Frame) []byte {
	control := encodeControl(f)

	body := make([]byte, 0, 2+len(f.payload))
	body = append(body, f.address, control)
	if f.typ.IsPayloadType() {
		body = append(body, f.payload...)
	}

	fcs := crc16CCITT(body)

	out := make([]byte, 0, 1+len(body)+2+1)
	out = append(out, FrameBoundary)
	out = append(out, body...)
	out = append(out, byte(fcs&0xFF), byte(fcs>>8))
	out = append(out, FrameBoundary)
	return out
}

// encodeControl builds the control byte for f per §4.2/§6.
func encodeControl(f Frame) byte {
	var poll byte
	if f.poll {
		poll = 1
	}

	switch {
	case f.typ == I:
		return (f.recvSeq << 5) | (poll << 4) | (f.sendSeq << 1)
	case f.typ.IsSupervisory():
		code := supervisoryCode[f.typ]
		return (f.recvSeq << 5) | (poll << 4) | code
	default: // unnumbered, including UNSET (encodes as 0, though never sent)
		code := unnumberedCode[f.typ]
		return code | (poll << 4)
	}
}

// decodeControl decodes a control byte into type/poll/sendSeq/recvSeq per
// §4.2. Unknown unnumbered codes yield UNSET.
func decodeControl(c byte) (typ FrameType, poll bool, sendSeq, recvSeq byte) {
	poll = c&pollBit != 0
	sendSeq = (c >> 1) & 0x7
	recvSeq = (c >> 5) & 0x7

	switch {
	case c&0x01 == 0:
		typ = I
	case c&0x03 == 0x01:
		if t, ok := supervisoryFromCode[c&0x0F]; ok {
			typ = t
		} else {
			typ = UNSET
		}
	default:
		if t, ok := unnumberedFromCode[c&^pollBit]; ok {
			typ = t
		} else {
			typ = UNSET
		}
	}
	return
}

// Escape applies HDLC byte-stuffing to a fully serialized frame: every
// 0x7E or 0x7D strictly between the opening and closing boundary bytes is
// replaced by 0x7D, (byte XOR 0x20). The boundary bytes themselves are
// emitted verbatim. frame is expected to be the output of Serialize (or
// any byte sequence starting and ending with 0x7E); shorter input is
// passed through unchanged.
func Escape(frame []byte) []byte {
	if len(frame) < 2 {
		return append([]byte(nil), frame...)
	}

	out := make([]byte, 0, len(frame)+4)
	out = append(out, frame[0])
	for _, b := range frame[1 : len(frame)-1] {
		if b == FrameBoundary || b == EscapeByte {
			out = append(out, EscapeByte, b^escapeXOR)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, frame[len(frame)-1])
	return out
}

// Descape reverses Escape: scanning left to right, a 0x7D byte marks the
// next byte as stuffed (unstuffed by XOR 0x20); all other bytes pass
// through unchanged. The escape-pending flag lives entirely within this
// call (the source's descape kept it as persistent/global state across
// calls, a latent bug; see DESIGN.md/spec.md §9).
func Descape(buffer []byte) []byte {
	out := make([]byte, 0, len(buffer))
	pending := false
	for _, b := range buffer {
		if pending {
			out = append(out, b^escapeXOR)
			pending = false
			continue
		}
		if b == EscapeByte {
			pending = true
			continue
		}
		out = append(out, b)
	}
	// A trailing dangling 0x7D is dropped; deserialize will reject the
	// resulting (too-short or boundary-mismatched) buffer as UNSET.
	return out
}

// Deserialize accepts an already-unstuffed byte sequence and returns the
// decoded Frame, or the UNSET sentinel if the buffer fails any structural
// or FCS check. It never panics on malformed input.
func Deserialize(buffer []byte) Frame {
	if len(buffer) < minFrameLength {
		return NewUnsetFrame()
	}
	if buffer[0] != FrameBoundary || buffer[len(buffer)-1] != FrameBoundary {
		return NewUnsetFrame()
	}

	body := buffer[1 : len(buffer)-1]
	if len(body) < 4 { // address + control + 2 FCS bytes
		return NewUnsetFrame()
	}

	payloadEnd := len(body) - 2
	fcsBytes := body[payloadEnd:]
	wantFCS := uint16(fcsBytes[0]) | uint16(fcsBytes[1])<<8
	gotFCS := crc16CCITT(body[:payloadEnd])
	if wantFCS != gotFCS {
		return NewUnsetFrame()
	}

	address := body[0]
	control := body[1]
	typ, poll, sendSeq, recvSeq := decodeControl(control)
	if typ == UNSET {
		return NewUnsetFrame()
	}

	var payload []byte
	if typ.IsPayloadType() {
		payload = body[2:payloadEnd]
	}

	f := NewPayloadFrame(typ, address, poll, payload)
	f.SetSendSeq(sendSeq)
	f.SetRecvSeq(recvSeq)
	return f
}

// crc16Table is the CRC-CCITT (poly 0x1021) lookup table, init 0xFFFF, no
// reflection, no final XOR, matching §4.2/§6/§8 property 4 exactly.
var crc16Table = func() [256]uint16 {
	var table [256]uint16
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// crc16CCITT computes the FCS over data (expected to be address ||
// control || payload) per §4.2: CRC-CCITT, polynomial 0x1021, initial
// value 0xFFFF, no reflection, no final XOR.
func crc16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}
