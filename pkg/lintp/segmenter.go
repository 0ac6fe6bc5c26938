// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lintp

// Segment splits a diagnostic PDU into the sequence of 8-byte transport
// frames a slave must transmit on PID 0x3D to deliver it, following the
// single/first/consecutive layout of §4.3. Every returned frame is fully
// padded with PadByte.
func Segment(nad byte, pdu *PDU) [][FrameSize]byte {
	full := make([]byte, 0, 1+len(pdu.Payload))
	full = append(full, pdu.SID)
	full = append(full, pdu.Payload...)

	if len(full) <= singleFrameMaxLen {
		return [][FrameSize]byte{segmentSingle(nad, full)}
	}
	return segmentMulti(nad, full)
}

func segmentSingle(nad byte, full []byte) [FrameSize]byte {
	var frame [FrameSize]byte
	frame[0] = nad
	frame[1] = byte(pciSingle<<4) | byte(len(full))
	n := copy(frame[2:], full)
	fillPad(frame[2+n:])
	return frame
}

func segmentMulti(nad byte, full []byte) [][FrameSize]byte {
	frames := make([][FrameSize]byte, 0, 1+(len(full)+consecutiveFramePayloadLen-1)/consecutiveFramePayloadLen)

	var first [FrameSize]byte
	first[0] = nad
	first[1] = byte(pciFirst<<4) | byte((len(full)>>8)&0x0F)
	first[2] = byte(len(full) & 0xFF)
	n := copy(first[3:], full)
	frames = append(frames, first)
	rest := full[n:]

	seq := byte(1)
	for len(rest) > 0 {
		var cf [FrameSize]byte
		cf[0] = nad
		cf[1] = byte(pciConsecutive<<4) | seq
		took := copy(cf[2:], rest)
		if took < consecutiveFramePayloadLen {
			fillPad(cf[2+took:])
		}
		frames = append(frames, cf)
		rest = rest[took:]
		seq = (seq + 1) % 16
	}
	return frames
}

func fillPad(b []byte) {
	for i := range b {
		b[i] = PadByte
	}
}
