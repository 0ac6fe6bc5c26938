// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linbus

// FrameKind distinguishes a fully-received data frame from a bare
// header that hands the bus to the slave for a response.
type FrameKind int

const (
	// FrameData is a complete frame the master transmitted onto the
	// bus: header, data bytes and checksum all present and verified.
	FrameData FrameKind = iota
	// FrameHeader is a break+sync+PID with no trailing data on the
	// wire — the identifier belongs to the responder and it is now
	// the slave's turn to transmit within the response window.
	FrameHeader
)

// Frame is a decoded LIN frame delivered to L2/L3.
type Frame struct {
	Kind     FrameKind
	PID      PID
	Data     []byte // nil for FrameHeader
	Checksum byte   // zero for FrameHeader
}

const (
	stateIdle = iota
	stateSync
	statePID
	stateData
	stateChecksum
)

// Decoder implements the LIN receive state machine: break -> sync ->
// PID -> (data -> checksum)?. Malformed frames are counted and dropped;
// the decoder always resynchronizes on the next break.
type Decoder struct {
	state    int
	pid      PID
	data     []byte
	dataLen  int
	isResponsePID func(id byte) bool

	malformed int
}

// NewDecoder creates a receive-side decoder. isResponsePID tells the
// decoder which identifiers are answered by the slave (and therefore
// carry no inbound data to wait for) versus which are broadcast by the
// master with a trailing data+checksum payload. The emulator's L3 slave
// state machine owns this classification; L1 stays a pure byte codec.
func NewDecoder(isResponsePID func(id byte) bool) *Decoder {
	return &Decoder{
		state:         stateIdle,
		isResponsePID: isResponsePID,
		data:          make([]byte, 0, MaxDataLength),
	}
}

// MalformedCount returns the number of frames dropped for a bad sync
// byte, a parity failure or a checksum failure since the decoder was
// created.
func (d *Decoder) MalformedCount() int {
	return d.malformed
}

// Break notifies the decoder that the transceiver reported (or L0
// inferred) a LIN break condition. The decoder resets and expects a
// sync byte next.
func (d *Decoder) Break() {
	d.reset()
	d.state = stateSync
}

func (d *Decoder) reset() {
	d.state = stateIdle
	d.pid = 0
	d.data = d.data[:0]
	d.dataLen = 0
}

// DecodeByte feeds one received byte into the state machine. It returns
// a non-nil Frame when a complete frame has been recognized, and a
// non-nil error for malformed input (already counted and the decoder
// already resynchronized).
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateIdle:
		// No break seen yet; bytes here are noise between frames.
		return nil, nil

	case stateSync:
		if b != SyncByte {
			d.malformed++
			d.reset()
			return nil, newDecodeError(ErrUnexpectedByte, 0, "expected sync byte 0x55, got 0x%02X", b)
		}
		d.state = statePID
		return nil, nil

	case statePID:
		pid := PID(b)
		if !pid.ValidParity() {
			d.malformed++
			d.reset()
			return nil, newDecodeError(ErrParity, pid, "PID 0x%02X failed parity check", b)
		}
		d.pid = pid

		if d.isResponsePID != nil && d.isResponsePID(pid.ID()) {
			frame := &Frame{Kind: FrameHeader, PID: pid}
			d.reset()
			return frame, nil
		}

		n := dataLengthForPID(pid.ID())
		if n == 0 {
			// Header-only identifier we don't recognize as ours to
			// answer and that carries no master data either; ignore.
			d.reset()
			return nil, nil
		}
		d.dataLen = n
		d.state = stateData
		return nil, nil

	case stateData:
		d.data = append(d.data, b)
		if len(d.data) >= d.dataLen {
			d.state = stateChecksum
		}
		return nil, nil

	case stateChecksum:
		pid, data := d.pid, append([]byte(nil), d.data...)
		d.reset()
		if !VerifyChecksum(pid, data, b) {
			d.malformed++
			return nil, newDecodeError(ErrChecksumMismatch, pid, "checksum mismatch for PID 0x%02X: got 0x%02X want 0x%02X", pid.ID(), b, Checksum(pid, data))
		}
		return &Frame{Kind: FrameData, PID: pid, Data: data, Checksum: b}, nil

	default:
		d.reset()
		return nil, newDecodeError(ErrUnexpectedByte, d.pid, "decoder in invalid state")
	}
}

// EncodeResponse builds the bytes a responder writes onto the bus after
// a FrameHeader for the given PID: the data payload followed by the
// checksum byte appropriate to that identifier's checksum variant. The
// break/sync/PID header itself is never transmitted by a responder (the
// master owns bus scheduling); only the trailing bytes are written.
func EncodeResponse(pid PID, data []byte) []byte {
	out := make([]byte, len(data)+1)
	copy(out, data)
	out[len(data)] = Checksum(pid, data)
	return out
}
