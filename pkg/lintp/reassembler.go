// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lintp

import "time"

type reassemblyState int

const (
	stateIdle reassemblyState = iota
	stateReceiving
)

// Reassembler rebuilds a diagnostic PDU from single/first/consecutive
// frames arriving on PID 0x3C. A session is cancelled on timeout or on
// any frame that is not a valid consecutive frame, per §4.3.
type Reassembler struct {
	ownNAD       byte
	state        reassemblyState
	expectedLen  int
	buf          []byte
	nextSeq      byte
	lastActivity time.Time
}

// NewReassembler creates a reassembler bound to the slave's current NAD.
func NewReassembler(nad byte) *Reassembler {
	return &Reassembler{ownNAD: nad}
}

// SetNAD updates the node address the reassembler accepts frames for,
// following a successful SID 0xB0 assignment.
func (r *Reassembler) SetNAD(nad byte) {
	r.ownNAD = nad
}

// InProgress reports whether a reassembly session is currently open.
func (r *Reassembler) InProgress() bool {
	return r.state == stateReceiving
}

// CheckTimeout cancels an in-progress reassembly that has been idle for
// longer than ReassemblyTimeout. Call once per event-loop iteration.
func (r *Reassembler) CheckTimeout(now time.Time) error {
	if r.state == stateReceiving && now.Sub(r.lastActivity) > ReassemblyTimeout {
		r.reset()
		return reassemblyErrorf("PDU reassembly timed out after %s", ReassemblyTimeout)
	}
	return nil
}

func (r *Reassembler) reset() {
	r.state = stateIdle
	r.expectedLen = 0
	r.buf = nil
	r.nextSeq = 0
}

// Feed processes one 8-byte diagnostic frame (NAD, PCI, up to 6 payload
// bytes). It returns a completed PDU once every frame of a multi-frame
// message has arrived, or nil while a session is still in progress. A
// frame addressed to neither the slave's NAD nor the broadcast NAD
// (0x7F) is silently ignored.
func (r *Reassembler) Feed(frame [FrameSize]byte, now time.Time) (*PDU, error) {
	nad := frame[0]
	if nad != r.ownNAD && nad != BroadcastNAD {
		return nil, nil
	}

	pci := frame[1]
	switch pci >> 4 {
	case pciSingle:
		return r.feedSingle(nad, pci, frame)
	case pciFirst:
		return r.feedFirst(pci, frame, now)
	case pciConsecutive:
		return r.feedConsecutive(nad, pci, frame, now)
	default:
		r.reset()
		return nil, reassemblyErrorf("unknown PCI type 0x%X", pci>>4)
	}
}

func (r *Reassembler) feedSingle(nad, pci byte, frame [FrameSize]byte) (*PDU, error) {
	r.reset()
	length := int(pci & 0x0F)
	if length == 0 || length > singleFrameMaxLen {
		return nil, reassemblyErrorf("invalid single-frame length %d", length)
	}
	if err := checkPadding(frame[2+length:]); err != nil {
		return nil, err
	}
	payload := append([]byte(nil), frame[2:2+length]...)
	return pduFromPayload(nad, payload)
}

func (r *Reassembler) feedFirst(pci byte, frame [FrameSize]byte, now time.Time) (*PDU, error) {
	length := (int(pci&0x0F) << 8) | int(frame[2])
	if length <= 0 {
		r.reset()
		return nil, reassemblyErrorf("invalid first-frame total length %d", length)
	}
	r.state = stateReceiving
	r.expectedLen = length
	r.buf = append([]byte(nil), frame[3:8]...)
	r.nextSeq = 1
	r.lastActivity = now
	return nil, nil
}

func (r *Reassembler) feedConsecutive(nad, pci byte, frame [FrameSize]byte, now time.Time) (*PDU, error) {
	if r.state != stateReceiving {
		return nil, reassemblyErrorf("consecutive frame with no reassembly in progress")
	}
	seq := pci & 0x0F
	if seq != r.nextSeq {
		r.reset()
		return nil, reassemblyErrorf("out-of-sequence consecutive frame: got %d want %d", seq, r.nextSeq)
	}

	r.buf = append(r.buf, frame[2:8]...)
	r.nextSeq = (r.nextSeq + 1) % 16
	r.lastActivity = now

	if len(r.buf) < r.expectedLen {
		return nil, nil
	}

	payload := r.buf[:r.expectedLen]
	r.reset()
	return pduFromPayload(nad, payload)
}
