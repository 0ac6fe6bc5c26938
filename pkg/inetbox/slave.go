// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package inetbox

import (
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus"
	"github.com/truma-inetbox/inetbox-emu/pkg/lintp"
)

// BufferStore is L3's view of the application layer: it produces the
// write buffer for an upload request and consumes a downloaded buffer.
// Defined here, on the consumer side, so pkg/statusbuf need not know
// about pkg/inetbox.
type BufferStore interface {
	// Upload returns the fully-formed status buffer (preamble + schema
	// id + fields) for the schema named by (idA, idB), or an error if
	// the schema is unrecognized.
	Upload(idA, idB byte) ([]byte, error)
	// Download decodes a buffer just received from the master and
	// updates whatever internal view corresponds to its schema.
	Download(buf []byte) error
}

// Slave is the L3 state machine for one LIN slave node. It owns the
// node address, the update_pending flag, the single outbound-payload
// slot and the canned-response table for PIDs the reference device
// answers but that carry no application semantics this emulator models.
type Slave struct {
	nad           byte
	identity      Identity
	updatePending bool
	outbound      []byte // pending 0x3D payload (SID + data), nil if none queued
	canned        map[byte][]byte
	buffers       BufferStore
}

// NewSlave creates a slave with the given identity (checked against
// incoming assign-NAD requests) and application-layer buffer store.
func NewSlave(identity Identity, buffers BufferStore) *Slave {
	return &Slave{
		nad:      DefaultNAD,
		identity: identity,
		canned:   make(map[byte][]byte),
		buffers:  buffers,
	}
}

// NAD returns the slave's current node address.
func (s *Slave) NAD() byte { return s.nad }

// SetUpdatePending is called by L5 whenever a buffered setting delta
// exists (true) or once the master has pulled the committed control
// buffer with a (0x0C,0x32) upload request (false).
func (s *Slave) SetUpdatePending(pending bool) {
	s.updatePending = pending
}

// UpdatePending reports the current flag value.
func (s *Slave) UpdatePending() bool { return s.updatePending }

// SetCannedResponse registers the fixed data bytes this slave answers
// with on a header PID this emulator does not otherwise model, captured
// verbatim from the reference device.
func (s *Slave) SetCannedResponse(pid byte, data []byte) {
	s.canned[pid] = append([]byte(nil), data...)
}

// IsResponsePID reports whether the slave answers the given identifier
// with a data frame of its own, as opposed to only listening to a
// master broadcast. Suitable as the linbus.Decoder's isResponsePID
// predicate.
func (s *Slave) IsResponsePID(id byte) bool {
	switch id {
	case linbus.PIDStatusRequest, linbus.PIDDiagResponse:
		return true
	}
	_, ok := s.canned[id]
	return ok
}

// Respond computes the response data bytes for a header PID the slave
// owns, or nil if the slave stays silent for this PID (master-driven
// broadcast, or diagnostic request with nothing to say). The caller is
// responsible for checksumming and transmitting the bytes.
func (s *Slave) Respond(id byte) []byte {
	switch id {
	case linbus.PIDStatusRequest:
		return s.statusRequestFrame()
	case linbus.PIDDiagResponse:
		return s.drainOutbound()
	default:
		if data, ok := s.canned[id]; ok {
			return data
		}
		return nil
	}
}

// statusRequestFrame builds the 8-byte 0x18 status frame: byte 0 is
// 0xFF when a committed setting is waiting to be pulled and 0xFE
// otherwise (the reference device's own encoding of update_pending on
// this PID), and every other byte is the fixed 0xFF the reference
// device sends absent any further modeled semantics.
func (s *Slave) statusRequestFrame() []byte {
	frame := make([]byte, linbus.MaxDataLength)
	for i := range frame {
		frame[i] = 0xFF
	}
	if !s.updatePending {
		frame[0] = 0xFE
	}
	return frame
}

func (s *Slave) drainOutbound() []byte {
	data := s.outbound
	s.outbound = nil
	return data
}

// HandlePDU dispatches an assembled diagnostic PDU per its SID and
// queues any resulting response for the next 0x3D header. Transient
// bus-facing failures (unrecognized upload schema) are returned as
// *TransportError; callers log them at warn level and move on.
func (s *Slave) HandlePDU(pdu *lintp.PDU) error {
	switch pdu.SID {
	case SIDAliveCheck:
		s.outbound = []byte{SIDAliveReply, 0x00}
		return nil
	case SIDAssignNAD:
		return s.handleAssignNAD(pdu.Payload)
	case SIDReadByID:
		s.outbound = []byte{SIDReadByIDResp}
		return nil
	case SIDUpload:
		return s.handleUpload(pdu.Payload)
	case SIDDownload:
		return s.handleDownload(pdu.Payload)
	default:
		return transportErrorf("unhandled diagnostic SID 0x%02X", pdu.SID)
	}
}

// handleAssignNAD implements the standard LIN "assign NAD" service:
// payload is [initialNAD, supplierIDLo, supplierIDHi, functionIDLo,
// functionIDHi, newNAD]. The assignment only takes effect if the
// initial NAD addresses this slave (its current NAD or the broadcast
// address) and the supplier/function identifiers match.
func (s *Slave) handleAssignNAD(payload []byte) error {
	if len(payload) != 6 {
		return transportErrorf("assign-NAD payload has %d bytes, want 6", len(payload))
	}
	initialNAD := payload[0]
	supplierID := uint16(payload[1]) | uint16(payload[2])<<8
	functionID := uint16(payload[3]) | uint16(payload[4])<<8
	newNAD := payload[5]

	if initialNAD != s.nad && initialNAD != lintp.BroadcastNAD {
		return nil
	}
	if supplierID != s.identity.SupplierID && supplierID != 0x7FFF {
		return nil
	}
	if functionID != s.identity.FunctionID && functionID != 0xFFFF {
		return nil
	}

	s.nad = newNAD
	s.outbound = []byte{SIDAssignResp}
	return nil
}

func (s *Slave) handleUpload(payload []byte) error {
	if len(payload) < 2 {
		return transportErrorf("upload request payload has %d bytes, want at least 2", len(payload))
	}
	buf, err := s.buffers.Upload(payload[0], payload[1])
	if err != nil {
		return transportErrorf("upload schema (0x%02X,0x%02X): %v", payload[0], payload[1], err)
	}
	s.outbound = append([]byte{SIDUpload + 0x40}, buf...)
	return nil
}

func (s *Slave) handleDownload(payload []byte) error {
	if err := s.buffers.Download(payload); err != nil {
		return transportErrorf("download decode: %v", err)
	}
	s.outbound = []byte{SIDDownloadResp}
	return nil
}
