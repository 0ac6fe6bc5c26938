// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package linbus implements the byte-accurate LIN (Local Interconnect
// Network) frame codec: break/sync detection, PID parity, and the
// classic/enhanced checksum variants used on the bus.
package linbus

// Sync field value that follows every break.
const SyncByte = 0x55

// Frame size limits.
const (
	MaxDataLength = 8
)

// Well-known identifiers on the iNet box bus.
const (
	PIDStatusRequest = 0x18 // update_pending status, polled by CP Plus
	PIDDisplayA      = 0x20 // display-and-control broadcast, part A
	PIDDisplayB      = 0x21 // display-and-control broadcast, part B
	PIDDisplayC      = 0x22 // display-and-control broadcast, part C
	PIDDiagRequest   = 0x3C // master -> slave diagnostic transport
	PIDDiagResponse  = 0x3D // slave -> master diagnostic transport
)

// usesClassicChecksum is the source's per-identifier checksum table:
// classic checksum applies to 0x00-0x3B (historical LIN 1.x identifiers)
// and to the two diagnostic identifiers 0x3C/0x3D regardless of the
// enhanced-checksum rule that would otherwise apply to them. This table
// is preserved verbatim per the open question in the specification
// rather than re-derived from the general LIN 2.x rule.
func usesClassicChecksum(id byte) bool {
	if id <= 0x3B {
		return true
	}
	return id == PIDDiagRequest || id == PIDDiagResponse
}

// dataLengthForPID returns the number of data bytes carried by a frame
// with the given protected identifier, per the slave's LIN description
// file: header-only PIDs carry no data, status and diagnostic PIDs carry
// a full 8 bytes.
func dataLengthForPID(id byte) int {
	switch id {
	case PIDStatusRequest, PIDDisplayA, PIDDisplayB, PIDDisplayC, PIDDiagRequest, PIDDiagResponse:
		return 8
	default:
		// Unknown PIDs on this bus are treated as header-only per the
		// slave's LDF; a response frame is never expected for them.
		return 0
	}
}
