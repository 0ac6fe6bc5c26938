// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package lintp implements the minimal LIN diagnostic transport layer
// (LIN-TP) used to exchange multi-byte PDUs over the two diagnostic
// identifiers 0x3C (master -> slave) and 0x3D (slave -> master).
package lintp

import "time"

// PCI (protocol control information) frame types, carried in the high
// nibble of the second transport byte.
const (
	pciSingle      = 0x0
	pciFirst       = 0x1
	pciConsecutive = 0x2
)

// PadByte fills unused bytes in a transport frame.
const PadByte = 0xFF

// FrameSize is the fixed LIN frame data length carrying transport bytes.
const FrameSize = 8

// singleFrameMaxLen is the largest payload a single frame can carry:
// 8 total bytes minus NAD and PCI.
const singleFrameMaxLen = FrameSize - 2

// firstFramePayloadLen is the payload carried alongside a first frame:
// 8 total bytes minus NAD, PCI and the length continuation byte.
const firstFramePayloadLen = 5

// consecutiveFramePayloadLen is the payload carried by every CF: 8 total
// bytes minus NAD and PCI.
const consecutiveFramePayloadLen = FrameSize - 2

// ReassemblyTimeout is how long a partially-received PDU may sit idle
// before the session is cancelled per §4.3.
const ReassemblyTimeout = 1 * time.Second

// BroadcastNAD is accepted by every slave regardless of its assigned
// node address.
const BroadcastNAD = 0x7F
