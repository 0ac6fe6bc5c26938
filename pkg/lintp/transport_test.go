// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lintp

import (
	"testing"
	"time"
)

func TestReassembler_S4TwelveByteDelivery(t *testing.T) {
	// S4: first frame declares total length 12, CF1 carries six bytes,
	// CF2 carries one payload byte plus 0xFF padding; the full 12-byte
	// payload is delivered exactly once.
	r := NewReassembler(0x03)
	now := time.Now()

	ff := [FrameSize]byte{0x03, 0x10, 0x0C, 0x11, 0x22, 0x33, 0x44, 0x55}
	if pdu, err := r.Feed(ff, now); err != nil || pdu != nil {
		t.Fatalf("first frame: unexpected result pdu=%v err=%v", pdu, err)
	}

	cf1 := [FrameSize]byte{0x03, 0x21, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB}
	if pdu, err := r.Feed(cf1, now); err != nil || pdu != nil {
		t.Fatalf("cf1: unexpected result pdu=%v err=%v", pdu, err)
	}

	cf2 := [FrameSize]byte{0x03, 0x22, 0xCC, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	pdu, err := r.Feed(cf2, now)
	if err != nil {
		t.Fatalf("cf2: unexpected error: %v", err)
	}
	if pdu == nil {
		t.Fatalf("expected completed PDU after cf2")
	}
	wantPayload := []byte{0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC}
	if pdu.SID != 0x11 {
		t.Errorf("SID = 0x%02X, want 0x11", pdu.SID)
	}
	if string(pdu.Payload) != string(wantPayload) {
		t.Errorf("payload = %v, want %v", pdu.Payload, wantPayload)
	}
	if r.InProgress() {
		t.Errorf("reassembler should be idle after delivering a PDU")
	}
}

func TestReassembler_DroppedFirstFrameYieldsNoPDU(t *testing.T) {
	r := NewReassembler(0x03)
	now := time.Now()

	// A lone consecutive frame with no preceding first frame is a
	// reassembly error, not a delivered PDU.
	cf := [FrameSize]byte{0x03, 0x21, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB}
	pdu, err := r.Feed(cf, now)
	if pdu != nil {
		t.Fatalf("expected no PDU, got %v", pdu)
	}
	if err == nil {
		t.Fatalf("expected a reassembly error for an orphaned consecutive frame")
	}
}

func TestReassembler_OutOfSequenceCancelsSession(t *testing.T) {
	r := NewReassembler(0x03)
	now := time.Now()

	ff := [FrameSize]byte{0x03, 0x10, 0x0C, 0x11, 0x22, 0x33, 0x44, 0x55}
	if _, err := r.Feed(ff, now); err != nil {
		t.Fatalf("first frame rejected: %v", err)
	}

	badCF := [FrameSize]byte{0x03, 0x22, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB} // seq=2, want 1
	if _, err := r.Feed(badCF, now); err == nil {
		t.Fatalf("expected out-of-sequence error")
	}
	if r.InProgress() {
		t.Errorf("session must be cancelled after an out-of-sequence frame")
	}
}

func TestReassembler_TimeoutCancelsStaleSession(t *testing.T) {
	r := NewReassembler(0x03)
	start := time.Now()

	ff := [FrameSize]byte{0x03, 0x10, 0x0C, 0x11, 0x22, 0x33, 0x44, 0x55}
	if _, err := r.Feed(ff, start); err != nil {
		t.Fatalf("first frame rejected: %v", err)
	}

	if err := r.CheckTimeout(start.Add(500 * time.Millisecond)); err != nil {
		t.Errorf("should not time out before %s elapses: %v", ReassemblyTimeout, err)
	}
	if err := r.CheckTimeout(start.Add(2 * time.Second)); err == nil {
		t.Errorf("expected timeout error after %s idle", ReassemblyTimeout)
	}
	if r.InProgress() {
		t.Errorf("session must be cancelled after timing out")
	}
}

func TestReassembler_BroadcastNADAccepted(t *testing.T) {
	r := NewReassembler(0x05)
	now := time.Now()
	single := [FrameSize]byte{BroadcastNAD, 0x02, 0xB9, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}
	pdu, err := r.Feed(single, now)
	if err != nil {
		t.Fatalf("unexpected error for broadcast NAD: %v", err)
	}
	if pdu == nil || pdu.SID != 0xB9 {
		t.Fatalf("expected alive-check PDU, got %+v", pdu)
	}
}

func TestReassembler_ForeignNADIgnored(t *testing.T) {
	r := NewReassembler(0x05)
	now := time.Now()
	single := [FrameSize]byte{0x09, 0x02, 0xB9, 0x00, 0xFF, 0xFF, 0xFF, 0xFF}
	pdu, err := r.Feed(single, now)
	if pdu != nil || err != nil {
		t.Fatalf("expected frame for a different NAD to be silently ignored, got pdu=%v err=%v", pdu, err)
	}
}

func TestSegment_SingleFrameRoundTrip(t *testing.T) {
	pdu := &PDU{NAD: 0x03, SID: 0xF9, Payload: []byte{0x00}}
	frames := Segment(0x03, pdu)
	if len(frames) != 1 {
		t.Fatalf("expected a single frame, got %d", len(frames))
	}

	r := NewReassembler(0x03)
	got, err := r.Feed(frames[0], time.Now())
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if got == nil || got.SID != 0xF9 || string(got.Payload) != string(pdu.Payload) {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestSegment_MultiFrameRoundTrip(t *testing.T) {
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = byte(i)
	}
	pdu := &PDU{NAD: 0x07, SID: 0xBA, Payload: payload}
	frames := Segment(0x07, pdu)
	if len(frames) < 2 {
		t.Fatalf("expected multiple frames for a %d-byte PDU", len(payload)+1)
	}

	r := NewReassembler(0x07)
	now := time.Now()
	var got *PDU
	for i, f := range frames {
		p, err := r.Feed(f, now)
		if err != nil {
			t.Fatalf("frame %d rejected: %v", i, err)
		}
		if p != nil {
			got = p
		}
	}
	if got == nil {
		t.Fatalf("no PDU delivered after feeding all segmented frames")
	}
	if got.SID != pdu.SID || string(got.Payload) != string(pdu.Payload) {
		t.Errorf("round trip mismatch: got SID=0x%02X payload=%v", got.SID, got.Payload)
	}
}
