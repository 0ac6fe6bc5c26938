// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package serial

import (
	"errors"
	"testing"
	"time"
)

type fakeConn struct {
	reads [][]byte
	idx   int
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if f.idx >= len(f.reads) {
		return 0, errors.New("no more fixture reads")
	}
	n := copy(p, f.reads[f.idx])
	f.idx++
	return n, nil
}
func (f *fakeConn) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeConn) Close() error                { return nil }

func TestBreakReader_FirstReadNeverInfersBreak(t *testing.T) {
	conn := &fakeConn{reads: [][]byte{{0x00, 0x55, 0x18}}}
	r := NewBreakReader(conn)
	buf := make([]byte, 8)
	_, brk, err := r.ReadEvent(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if brk {
		t.Errorf("the very first read must never infer a break: no prior timestamp to measure idle against")
	}
}

func TestBreakReader_IdleGapFollowedByZeroInfersBreak(t *testing.T) {
	conn := &fakeConn{reads: [][]byte{{0x18}, {0x00, 0x55}}}
	r := NewBreakReader(conn)
	buf := make([]byte, 8)
	if _, _, err := r.ReadEvent(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.lastRead = time.Now().Add(-2 * IdleThreshold)

	_, brk, err := r.ReadEvent(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !brk {
		t.Errorf("expected a break to be inferred after an idle gap followed by 0x00")
	}
}

func TestBreakReader_NoIdleGapDoesNotInferBreak(t *testing.T) {
	conn := &fakeConn{reads: [][]byte{{0x18}, {0x00, 0x55}}}
	r := NewBreakReader(conn)
	buf := make([]byte, 8)
	if _, _, err := r.ReadEvent(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, brk, err := r.ReadEvent(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if brk {
		t.Errorf("a 0x00 byte without a preceding idle gap must not be treated as a break")
	}
}
