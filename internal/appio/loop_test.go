// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package appio

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/truma-inetbox/inetbox-emu/pkg/coordinator"
	"github.com/truma-inetbox/inetbox-emu/pkg/inetbox"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus/serial"
	"github.com/truma-inetbox/inetbox-emu/pkg/lintp"
)

type recordingConn struct {
	writes [][]byte
}

func (c *recordingConn) Read(p []byte) (int, error) { return 0, io.EOF }
func (c *recordingConn) Write(p []byte) (int, error) {
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}
func (c *recordingConn) Close() error { return nil }

func newTestLoop() (*Loop, *recordingConn) {
	conn := &recordingConn{}
	requests := make(chan SetRequest, 4)
	updates := make(chan Update, 16)
	cfg := Config{
		NAD:                inetbox.DefaultNAD,
		Identity:           inetbox.Identity{SupplierID: 0x1111, FunctionID: 0x2222},
		Debounce:           10 * time.Millisecond,
		DefaultElPower:     900,
		DefaultHeatingMode: "eco",
	}
	l := New(conn, cfg, requests, updates, zerolog.New(io.Discard))
	return l, conn
}

// feedFrame drives the decoder with a break, sync byte, PID and data
// bytes as they would arrive from the wire.
func feedFrame(l *Loop, id byte, data []byte, now time.Time) {
	l.decoder.Break()
	l.handleByte(linbus.SyncByte, now)
	pid := linbus.MakePID(id)
	l.handleByte(byte(pid), now)
	for _, b := range data {
		l.handleByte(b, now)
	}
	l.handleByte(linbus.Checksum(pid, data), now)
}

func TestLoop_AliveCheckRoundTrip(t *testing.T) {
	l, conn := newTestLoop()
	now := time.Now()

	aliveCheck := []byte{inetbox.DefaultNAD, 0x02, 0xB9, 0x00, lintp.PadByte, lintp.PadByte, lintp.PadByte, lintp.PadByte}
	feedFrame(l, linbus.PIDDiagRequest, aliveCheck, now)

	l.decoder.Break()
	l.handleByte(linbus.SyncByte, now)
	pid := linbus.MakePID(linbus.PIDDiagResponse)
	l.handleByte(byte(pid), now)

	if len(conn.writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(conn.writes))
	}
	written := conn.writes[0]
	if len(written) != linbus.MaxDataLength+1 {
		t.Fatalf("response length = %d, want %d", len(written), linbus.MaxDataLength+1)
	}
	if written[0] != inetbox.DefaultNAD {
		t.Errorf("response NAD = 0x%02X, want 0x%02X", written[0], inetbox.DefaultNAD)
	}
	if written[2] != 0xF9 {
		t.Errorf("response SID = 0x%02X, want 0xF9 (alive reply)", written[2])
	}
}

func TestLoop_ControlUploadTriggersMasterDrain(t *testing.T) {
	l, _ := newTestLoop()
	now := time.Now()

	l.coord.OnDisplayFrame(now) // CP Plus online, so the debounced commit is not held
	if err := l.coord.WriteSetting("target_temp_room", "22", now); err != nil {
		t.Fatalf("write setting: %v", err)
	}
	l.coord.Tick(now.Add(20 * time.Millisecond))
	if l.coord.State() != coordinator.StateWaitingTruma {
		t.Fatalf("state = %v, want StateWaitingTruma after debounce", l.coord.State())
	}

	upload := []byte{inetbox.DefaultNAD, 0x03, 0xBA, 0x0C, 0x32, lintp.PadByte, lintp.PadByte, lintp.PadByte}
	feedFrame(l, linbus.PIDDiagRequest, upload, now)

	if l.coord.State() != coordinator.StateIdle {
		t.Errorf("state after control upload = %v, want StateIdle (master drain)", l.coord.State())
	}
}

// idleThenFrameConn simulates a real serial port under the BreakReader's
// idle-gap inference: the first read primes it after a silent gap, the
// second delivers a whole frame prefixed with the inferred break's own
// 0x00 byte, exactly as PortConnection would hand it to BreakReader.
type idleThenFrameConn struct {
	calls   int
	payload []byte
}

func (c *idleThenFrameConn) Read(p []byte) (int, error) {
	c.calls++
	switch c.calls {
	case 1:
		time.Sleep(serial.IdleThreshold + time.Millisecond)
		p[0] = 0xFF
		return 1, nil
	case 2:
		return copy(p, c.payload), nil
	default:
		return 0, io.EOF
	}
}

func (c *idleThenFrameConn) Write(p []byte) (int, error) { return len(p), nil }
func (c *idleThenFrameConn) Close() error                { return nil }

func TestLoop_RunDecodesFrameAfterInferredBreak(t *testing.T) {
	pid := linbus.MakePID(linbus.PIDDiagRequest)
	upload := []byte{inetbox.DefaultNAD, 0x03, 0xBA, 0x0C, 0x32, lintp.PadByte, lintp.PadByte, lintp.PadByte}
	checksum := linbus.Checksum(pid, upload)
	payload := append([]byte{0x00, linbus.SyncByte, byte(pid)}, upload...)
	payload = append(payload, checksum)

	conn := &idleThenFrameConn{payload: payload}
	requests := make(chan SetRequest, 4)
	updates := make(chan Update, 16)
	cfg := Config{
		NAD:                inetbox.DefaultNAD,
		Identity:           inetbox.Identity{SupplierID: 0x1111, FunctionID: 0x2222},
		Debounce:           10 * time.Millisecond,
		DefaultElPower:     900,
		DefaultHeatingMode: "eco",
	}
	l := New(conn, cfg, requests, updates, zerolog.New(io.Discard))

	now := time.Now()
	l.coord.OnDisplayFrame(now) // CP Plus online, so the debounced commit is not held
	if err := l.coord.WriteSetting("target_temp_room", "22", now); err != nil {
		t.Fatalf("write setting: %v", err)
	}
	l.coord.Tick(now.Add(20 * time.Millisecond))
	if l.coord.State() != coordinator.StateWaitingTruma {
		t.Fatalf("state = %v, want StateWaitingTruma after debounce", l.coord.State())
	}

	if err := l.Run(context.Background()); err != io.EOF {
		t.Fatalf("Run() error = %v, want io.EOF", err)
	}

	if l.coord.State() != coordinator.StateIdle {
		t.Errorf("state after inferred-break upload = %v, want StateIdle (master drain); the leading 0x00 must not have been fed to the decoder as wire data", l.coord.State())
	}
}

func TestLoop_DispatchPDUPropagatesReassignedNADToReassembler(t *testing.T) {
	l, _ := newTestLoop()

	assignPayload := []byte{inetbox.DefaultNAD, 0x11, 0x11, 0x22, 0x22, 0x09}
	l.dispatchPDU(&lintp.PDU{SID: inetbox.SIDAssignNAD, Payload: assignPayload})
	if l.slave.NAD() != 0x09 {
		t.Fatalf("slave NAD = 0x%02X, want 0x09", l.slave.NAD())
	}

	now := time.Now()
	aliveCheck := []byte{0x09, 0x02, 0xB9, 0x00, lintp.PadByte, lintp.PadByte, lintp.PadByte, lintp.PadByte}
	var raw [lintp.FrameSize]byte
	copy(raw[:], aliveCheck)
	pdu, err := l.reassembler.Feed(raw, now)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if pdu == nil {
		t.Fatalf("expected the reassembler to accept a frame addressed to the reassigned NAD 0x09; it must have been reconfigured after the SID 0xB0 assignment")
	}
}

func TestLoop_DisplayBroadcastThreePartsMarksCPPlusOnline(t *testing.T) {
	l, _ := newTestLoop()
	now := time.Now()

	partA := make([]byte, linbus.MaxDataLength)
	partB := make([]byte, linbus.MaxDataLength)
	partC := make([]byte, linbus.MaxDataLength)
	feedFrame(l, linbus.PIDDisplayA, partA, now)
	feedFrame(l, linbus.PIDDisplayB, partB, now)
	feedFrame(l, linbus.PIDDisplayC, partC, now)

	if l.coord.CPPlusStatus() != coordinator.CPPlusOnline {
		t.Errorf("cp_plus_status = %v, want online after a full display broadcast", l.coord.CPPlusStatus())
	}
	if _, ok := l.store.DisplayStatus(); !ok {
		t.Errorf("expected a decoded display_status view after the broadcast completed")
	}
}
