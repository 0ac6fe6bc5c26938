// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package appio wires the protocol stack together: the byte-level
// connection, the L1 frame codec, the LIN-TP reassembler/segmenter, the
// L3 slave state machine, the L4 buffer store, and the L5 update
// coordinator, driven by one single-threaded event loop per §5. It is
// the shared core behind both the headless daemon and the status TUI.
package appio

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/truma-inetbox/inetbox-emu/pkg/coordinator"
	"github.com/truma-inetbox/inetbox-emu/pkg/inetbox"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus"
	"github.com/truma-inetbox/inetbox-emu/pkg/linbus/serial"
	"github.com/truma-inetbox/inetbox-emu/pkg/lintp"
	"github.com/truma-inetbox/inetbox-emu/pkg/statusbuf"
)

// SetRequest is one inbound name/value pair to apply to the coordinator,
// arriving from MQTT in production or a CLI/TUI input in testing.
type SetRequest struct {
	Key   string
	Value string
}

// Update is a single observation the loop reports to its caller: a
// refreshed status view, a state-machine transition, or a surfaced
// error, per §6's outbound telemetry streams.
type Update struct {
	Display      map[string]interface{}
	Control      map[string]interface{}
	UpdateStatus coordinator.UpdateStatus
	CPPlusStatus coordinator.CPPlusStatus
	Err          error
}

// Config carries the parameters needed to assemble a Loop.
type Config struct {
	NAD                byte
	Identity           inetbox.Identity
	Debounce           time.Duration
	DefaultElPower     int
	DefaultHeatingMode string
}

// Loop owns every protocol-stack component and the single goroutine
// that drives them from bus bytes.
type Loop struct {
	conn   serial.Connection
	reader *serial.BreakReader

	decoder     *linbus.Decoder
	reassembler *lintp.Reassembler
	slave       *inetbox.Slave
	store       *statusbuf.Store
	coord       *coordinator.Coordinator

	outboundFrames [][lintp.FrameSize]byte
	displayParts   [3][]byte
	displaySeen    int

	requests <-chan SetRequest
	updates  chan<- Update
	log      zerolog.Logger
}

// New assembles a Loop around conn. requests is drained between bus
// events; updates receives every status change and error the loop
// produces. Both channels are owned by the caller.
func New(conn serial.Connection, cfg Config, requests <-chan SetRequest, updates chan<- Update, log zerolog.Logger) *Loop {
	store := statusbuf.NewStore()
	slave := inetbox.NewSlave(cfg.Identity, store)
	slave.SetCannedResponse(0x30, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88})

	coord := coordinator.New(slave, store, cfg.Debounce, log)

	l := &Loop{
		conn:        conn,
		reader:      serial.NewBreakReader(conn),
		decoder:     linbus.NewDecoder(slave.IsResponsePID),
		reassembler: lintp.NewReassembler(cfg.NAD),
		slave:       slave,
		store:       store,
		coord:       coord,
		requests:    requests,
		updates:     updates,
		log:         log,
	}
	return l
}

// Run drives the loop until ctx is cancelled or a fatal connection error
// occurs. Per §5, serial I/O errors are fatal: they bubble up to the
// caller for a supervisor restart.
func (l *Loop) Run(ctx context.Context) error {
	buf := make([]byte, linbus.MaxDataLength+4)
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-l.requests:
			l.applySetting(req)
		default:
		}

		n, breakBefore, err := l.reader.ReadEvent(buf)
		if err != nil {
			return err
		}
		now := time.Now()

		start := 0
		if breakBefore {
			l.decoder.Break()
			// buf[0] is the inferred break's own 0x00, not wire data;
			// Decoder.Break already put the codec in stateSync expecting
			// the 0x55 sync byte that follows it.
			start = 1
		}
		for i := start; i < n; i++ {
			l.handleByte(buf[i], now)
		}

		if err := l.reassembler.CheckTimeout(now); err != nil {
			l.log.Debug().Err(err).Msg("diagnostic reassembly timed out")
		}
		l.coord.Tick(now)
		l.emit()
	}
}

func (l *Loop) applySetting(req SetRequest) {
	if err := l.coord.WriteSetting(req.Key, req.Value, time.Now()); err != nil {
		l.reportError(err)
	}
}

func (l *Loop) handleByte(b byte, now time.Time) {
	frame, err := l.decoder.DecodeByte(b)
	if err != nil {
		l.log.Debug().Err(err).Msg("dropped malformed frame")
		return
	}
	if frame == nil {
		return
	}

	switch frame.Kind {
	case linbus.FrameHeader:
		l.respondToHeader(frame.PID)
	case linbus.FrameData:
		l.handleFrameData(frame, now)
	}
}

func (l *Loop) respondToHeader(pid linbus.PID) {
	id := pid.ID()
	if id == linbus.PIDDiagResponse {
		l.respondDiagnostic(pid)
		return
	}
	data := l.slave.Respond(id)
	if data == nil {
		return
	}
	l.conn.Write(linbus.EncodeResponse(pid, data))
}

// respondDiagnostic serves the next queued transport frame for PID
// 0x3D, segmenting a fresh outbound PDU from the slave the first time
// the queue runs dry.
func (l *Loop) respondDiagnostic(pid linbus.PID) {
	if len(l.outboundFrames) == 0 {
		blob := l.slave.Respond(pid.ID())
		if len(blob) == 0 {
			return
		}
		pdu := &lintp.PDU{NAD: l.slave.NAD(), SID: blob[0], Payload: blob[1:]}
		l.outboundFrames = lintp.Segment(l.slave.NAD(), pdu)
	}

	frame := l.outboundFrames[0]
	l.outboundFrames = l.outboundFrames[1:]
	l.conn.Write(linbus.EncodeResponse(pid, frame[:]))
}

func (l *Loop) handleFrameData(frame *linbus.Frame, now time.Time) {
	switch frame.PID.ID() {
	case linbus.PIDDisplayA:
		l.displayParts[0] = frame.Data
		l.displaySeen = 1
	case linbus.PIDDisplayB:
		if l.displaySeen != 1 {
			return
		}
		l.displayParts[1] = frame.Data
		l.displaySeen = 2
	case linbus.PIDDisplayC:
		if l.displaySeen != 2 {
			return
		}
		l.displayParts[2] = frame.Data
		l.displaySeen = 0

		buf := make([]byte, 0, 24)
		buf = append(buf, l.displayParts[0]...)
		buf = append(buf, l.displayParts[1]...)
		buf = append(buf, l.displayParts[2]...)
		if err := l.store.IngestDisplayBroadcast(buf); err != nil {
			l.reportError(err)
			return
		}
		l.coord.OnDisplayFrame(now)

	case linbus.PIDDiagRequest:
		var raw [lintp.FrameSize]byte
		raw[0] = frame.Data[0]
		raw[1] = frame.Data[1]
		copy(raw[2:], frame.Data[2:])
		pdu, err := l.reassembler.Feed(raw, now)
		if err != nil {
			l.log.Debug().Err(err).Msg("diagnostic reassembly error")
			return
		}
		if pdu == nil {
			return
		}
		l.dispatchPDU(pdu)
	}
}

func (l *Loop) dispatchPDU(pdu *lintp.PDU) {
	isControlUpload := pdu.SID == inetbox.SIDUpload &&
		len(pdu.Payload) >= 2 &&
		pdu.Payload[0] == statusbuf.ControlIDA &&
		pdu.Payload[1] == statusbuf.ControlIDB

	if err := l.slave.HandlePDU(pdu); err != nil {
		l.reportError(err)
		return
	}
	l.reassembler.SetNAD(l.slave.NAD())
	if isControlUpload {
		l.coord.OnMasterDrain()
	}
}

func (l *Loop) reportError(err error) {
	l.log.Warn().Err(err).Msg("protocol error")
	select {
	case l.updates <- Update{Err: err}:
	default:
	}
}

func (l *Loop) emit() {
	display, _ := l.store.DisplayStatus()
	control, _ := l.store.ControlStatus()
	update := Update{
		Display:      display,
		Control:      control,
		UpdateStatus: l.coord.UpdateStatus(),
		CPPlusStatus: l.coord.CPPlusStatus(),
	}
	select {
	case l.updates <- update:
	default:
	}
}
