// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records and replays raw bus sessions as a stream of
// CBOR-encoded events, generalizing the [msg_type, payload_map] framing
// used for the Fusain wire protocol to a break-tagged byte-chunk log
// suitable for the LIN bus.
package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Event is one recorded read from the bus: a chunk of bytes, the time
// elapsed since the previous event, and whether a break preceded it.
type Event struct {
	OffsetMillis int64  `cbor:"0,keyasint"`
	Break        bool   `cbor:"1,keyasint"`
	Bytes        []byte `cbor:"2,keyasint"`
}

// Recorder appends Events to an underlying stream as they arrive,
// timestamping each one relative to the previous write (or to
// construction time, for the first).
type Recorder struct {
	enc      *cbor.Encoder
	lastTime time.Time
}

// NewRecorder wraps w for writing a capture. The clock starts at the
// moment of construction.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: cbor.NewEncoder(w), lastTime: time.Now()}
}

// Record appends one event, tagging it with the elapsed time since the
// last call (or since construction, for the first).
func (r *Recorder) Record(breakBefore bool, data []byte) error {
	now := time.Now()
	elapsed := now.Sub(r.lastTime)
	r.lastTime = now

	frame := make([]byte, len(data))
	copy(frame, data)
	event := Event{OffsetMillis: elapsed.Milliseconds(), Break: breakBefore, Bytes: frame}
	if err := r.enc.Encode(&event); err != nil {
		return fmt.Errorf("encode capture event: %w", err)
	}
	return nil
}

// Player replays Events from a capture stream in order.
type Player struct {
	dec *cbor.Decoder
}

// NewPlayer wraps r for reading back a capture written by a Recorder.
func NewPlayer(r io.Reader) *Player {
	return &Player{dec: cbor.NewDecoder(r)}
}

// Next returns the next recorded event, or io.EOF once the stream is
// exhausted.
func (p *Player) Next() (Event, error) {
	var event Event
	if err := p.dec.Decode(&event); err != nil {
		if err == io.EOF {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("decode capture event: %w", err)
	}
	return event, nil
}

// Replay reads every event from r and invokes emit for each, honoring
// each event's recorded OffsetMillis by sleeping for it before delivery
// when realtime is true (useful for a human watching a replay; false
// replays as fast as possible, e.g. for tests or bulk decode).
func Replay(r io.Reader, realtime bool, emit func(Event) error) error {
	player := NewPlayer(r)
	for {
		event, err := player.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if realtime && event.OffsetMillis > 0 {
			time.Sleep(time.Duration(event.OffsetMillis) * time.Millisecond)
		}
		if err := emit(event); err != nil {
			return err
		}
	}
}
