// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package serial

import "time"

// IdleThreshold is how long the bus must be silent before a leading
// 0x00 byte is treated as an inferred LIN break, on transceivers that
// don't report break out of band.
const IdleThreshold = 4 * time.Millisecond

// BreakReader wraps a Connection and tags each read with whether a LIN
// break preceded it, inferring one from an idle gap followed by a 0x00
// byte per §4.1's software fallback. Genuine hardware break detection
// (a transceiver that reports framing errors directly) is a distinct,
// more reliable Connection this reader doesn't attempt to model; the
// timing heuristic here is the documented fallback for those that lack
// it.
type BreakReader struct {
	conn     Connection
	lastRead time.Time
	primed   bool
}

// NewBreakReader wraps conn for break-tagged reads.
func NewBreakReader(conn Connection) *BreakReader {
	return &BreakReader{conn: conn}
}

// ReadEvent performs one read and reports whether the bus was idle for
// at least IdleThreshold immediately before it, with the first byte
// read equal to 0x00 — the break-inference condition. The L1 codec is
// tolerant of a false positive (it simply expects a sync byte next and
// resynchronizes on the next break if it doesn't see one), so this
// heuristic favors sensitivity over precision.
func (r *BreakReader) ReadEvent(buf []byte) (n int, breakBefore bool, err error) {
	now := time.Now()
	n, err = r.conn.Read(buf)
	if err != nil {
		return n, false, err
	}
	if n > 0 {
		idle := r.primed && now.Sub(r.lastRead) >= IdleThreshold
		breakBefore = idle && buf[0] == 0x00
		r.lastRead = now
		r.primed = true
	}
	return n, breakBefore, nil
}
