// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linbus

import "fmt"

// ErrorKind classifies a frame decode failure so callers can branch on
// error class rather than string content, per the transient/validation/
// transport/fatal taxonomy the emulator uses throughout.
type ErrorKind int

const (
	// ErrParity marks a PID byte whose parity bits do not match its
	// 6-bit identifier. Transient: the codec resynchronizes on the next
	// break and drops the frame.
	ErrParity ErrorKind = iota
	// ErrChecksumMismatch marks a frame whose checksum does not match
	// its data under the applicable classic/enhanced variant.
	ErrChecksumMismatch
	// ErrUnexpectedByte marks a byte that arrived out of sequence for
	// the decoder's current state (e.g. missing sync byte after break).
	ErrUnexpectedByte
)

// DecodeError reports why a frame was dropped. All DecodeErrors are
// transient bus errors: the decoder has already resynchronized by the
// time the error is returned.
type DecodeError struct {
	Kind ErrorKind
	PID  PID
	Msg  string
}

func (e *DecodeError) Error() string {
	return e.Msg
}

func newDecodeError(kind ErrorKind, pid PID, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, PID: pid, Msg: fmt.Sprintf(format, args...)}
}
