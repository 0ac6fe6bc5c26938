// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package replaylog feeds a captured text log of bus traffic into the
// L1 frame decoder as though the bytes had just arrived from the wire,
// for offline testing against a fixture instead of a live UART.
package replaylog

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/truma-inetbox/inetbox-emu/pkg/linbus"
)

// Options controls how a log line is sliced down to the frame bytes
// (protected identifier, data, checksum) fed to the decoder. The
// default first=1, last=-2 drops a leading timestamp column and two
// trailing columns the source log carries but the decoder has no use
// for.
type Options struct {
	First int
	Last  int
}

// DefaultOptions matches the reference log format's column layout.
func DefaultOptions() Options {
	return Options{First: 1, Last: -2}
}

// Result reports one decoded frame or decode error read from the log,
// tagged with the 1-based line number it came from.
type Result struct {
	Line  int
	Frame *linbus.Frame
	Err   error
}

// Replay reads r line by line, slicing each non-empty line per opts and
// feeding the resulting bytes into decoder as one break-delimited
// frame per line. It calls emit for every frame or decode error the
// feed produces and returns once r reaches EOF, or on an I/O error
// other than EOF.
func Replay(r io.Reader, decoder *linbus.Decoder, opts Options, emit func(Result)) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frameBytes, err := sliceLine(line, opts)
		if err != nil {
			emit(Result{Line: lineNo, Err: fmt.Errorf("line %d: %w", lineNo, err)})
			continue
		}
		if len(frameBytes) == 0 {
			continue
		}

		decoder.Break()
		if frame, err := decoder.DecodeByte(linbus.SyncByte); err != nil {
			emit(Result{Line: lineNo, Err: err})
		} else if frame != nil {
			emit(Result{Line: lineNo, Frame: frame})
		}
		for _, b := range frameBytes {
			frame, err := decoder.DecodeByte(b)
			if err != nil {
				emit(Result{Line: lineNo, Err: err})
				continue
			}
			if frame != nil {
				emit(Result{Line: lineNo, Frame: frame})
			}
		}
	}
	return scanner.Err()
}

// sliceLine splits a whitespace-delimited log line into hex tokens,
// applies the first/last slice, and decodes the survivors into bytes.
func sliceLine(line string, opts Options) ([]byte, error) {
	tokens := strings.Fields(line)

	first := opts.First
	last := opts.Last
	if first < 0 {
		first += len(tokens)
	}
	end := last
	if end < 0 {
		end += len(tokens)
	}
	if first < 0 || end > len(tokens) || first > end {
		return nil, fmt.Errorf("slice bounds [%d:%d] out of range for %d tokens", opts.First, opts.Last, len(tokens))
	}

	frameBytes := make([]byte, 0, end-first)
	for _, tok := range tokens[first:end] {
		b, err := hex.DecodeString(tok)
		if err != nil || len(b) != 1 {
			return nil, fmt.Errorf("invalid hex byte %q", tok)
		}
		frameBytes = append(frameBytes, b[0])
	}
	return frameBytes, nil
}
