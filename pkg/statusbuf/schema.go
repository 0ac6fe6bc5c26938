// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package statusbuf

import "fmt"

// Field describes one named, typed value packed into a status buffer.
type Field struct {
	Name       string
	ByteOffset int
	BitOffset  int
	BitWidth   int
	Codec      Codec
}

// Schema is a declarative table of fields for one (idA, idB) status
// buffer variant, per §3 and §4.5.
type Schema struct {
	IDA, IDB byte
	Name     string
	// Length is the total buffer length including the 10-byte preamble
	// and 2-byte schema selector.
	Length int
	Fields []Field
}

func (s *Schema) id() [2]byte { return [2]byte{s.IDA, s.IDB} }

// Decode reads every field of s from buf into a name -> value view.
// Unknown bit ranges (anything not covered by a Field) are simply never
// read; they are preserved by Encode operating on the raw buffer copy.
func (s *Schema) Decode(buf []byte) (map[string]interface{}, error) {
	if len(buf) < s.Length {
		return nil, fmt.Errorf("schema %s (%02X,%02X): buffer has %d bytes, want at least %d", s.Name, s.IDA, s.IDB, len(buf), s.Length)
	}
	if buf[PreambleLength] != s.IDA || buf[PreambleLength+1] != s.IDB {
		return nil, fmt.Errorf("schema %s: buffer selector (%02X,%02X) does not match", s.Name, buf[PreambleLength], buf[PreambleLength+1])
	}
	view := make(map[string]interface{}, len(s.Fields))
	for _, f := range s.Fields {
		raw := getBits(buf, f.ByteOffset, f.BitOffset, f.BitWidth)
		view[f.Name] = f.Codec.Decode(raw)
	}
	return view, nil
}

// Encode overlays values onto a copy of base (the most recently
// received buffer of this schema, or DefaultPreamble-seeded zero buffer
// if none has ever arrived), producing a byte-identical buffer except
// for the fields present in values. This is the "preserve-unknown"
// rule of §4.5: fields not named in values, and bits not covered by any
// Field, round-trip verbatim.
func (s *Schema) Encode(base []byte, values map[string]interface{}) ([]byte, error) {
	out := make([]byte, s.Length)
	copy(out, base)
	out[PreambleLength] = s.IDA
	out[PreambleLength+1] = s.IDB

	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		raw, err := f.Codec.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		setBits(out, f.ByteOffset, f.BitOffset, f.BitWidth, raw)
	}
	return out, nil
}

// blankBuffer returns a preamble-seeded, schema-tagged buffer of the
// right length to serve as the encode base when no inbound buffer of
// this schema has ever been observed.
func (s *Schema) blankBuffer() []byte {
	buf := make([]byte, s.Length)
	copy(buf, DefaultPreamble[:])
	buf[PreambleLength] = s.IDA
	buf[PreambleLength+1] = s.IDB
	return buf
}
