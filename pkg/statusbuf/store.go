// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package statusbuf

import "fmt"

// Store holds the last-seen buffer per schema and the settings pending
// upload, and implements pkg/inetbox's BufferStore interface. It is
// owned by the single protocol-loop goroutine; no locking is required.
type Store struct {
	registry map[[2]byte]*Schema
	lastBuf  map[[2]byte][]byte
	views    map[string]map[string]interface{}
	pending  map[string]interface{}
}

// NewStore builds a Store recognizing every schema in AllSchemas.
func NewStore() *Store {
	s := &Store{
		registry: make(map[[2]byte]*Schema, len(AllSchemas)),
		lastBuf:  make(map[[2]byte][]byte),
		views:    make(map[string]map[string]interface{}),
		pending:  make(map[string]interface{}),
	}
	for _, sc := range AllSchemas {
		s.registry[sc.id()] = sc
	}
	return s
}

// SeedPreamble replaces the package-level DefaultPreamble used for
// buffers synthesized before any inbound buffer has been seen. The
// change applies to every Store, not only the receiver.
func (s *Store) SeedPreamble(preamble [PreambleLength]byte) {
	DefaultPreamble = preamble
}

// SetPendingControl replaces the settings overlay applied to the next
// (0x0C,0x32) upload. The coordinator calls this once a debounce timer
// expires over a validated write.
func (s *Store) SetPendingControl(values map[string]interface{}) {
	s.pending = values
}

// ClearPendingControl drops the overlay once the master has
// successfully pulled the control buffer.
func (s *Store) ClearPendingControl() {
	s.pending = make(map[string]interface{})
}

// DisplayStatus returns the most recently decoded (0x14,0x33) view.
func (s *Store) DisplayStatus() (map[string]interface{}, bool) {
	v, ok := s.views[DisplaySchema.Name]
	return v, ok
}

// ControlStatus returns the most recently decoded (0x0C,0x32) view.
func (s *Store) ControlStatus() (map[string]interface{}, bool) {
	v, ok := s.views[ControlSchema.Name]
	return v, ok
}

// Upload implements inetbox.BufferStore: it produces the buffer for the
// schema named by (idA, idB). For the slave-authored control schema
// this overlays the pending settings on top of the last-decoded
// display/download view's shared fields, preserving unknown bits; for
// any other recognized schema it echoes the last inbound buffer, or a
// blank preamble-seeded buffer if none has arrived yet.
func (s *Store) Upload(idA, idB byte) ([]byte, error) {
	schema, ok := s.registry[[2]byte{idA, idB}]
	if !ok {
		return nil, fmt.Errorf("no schema registered for (0x%02X,0x%02X)", idA, idB)
	}

	id := schema.id()
	if schema == ControlSchema {
		base, ok := s.lastBuf[id]
		if !ok {
			base = schema.blankBuffer()
		}

		// Carry forward the last-received status values for the fields
		// ControlSchema shares with DisplaySchema, so a write touching
		// only one setting doesn't reset the others to zero.
		values := make(map[string]interface{}, len(schema.Fields))
		if display, ok := s.views[DisplaySchema.Name]; ok {
			for _, f := range schema.Fields {
				if v, ok := display[f.Name]; ok {
					values[f.Name] = v
				}
			}
		}
		for k, v := range s.pending {
			values[k] = v
		}

		buf, err := schema.Encode(base, values)
		if err != nil {
			return nil, err
		}
		s.lastBuf[id] = buf
		if view, err := schema.Decode(buf); err == nil {
			s.views[schema.Name] = view
		}
		return buf, nil
	}

	if buf, ok := s.lastBuf[id]; ok {
		return append([]byte(nil), buf...), nil
	}
	return schema.blankBuffer(), nil
}

// IngestDisplayBroadcast decodes the concatenation of the three
// broadcast frames (PIDs 0x20/0x21/0x22) as a DisplaySchema buffer. The
// broadcast carries no preamble or schema-selector bytes of its own —
// unlike a 0xBB download, its schema is fixed by which PIDs produced it
// — so this bypasses the selector lookup Download performs and decodes
// directly against DisplaySchema, padding or truncating to its declared
// length.
func (s *Store) IngestDisplayBroadcast(buf []byte) error {
	fixed := make([]byte, DisplaySchema.Length)
	copy(fixed, buf)
	fixed[PreambleLength] = DisplaySchema.IDA
	fixed[PreambleLength+1] = DisplaySchema.IDB
	view, err := DisplaySchema.Decode(fixed)
	if err != nil {
		return err
	}
	s.lastBuf[DisplaySchema.id()] = fixed
	s.views[DisplaySchema.Name] = view
	return nil
}

// Download implements inetbox.BufferStore: it decodes a buffer just
// received from the master, keyed by the schema selector at offset 10.
func (s *Store) Download(buf []byte) error {
	if len(buf) < HeaderLength {
		return fmt.Errorf("downloaded buffer has %d bytes, want at least %d", len(buf), HeaderLength)
	}
	id := [2]byte{buf[PreambleLength], buf[PreambleLength+1]}
	schema, ok := s.registry[id]
	if !ok {
		return fmt.Errorf("no schema registered for (0x%02X,0x%02X)", id[0], id[1])
	}
	view, err := schema.Decode(buf)
	if err != nil {
		return err
	}
	s.lastBuf[id] = append([]byte(nil), buf...)
	s.views[schema.Name] = view
	return nil
}
