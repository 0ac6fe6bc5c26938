// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package statusbuf implements the L4 application layer: declarative
// status-buffer schemas, their bidirectional field codecs, and the
// preserve-unknown-bits encode rule used to build outbound buffers.
package statusbuf

// PreambleLength is the size, in bytes, of the fixed header every
// status buffer carries ahead of its (idA, idB) schema selector.
const PreambleLength = 10

// SchemaIDLength is the size of the schema selector that follows the
// preamble.
const SchemaIDLength = 2

// HeaderLength is the offset at which schema-specific fields begin.
const HeaderLength = PreambleLength + SchemaIDLength

// DefaultPreamble is used when a schema has never been seen inbound and
// a buffer must be synthesized for upload. The reference device's
// preamble bytes were not recoverable from the source material; zero
// bytes are a neutral placeholder that a real preamble capture can
// override via Store.SeedPreamble.
var DefaultPreamble = [PreambleLength]byte{}
