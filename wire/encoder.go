// Copyright 2020 dfuse Platform Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package wire implements the fixed-width little-endian primitives,
// LEB128-style varuint32, and length-prefixed vectors used by every
// sub-request, row, and reply on the wire. There is no third-party codec in
// the retrieved corpus that exposes a standalone LEB128 varuint writer
// suitable for the row-by-row, callback-driven encoding this ABI requires
// (eos-go's binary codec is reflection/struct-tag driven against whole
// structs, not a streaming primitive writer) — see DESIGN.md.
package wire

import "encoding/binary"

// Encoder appends wire-format primitives to an in-memory buffer. It mirrors
// the shape of a typical "growable buffer + write methods" encoder without
// depending on bytes.Buffer, so callers can reserve capacity up front.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder that appends to buf (nil is fine).
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Bytes returns the accumulated buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) WriteInt64(v int64) {
	e.WriteUint64(uint64(v))
}

// WriteName writes the packed name as a little-endian u64, matching how
// every other fixed primitive serializes on the wire (the big-endian form is
// reserved for range-query keys, see the key package).
func (e *Encoder) WriteName(n uint64) {
	e.WriteUint64(n)
}

// WriteDigest writes a 256-bit digest as 32 raw bytes, no length prefix.
func (e *Encoder) WriteDigest(d [32]byte) {
	e.buf = append(e.buf, d[:]...)
}

// WriteVarUint32 writes v as LEB128: 7 data bits per byte, MSB continuation.
func (e *Encoder) WriteVarUint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.buf = append(e.buf, b)
		if v == 0 {
			return
		}
	}
}

// WriteBytes writes a varuint32 length prefix followed by raw.
func (e *Encoder) WriteBytes(raw []byte) {
	e.WriteVarUint32(uint32(len(raw)))
	e.buf = append(e.buf, raw...)
}

// WriteString writes a string using the same length-prefixed encoding as WriteBytes.
func (e *Encoder) WriteString(s string) {
	e.WriteBytes([]byte(s))
}
