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

// Package key implements the canonical big-endian encoding of the composite
// range-query keys and their right-to-left carry-chain successor.
package key

import (
	"encoding/binary"

	eos "github.com/eoscanada/eos-go"
)

var bigEndian = binary.BigEndian

// DigestSize is the width, in bytes, of a 256-bit digest field.
const DigestSize = 32

// Digest is the canonical 32-byte big-endian encoding of a checksum256 key field.
type Digest [DigestSize]byte

// Name is EOSIO's packed 64-bit alphabetic identifier, used both as a variant
// short name and as a key field.
type Name uint64

// ParseName converts an extended (13+ character) name literal to its packed form.
func ParseName(s string) (Name, error) {
	v, err := eos.ExtendedStringToName(s)
	if err != nil {
		return 0, err
	}
	return Name(v), nil
}

// MustParseName is ParseName, panicking on error; used for the fixed set of
// variant short names and namespace literals known at init time.
func MustParseName(s string) Name {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	return eos.NameToString(uint64(n))
}

// PutUint8 appends the canonical 1-byte encoding of v.
func PutUint8(buf []byte, v uint8) []byte { return append(buf, v) }

// PutUint16 appends the canonical big-endian 2-byte encoding of v.
func PutUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	bigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

// PutUint32 appends the canonical big-endian 4-byte encoding of v.
func PutUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	bigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// PutUint64 appends the canonical big-endian 8-byte encoding of v.
func PutUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	bigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// PutUint128 appends the canonical big-endian 16-byte encoding of a 128-bit
// unsigned value given as (high, low) 64-bit limbs.
func PutUint128(buf []byte, high, low uint64) []byte {
	buf = PutUint64(buf, high)
	buf = PutUint64(buf, low)
	return buf
}

// PutName appends the canonical 8-byte big-endian encoding of a packed name.
func PutName(buf []byte, n Name) []byte {
	return PutUint64(buf, uint64(n))
}

// PutDigest appends the canonical 32 raw bytes of a 256-bit digest.
func PutDigest(buf []byte, d Digest) []byte {
	return append(buf, d[:]...)
}

// Field is one already-encoded, fixed-width segment of a composite key. Its
// length is never re-derived from the value it holds, since that would
// reintroduce the encoding-layer cleverness §4.A/§9 warns against.
type Field []byte

// Composite is an ordered tuple of canonically-encoded key fields. The total
// order over composites is the lexicographic order over the big-endian
// concatenation of their fields, which is exactly byte-slice comparison of
// Encode's output.
type Composite []Field

// Encode concatenates the fields in declared order.
func (c Composite) Encode() []byte {
	size := 0
	for _, f := range c {
		size += len(f)
	}
	buf := make([]byte, 0, size)
	for _, f := range c {
		buf = append(buf, f...)
	}
	return buf
}

// Clone returns a deep copy, safe to mutate independently of the receiver.
func (c Composite) Clone() Composite {
	out := make(Composite, len(c))
	for i, f := range c {
		cp := make(Field, len(f))
		copy(cp, f)
		out[i] = cp
	}
	return out
}

// Successor returns the tuple obtained by incrementing the last field and,
// only on wrap, carrying into the preceding field, and so on right-to-left.
// wrapped is true when even the first field wrapped, i.e. c was the maximum
// representable composite and its successor is undefined; callers must treat
// that as an empty range, never as a valid key.
//
// The receiver is left untouched; Successor operates on (and returns) a clone.
func (c Composite) Successor() (next Composite, wrapped bool) {
	next = c.Clone()
	wrapped = true
	for i := len(next) - 1; i >= 0 && wrapped; i-- {
		wrapped = incrementBytes(next[i])
	}
	return next, wrapped
}

// incrementBytes treats b as a big-endian unsigned integer and increments it
// in place, returning true if the increment wrapped around to all-zero. This
// single byte-level routine implements increment_key for every fixed-width
// primitive (u8/u16/u32/u64/u128/name/digest) uniformly, since they are all,
// at the wire level, just big-endian byte strings of a known width.
func incrementBytes(b []byte) (wrapped bool) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return false
		}
	}
	return true
}
