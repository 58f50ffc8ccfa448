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

package wire

import (
	"encoding/binary"
	"fmt"
)

// Decoder reads wire-format primitives off a byte slice, advancing a cursor.
// It never panics on short input; every Read method returns an error.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential reads starting at offset 0.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the unread suffix of the underlying buffer.
func (d *Decoder) Remaining() []byte {
	return d.buf[d.pos:]
}

// Len returns the number of unread bytes.
func (d *Decoder) Len() int {
	return len(d.buf) - d.pos
}

func (d *Decoder) need(n int) error {
	if d.Len() < n {
		return fmt.Errorf("wire: need %d bytes, have %d", n, d.Len())
	}
	return nil
}

func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.ReadUint8()
	return v != 0, err
}

func (d *Decoder) ReadUint8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

func (d *Decoder) ReadUint16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

func (d *Decoder) ReadName() (uint64, error) {
	return d.ReadUint64()
}

func (d *Decoder) ReadDigest() ([32]byte, error) {
	var out [32]byte
	if err := d.need(32); err != nil {
		return out, err
	}
	copy(out[:], d.buf[d.pos:d.pos+32])
	d.pos += 32
	return out, nil
}

// ReadVarUint32 reads a LEB128-encoded unsigned 32-bit integer.
func (d *Decoder) ReadVarUint32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := d.ReadUint8()
		if err != nil {
			return 0, fmt.Errorf("wire: truncated varuint32: %w", err)
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, fmt.Errorf("wire: varuint32 overflow")
		}
	}
}

// ReadBytes reads a varuint32 length prefix followed by that many raw bytes.
// The returned slice aliases the decoder's backing array.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	out := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return out, nil
}

func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
