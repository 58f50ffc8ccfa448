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

import "fmt"

// EncodeBlobVector serializes the outer reply type vector<vector<byte>>: a
// varuint32 count followed by each blob, itself varuint32-length-prefixed.
// Used both for range-query replies (one blob per row) and the top-level
// reply (one blob per sub-request).
func EncodeBlobVector(blobs [][]byte) []byte {
	e := NewEncoder(nil)
	e.WriteVarUint32(uint32(len(blobs)))
	for _, b := range blobs {
		e.WriteBytes(b)
	}
	return e.Bytes()
}

// DecodeBlobVector is the inverse of EncodeBlobVector.
func DecodeBlobVector(buf []byte) ([][]byte, error) {
	d := NewDecoder(buf)
	n, err := d.ReadVarUint32()
	if err != nil {
		return nil, fmt.Errorf("decode blob vector count: %w", err)
	}
	blobs := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		b, err := d.ReadBytes()
		if err != nil {
			return nil, fmt.Errorf("decode blob vector entry %d: %w", i, err)
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		blobs = append(blobs, cp)
	}
	return blobs, nil
}
