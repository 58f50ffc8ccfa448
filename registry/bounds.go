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

package registry

import (
	"fmt"

	"github.com/dfuse-io/wasmql/key"
	"github.com/dfuse-io/wasmql/wire"
)

// Bounds is a decoded range-query sub-request: §6 "Wire: range-query
// sub-request" — max_block, first, last, max_results, with block.info's
// asymmetric absence of max_block represented by leaving MaxBlock at zero;
// the caller then sets it to its effective ceiling.
type Bounds struct {
	MaxBlock   uint32
	First      key.Composite
	Last       key.Composite
	MaxResults uint32
}

// DecodeBounds reads the fields declared for v, in wire order: max_block (if
// v.HasMaxBlock), first (one wire-typed read per KeySchema field), last
// (same), max_results. Each field is read in its wire primitive form
// (little-endian, per §4.B) and immediately re-encoded as a canonical
// big-endian key.Field (§4.A) for use by the range executor.
func DecodeBounds(v *Variant, payload []byte) (*Bounds, error) {
	d := wire.NewDecoder(payload)

	b := &Bounds{}
	if v.HasMaxBlock {
		mb, err := d.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("registry: decode max_block: %w", err)
		}
		b.MaxBlock = mb
	}

	first, err := decodeComposite(d, v.KeySchema)
	if err != nil {
		return nil, fmt.Errorf("registry: decode first key: %w", err)
	}
	b.First = first

	last, err := decodeComposite(d, v.KeySchema)
	if err != nil {
		return nil, fmt.Errorf("registry: decode last key: %w", err)
	}
	b.Last = last

	maxResults, err := d.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("registry: decode max_results: %w", err)
	}
	b.MaxResults = maxResults

	return b, nil
}

func decodeComposite(d *wire.Decoder, schema []FieldSchema) (key.Composite, error) {
	c := make(key.Composite, len(schema))
	for i, f := range schema {
		field, err := decodeField(d, f.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		c[i] = field
	}
	return c, nil
}

func decodeField(d *wire.Decoder, kind FieldKind) (key.Field, error) {
	switch kind {
	case FieldKindName:
		v, err := d.ReadName()
		if err != nil {
			return nil, err
		}
		return key.PutName(nil, key.Name(v)), nil
	case FieldKindUint8:
		v, err := d.ReadUint8()
		if err != nil {
			return nil, err
		}
		return key.PutUint8(nil, v), nil
	case FieldKindUint16:
		v, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		return key.PutUint16(nil, v), nil
	case FieldKindUint32:
		v, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		return key.PutUint32(nil, v), nil
	case FieldKindUint64:
		v, err := d.ReadUint64()
		if err != nil {
			return nil, err
		}
		return key.PutUint64(nil, v), nil
	case FieldKindDigest:
		v, err := d.ReadDigest()
		if err != nil {
			return nil, err
		}
		return key.PutDigest(nil, v), nil
	default:
		return nil, fmt.Errorf("unknown field kind %d", kind)
	}
}
