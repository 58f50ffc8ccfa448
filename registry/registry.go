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

// Package registry is the closed catalog of range-query variants (§4.C). A
// variant's key schema and ordering are declarative data — a slice of
// FieldSchema plus the HasMaxBlock and TimeSliced flags — rather than a
// hand-written code path per variant, per the REDESIGN FLAGS in spec.md §9.
package registry

import (
	"fmt"

	"github.com/dfuse-io/wasmql/key"
)

// FieldKind identifies the wire and key encoding of one key field.
type FieldKind int

const (
	FieldKindName FieldKind = iota
	FieldKindUint8
	FieldKindUint16
	FieldKindUint32
	FieldKindUint64
	FieldKindDigest
)

// FieldSchema names and types one field of a variant's composite key, in
// declared order; the order IS the tie-break rule (§4.D "Tie-breaks").
type FieldSchema struct {
	Name string
	Kind FieldKind
}

// Variant is one catalog entry: a short name, the entity it projects, and
// the ordered key schema that defines both wire decoding of request bounds
// and the composite key used for range scanning (§4.A).
type Variant struct {
	ShortName key.Name
	Entity    string
	KeySchema []FieldSchema

	// HasMaxBlock is false only for block.info, per the Open Question in
	// spec.md §9 resolved in DESIGN.md: block.info has no history cap and
	// returns blocks up to (and including) the snapshot's head, i.e.
	// reversible blocks are visible.
	HasMaxBlock bool

	// TimeSliced is true for variants that project "current state at
	// max_block" (account, contract_row, the secondary index) where only the
	// latest version per natural key is yielded (§4.D (ii)). It is false for
	// append-only variants (block_info, action_trace) whose key schema is
	// already unique across the whole history scan (§3 Invariants).
	TimeSliced bool
}

var byShortName = map[key.Name]*Variant{}
var order []*Variant

func register(v *Variant) {
	if _, exists := byShortName[v.ShortName]; exists {
		panic(fmt.Sprintf("registry: variant %q already registered, short names must be unique", v.ShortName))
	}
	byShortName[v.ShortName] = v
	order = append(order, v)
}

// Lookup returns the variant for a short name, or (nil, false) if it is not
// a catalogued variant.
func Lookup(shortName key.Name) (*Variant, bool) {
	v, ok := byShortName[shortName]
	return v, ok
}

// All returns the catalog in registration order, for diagnostics/listing.
func All() []*Variant {
	out := make([]*Variant, len(order))
	copy(out, order)
	return out
}

func mustName(s string) key.Name {
	return key.MustParseName(s)
}

func init() {
	register(&Variant{
		ShortName:   mustName("block.info"),
		Entity:      "block_info",
		KeySchema:   []FieldSchema{{Name: "block_index", Kind: FieldKindUint32}},
		HasMaxBlock: false,
		TimeSliced:  false,
	})

	register(&Variant{
		ShortName: mustName("at.e.nra"),
		Entity:    "action_trace",
		KeySchema: []FieldSchema{
			{Name: "name", Kind: FieldKindName},
			{Name: "receipt_receiver", Kind: FieldKindName},
			{Name: "account", Kind: FieldKindName},
			{Name: "block_index", Kind: FieldKindUint32},
			{Name: "transaction_id", Kind: FieldKindDigest},
			{Name: "action_index", Kind: FieldKindUint32},
		},
		HasMaxBlock: true,
		TimeSliced:  false,
	})

	register(&Variant{
		ShortName:   mustName("account"),
		Entity:      "account",
		KeySchema:   []FieldSchema{{Name: "name", Kind: FieldKindName}},
		HasMaxBlock: true,
		TimeSliced:  true,
	})

	register(&Variant{
		ShortName: mustName("cr.ctps"),
		Entity:    "contract_row",
		KeySchema: []FieldSchema{
			{Name: "code", Kind: FieldKindName},
			{Name: "table", Kind: FieldKindName},
			{Name: "primary_key", Kind: FieldKindUint64},
			{Name: "scope", Kind: FieldKindUint64},
		},
		HasMaxBlock: true,
		TimeSliced:  true,
	})

	register(&Variant{
		ShortName: mustName("cr.ctsp"),
		Entity:    "contract_row",
		KeySchema: []FieldSchema{
			{Name: "code", Kind: FieldKindName},
			{Name: "table", Kind: FieldKindName},
			{Name: "scope", Kind: FieldKindUint64},
			{Name: "primary_key", Kind: FieldKindUint64},
		},
		HasMaxBlock: true,
		TimeSliced:  true,
	})

	register(&Variant{
		ShortName: mustName("cr.stpc"),
		Entity:    "contract_row",
		KeySchema: []FieldSchema{
			{Name: "scope", Kind: FieldKindUint64},
			{Name: "table", Kind: FieldKindName},
			{Name: "primary_key", Kind: FieldKindUint64},
			{Name: "code", Kind: FieldKindName},
		},
		HasMaxBlock: true,
		TimeSliced:  true,
	})

	register(&Variant{
		ShortName: mustName("ci1.cts2p"),
		Entity:    "contract_secondary_index_with_row<u64>",
		KeySchema: []FieldSchema{
			{Name: "code", Kind: FieldKindName},
			{Name: "table", Kind: FieldKindName},
			{Name: "scope", Kind: FieldKindUint64},
			{Name: "secondary_key", Kind: FieldKindUint64},
			{Name: "primary_key", Kind: FieldKindUint64},
		},
		HasMaxBlock: true,
		TimeSliced:  true,
	})
}
