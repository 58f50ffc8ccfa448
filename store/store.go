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

// Package store declares the boundary to the underlying column store: the
// thing spec.md §1 calls out of scope ("the underlying column-store that
// supplies query_session ... assumed to provide a read-only snapshot
// handle"). Nothing in this package is implemented by this module — it is
// the consumed half of §6's "Snapshot store interface", narrowed to the one
// primitive a real store must provide beneath query_database: ascending,
// block-bounded iteration over one variant's rows. The registry/query
// dispatch, range semantics, and wire encoding above that primitive are this
// module's own components C/D/E, not the store's.
package store

import (
	"context"
	"io"

	"github.com/dfuse-io/wasmql/key"
	"github.com/dfuse-io/wasmql/model"
	"github.com/dfuse-io/wasmql/registry"
)

// Version is one stored version of a row: the defining block, the tombstone
// flag, and the already wire-encoded row payload (§4.B — the caller never
// re-parses it). NaturalKey is the variant's declared key (§4.C), the same
// value for every version of the same row across blocks.
type Version struct {
	NaturalKey key.Composite
	BlockIndex uint32
	Present    bool
	Row        []byte
}

// OnVersion is called once per stored version found in range, in ascending
// (NaturalKey, BlockIndex) order; returning a non-nil error aborts the scan.
type OnVersion func(Version) error

// ColumnStore creates a query session pinned to the store's current head.
type ColumnStore interface {
	CreateQuerySession(ctx context.Context) (Session, error)
}

// Session is a read-only, internally consistent view of the history
// database, held across exactly one driver attempt and released
// unconditionally afterward (§4.E "Lifecycles").
type Session interface {
	io.Closer

	// FillStatus returns the snapshot's cursor at acquisition time.
	FillStatus(ctx context.Context) (model.DatabaseStatus, error)

	// BlockID returns the id recorded at blockNum in THIS snapshot, used by
	// the driver for fork detection (§4.G FORK_CHECK).
	BlockID(ctx context.Context, blockNum uint32) (id [32]byte, found bool, err error)

	// Scan streams every stored version of variant v whose NaturalKey falls
	// in [first,last] and whose BlockIndex <= maxBlock, ascending. The range
	// executor (package query) folds this into the §4.D result contract;
	// Scan itself does no result-count capping or latest-per-key reduction.
	Scan(ctx context.Context, v *registry.Variant, first, last key.Composite, maxBlock uint32, onVersion OnVersion) error
}
