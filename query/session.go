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

package query

import (
	"context"
	"fmt"

	"github.com/streamingfast/logging"
	"go.uber.org/zap"

	"github.com/dfuse-io/wasmql/key"
	"github.com/dfuse-io/wasmql/model"
	"github.com/dfuse-io/wasmql/registry"
	"github.com/dfuse-io/wasmql/store"
	"github.com/dfuse-io/wasmql/wire"
)

var zlog = zap.NewNop()

func init() {
	logging.Register("github.com/dfuse-io/wasmql/query", &zlog)
}

// Host turns a raw store.ColumnStore into a provider of query.Session, the
// composed snapshot handle (§4.E) the driver actually drives through its
// OPEN_SNAPSHOT / FILL_CONTEXT / RUN_GUEST attempt.
type Host struct {
	Store store.ColumnStore
}

func (h *Host) CreateQuerySession(ctx context.Context) (*Session, error) {
	raw, err := h.Store.CreateQuerySession(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: create session: %w", err)
	}
	return &Session{raw: raw}, nil
}

// Session is this module's own §4.E: a store.Session plus the registry/
// executor dispatch that turns a raw request blob into a reply blob.
type Session struct {
	raw store.Session
}

func (s *Session) Close() error {
	return s.raw.Close()
}

func (s *Session) FillStatus(ctx context.Context) (model.DatabaseStatus, error) {
	return s.raw.FillStatus(ctx)
}

func (s *Session) BlockID(ctx context.Context, blockNum uint32) ([32]byte, bool, error) {
	return s.raw.BlockID(ctx, blockNum)
}

// QueryDatabase decodes request as (variant short name, range bounds),
// clamps max_block to effectiveMaxBlock (the snapshot's head, or a lower
// caller-supplied ceiling — §4.D edge policy "max_block > head treated as
// head"), runs the range executor, and returns the §4.B
// vector<vector<byte>> reply frame. An unknown variant short name is
// returned as a plain error before the store is touched.
func (s *Session) QueryDatabase(ctx context.Context, request []byte, effectiveMaxBlock uint32) ([]byte, error) {
	d := wire.NewDecoder(request)
	rawName, err := d.ReadName()
	if err != nil {
		return nil, fmt.Errorf("query: decode variant name: %w", err)
	}

	v, ok := registry.Lookup(key.Name(rawName))
	if !ok {
		return nil, fmt.Errorf("query: unknown variant %q", key.Name(rawName))
	}

	bounds, err := registry.DecodeBounds(v, d.Remaining())
	if err != nil {
		return nil, fmt.Errorf("query: decode bounds for %q: %w", v.Entity, err)
	}

	if v.HasMaxBlock {
		if bounds.MaxBlock > effectiveMaxBlock {
			bounds.MaxBlock = effectiveMaxBlock
		}
	} else {
		// block.info has no wire max_block field; its implicit ceiling is
		// always the snapshot head, i.e. reversible blocks are visible.
		bounds.MaxBlock = effectiveMaxBlock
	}

	rows, err := Run(ctx, s.raw, v, bounds)
	if err != nil {
		return nil, fmt.Errorf("query: run %q: %w", v.Entity, err)
	}

	zlog.Debug("query_database",
		zap.String("variant", v.Entity),
		zap.Uint32("max_block", bounds.MaxBlock),
		zap.Int("rows", len(rows)),
	)

	return wire.EncodeBlobVector(rows), nil
}
