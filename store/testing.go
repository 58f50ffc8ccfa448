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

package store

import (
	"bytes"
	"context"
	"sort"

	"github.com/dfuse-io/wasmql/key"
	"github.com/dfuse-io/wasmql/model"
	"github.com/dfuse-io/wasmql/registry"
)

// FakeStore is a small in-memory ColumnStore used by this module's own
// tests, in the spirit of fluxdb/testing.go's hand-rolled fakes: just enough
// behavior to drive the range executor and query.Session without a real
// column store.
type FakeStore struct {
	Versions map[key.Name][]Version // keyed by variant short name

	// Heads is the queue of fill statuses returned by successive
	// CreateQuerySession calls, one per attempt; the last entry repeats once
	// exhausted. BlockIDsPerAttempt maps block_num -> id for BlockID
	// lookups, indexed by the same attempt; a session with no entry finds
	// no block.
	Heads []model.DatabaseStatus
	BlockIDsPerAttempt []map[uint32][32]byte

	attempt int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{Versions: map[key.Name][]Version{}}
}

func (s *FakeStore) AddVersion(shortName key.Name, v Version) {
	s.Versions[shortName] = append(s.Versions[shortName], v)
}

func (s *FakeStore) CreateQuerySession(ctx context.Context) (Session, error) {
	idx := s.attempt
	if idx >= len(s.Heads) {
		idx = len(s.Heads) - 1
	}
	s.attempt++

	var blockIDs map[uint32][32]byte
	if idx >= 0 && idx < len(s.BlockIDsPerAttempt) {
		blockIDs = s.BlockIDsPerAttempt[idx]
	}

	var fillStatus model.DatabaseStatus
	if idx >= 0 {
		fillStatus = s.Heads[idx]
	}

	return &fakeSession{store: s, fillStatus: fillStatus, blockIDs: blockIDs}, nil
}

type fakeSession struct {
	store      *FakeStore
	fillStatus model.DatabaseStatus
	blockIDs   map[uint32][32]byte
	closed     bool
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func (s *fakeSession) FillStatus(ctx context.Context) (model.DatabaseStatus, error) {
	return s.fillStatus, nil
}

func (s *fakeSession) BlockID(ctx context.Context, blockNum uint32) ([32]byte, bool, error) {
	id, ok := s.blockIDs[blockNum]
	return id, ok, nil
}

func (s *fakeSession) Scan(ctx context.Context, v *registry.Variant, first, last key.Composite, maxBlock uint32, onVersion OnVersion) error {
	versions := append([]Version(nil), s.store.Versions[v.ShortName]...)
	sort.SliceStable(versions, func(i, j int) bool {
		ki := versions[i].NaturalKey.Encode()
		kj := versions[j].NaturalKey.Encode()
		if c := bytes.Compare(ki, kj); c != 0 {
			return c < 0
		}
		return versions[i].BlockIndex < versions[j].BlockIndex
	})

	firstBytes := first.Encode()
	lastBytes := last.Encode()

	for _, ver := range versions {
		if ver.BlockIndex > maxBlock {
			continue
		}
		kb := ver.NaturalKey.Encode()
		if bytes.Compare(kb, firstBytes) < 0 || bytes.Compare(kb, lastBytes) > 0 {
			continue
		}
		if err := onVersion(ver); err != nil {
			return err
		}
	}
	return nil
}
