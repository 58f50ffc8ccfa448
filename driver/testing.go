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

package driver

import (
	"context"
	"fmt"

	"github.com/dfuse-io/wasmql/hostvm"
)

// FakeSession is a minimal QuerySession for driver tests, independent of
// store.FakeStore so the driver's retry/fork logic can be exercised without
// a real registry/executor underneath.
type FakeSession struct {
	Head       uint32
	HeadID     [32]byte
	StatusBlob []byte
	BlockIDs   map[uint32][32]byte
	Reply      []byte

	Closed bool
}

func (s *FakeSession) Close() error {
	s.Closed = true
	return nil
}

func (s *FakeSession) FillStatus(ctx context.Context) (uint32, [32]byte, []byte, error) {
	return s.Head, s.HeadID, s.StatusBlob, nil
}

func (s *FakeSession) BlockID(ctx context.Context, blockNum uint32) ([32]byte, bool, error) {
	id, ok := s.BlockIDs[blockNum]
	return id, ok, nil
}

func (s *FakeSession) QueryDatabase(ctx context.Context, request []byte, effectiveMaxBlock uint32) ([]byte, error) {
	return s.Reply, nil
}

// FakeSessionFactory hands out the next *FakeSession in Sessions on each
// CreateQuerySession call, clamped to the last entry once exhausted — the
// same per-attempt scripting shape as store.FakeStore, used to simulate a
// fork appearing partway through the retry budget (S3/S4).
type FakeSessionFactory struct {
	Sessions []*FakeSession
	attempt  int
}

func (f *FakeSessionFactory) CreateQuerySession(ctx context.Context) (QuerySession, error) {
	idx := f.attempt
	if idx >= len(f.Sessions) {
		idx = len(f.Sessions) - 1
	}
	f.attempt++
	if idx < 0 {
		return nil, fmt.Errorf("driver: no fake sessions configured")
	}
	return f.Sessions[idx], nil
}

// FakeModuleLoader scripts RUN_GUEST: Run is invoked per sub-request with
// the bound bridge, in place of a real guest interpreter.
type FakeModuleLoader struct {
	Run func(ctx context.Context, path string, bridge *hostvm.Bridge) error
}

func (l *FakeModuleLoader) Load(ctx context.Context, path string, bridge *hostvm.Bridge) (hostvm.GuestVM, error) {
	return &fakeGuestModule{loader: l, path: path, bridge: bridge}, nil
}

type fakeGuestModule struct {
	loader *FakeModuleLoader
	path   string
	bridge *hostvm.Bridge
}

func (m *fakeGuestModule) Memory() hostvm.Memory { return nil }

func (m *fakeGuestModule) Call(ctx context.Context, export string) error {
	if export != "run_query" {
		return nil
	}
	return m.loader.Run(ctx, m.path, m.bridge)
}

func (m *fakeGuestModule) CallIndirect(ctx context.Context, tableIndex uint32, args ...uint32) (uint32, bool, error) {
	return 0, false, fmt.Errorf("driver: fake guest module has no function table")
}
