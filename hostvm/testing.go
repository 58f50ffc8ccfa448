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

package hostvm

import (
	"context"
	"fmt"
)

// FakeMemory is a fixed-size byte array standing in for a guest's linear
// memory in tests, in the same hand-rolled-fake spirit as store.FakeStore.
type FakeMemory struct {
	buf []byte
}

func NewFakeMemory(size uint32) *FakeMemory {
	return &FakeMemory{buf: make([]byte, size)}
}

func (m *FakeMemory) Read(begin, end uint32) ([]byte, error) {
	if begin > end || int(end) > len(m.buf) {
		return nil, fmt.Errorf("hostvm: range [%d,%d) out of bounds (size %d)", begin, end, len(m.buf))
	}
	out := make([]byte, end-begin)
	copy(out, m.buf[begin:end])
	return out, nil
}

func (m *FakeMemory) Write(offset uint32, data []byte) error {
	end := uint64(offset) + uint64(len(data))
	if end > uint64(len(m.buf)) {
		return fmt.Errorf("hostvm: write [%d,%d) out of bounds (size %d)", offset, end, len(m.buf))
	}
	copy(m.buf[offset:], data)
	return nil
}

// FakeGuestVM is a scriptable GuestVM: Exports maps an export name to the
// behavior Call should run, and CBAlloc decides what CallIndirect returns
// for the one function index every test uses as the cb_alloc target.
type FakeGuestVM struct {
	Mem     *FakeMemory
	Exports map[string]func(ctx context.Context) error

	// CBAllocIndex is the function-table index the fake treats as the
	// cb_alloc target; any other index is an unresolved-import style error.
	CBAllocIndex uint32
	// CBAlloc computes the guest offset cb_alloc returns, given
	// (cb_alloc_data, size). Return isI32=false to simulate
	// bad_callback_return.
	CBAlloc func(cbAllocData, size uint32) (offset uint32, isI32 bool)
}

func (vm *FakeGuestVM) Memory() Memory { return vm.Mem }

func (vm *FakeGuestVM) Call(ctx context.Context, export string) error {
	fn, ok := vm.Exports[export]
	if !ok {
		return fmt.Errorf("hostvm: fake guest has no export %q", export)
	}
	return fn(ctx)
}

func (vm *FakeGuestVM) CallIndirect(ctx context.Context, tableIndex uint32, args ...uint32) (uint32, bool, error) {
	if tableIndex != vm.CBAllocIndex || vm.CBAlloc == nil {
		return 0, false, fmt.Errorf("hostvm: fake guest has no function at table index %d", tableIndex)
	}
	offset, isI32 := vm.CBAlloc(args[0], args[1])
	return offset, isI32, nil
}

// FakeQuerier is a scriptable Querier for tests that exercise query_database
// without a real query.Session.
type FakeQuerier struct {
	Reply []byte
	Err   error
}

func (q *FakeQuerier) QueryDatabase(ctx context.Context, request []byte, effectiveMaxBlock uint32) ([]byte, error) {
	return q.Reply, q.Err
}
