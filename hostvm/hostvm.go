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

// Package hostvm is the host-call bridge (§4.F): bounds-checked accessors
// into guest linear memory, the callback-allocation protocol, and the host
// function table the guest imports under namespace "env". The guest
// interpreter itself — module loading, linear memory, the function table,
// instantiation and invocation — is the out-of-scope collaborator named in
// §1 and is consumed here only through the GuestVM/Memory interfaces.
package hostvm

import "context"

// Memory is a bounds-checked view over the guest's flat linear memory.
// Implementations must reject any range that falls outside the current
// memory size rather than clamp or panic.
type Memory interface {
	// Read returns a copy of guest memory in [begin, end). An error means
	// the range failed the bounds check (begin > end, or end beyond the
	// current memory size).
	Read(begin, end uint32) ([]byte, error)

	// Write copies data into guest memory starting at offset. An error
	// means [offset, offset+len(data)) failed the bounds check.
	Write(offset uint32, data []byte) error
}

// GuestVM is the interpreter boundary: module instantiation, export
// invocation, and indirect calls through the guest's function table. Host
// calls never re-enter the guest except through CallIndirect (the cb_alloc
// pattern, §4.F "All host calls are synchronous... the host never re-enters
// the guest except through cb_alloc").
type GuestVM interface {
	// Memory returns the guest's current linear-memory view.
	Memory() Memory

	// Call invokes the named export, which per §6 "Module loading" takes no
	// arguments and returns none. A guest trap (division, invalid opcode,
	// an unresolved import, ...) is returned as-is; the driver wraps it with
	// the export name and aborts the attempt. No distinct guest_trap error
	// kind is assigned to it.
	Call(ctx context.Context, export string) error

	// CallIndirect invokes the guest function at tableIndex with args,
	// modeling the cb_alloc capability: a host-supplied callable into the
	// guest, referenced by function-table index (§9 Design Notes). isI32 is
	// false if the guest function's return value is not a single i32 —
	// callers must treat that as bad_callback_return, never as 0.
	CallIndirect(ctx context.Context, tableIndex uint32, args ...uint32) (result uint32, isI32 bool, err error)
}

// Querier is the narrow slice of query.Session the query_database host call
// needs: decode a guest-built request, cap it by the snapshot's head, and
// return the wire-encoded reply. query.Session satisfies this by signature.
type Querier interface {
	QueryDatabase(ctx context.Context, request []byte, effectiveMaxBlock uint32) ([]byte, error)
}
