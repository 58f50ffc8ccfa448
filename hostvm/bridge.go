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

	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

var zlog = zap.NewNop()

func init() {
	logging.Register("github.com/dfuse-io/wasmql/hostvm", &zlog)
}

// FaultKind names one of the fatal host-side outcomes of §7 that originate
// inside the bridge itself, as opposed to empty_database/too_many_forks/
// unknown_namespace, which the driver raises on its own.
type FaultKind string

const (
	FaultBadMemory         FaultKind = "bad_memory"
	FaultGuestAbort        FaultKind = "guest_abort"
	FaultBadCallbackReturn FaultKind = "bad_callback_return"
)

// Fault is a fatal host-call error; per §7 propagation policy it always
// terminates the current attempt outright, never triggers a retry.
type Fault struct {
	Kind    FaultKind
	Message string
}

func (f *Fault) Error() string {
	if f.Message == "" {
		return fmt.Sprintf("hostvm: %s", f.Kind)
	}
	return fmt.Sprintf("hostvm: %s: %s", f.Kind, f.Message)
}

func badMemory(detail string) *Fault          { return &Fault{Kind: FaultBadMemory, Message: detail} }
func badCallbackReturn() *Fault               { return &Fault{Kind: FaultBadCallbackReturn} }
func guestAbort(message string) *Fault        { return &Fault{Kind: FaultGuestAbort, Message: message} }

// Bridge implements the host function table a guest module imports under
// namespace "env" (§4.F). The driver builds one Bridge per sub-request of
// an attempt: DatabaseStatusBlob (from FILL_CONTEXT) and InputData are set
// before the guest runs, Output holds the last set_output_data write, and
// the whole value is discarded afterward.
type Bridge struct {
	VM      GuestVM
	Querier Querier

	DatabaseStatusBlob []byte
	InputData          []byte
	EffectiveMaxBlock  uint32

	Output []byte

	PrintEnabled bool
	PrintSink    func(string)
}

// Abort implements the guest-initiated "abort()" import: unconditionally
// fatal, with no message.
func (b *Bridge) Abort() error {
	return guestAbort("")
}

// EosioAssertMessage implements "eosio_assert_message(cond, msg_ptr,
// msg_len)": a no-op when cond is true, otherwise a guest_abort fault
// carrying the guest-supplied message verbatim.
func (b *Bridge) EosioAssertMessage(cond int32, msgPtr, msgLen uint32) error {
	if cond != 0 {
		return nil
	}
	msg, err := b.VM.Memory().Read(msgPtr, msgPtr+msgLen)
	if err != nil {
		return badMemory(err.Error())
	}
	return guestAbort(string(msg))
}

// GetDatabaseStatus implements "get_database_status(cb_alloc_data,
// cb_alloc)": delivers the serialized database_status blob seeded at
// FILL_CONTEXT.
func (b *Bridge) GetDatabaseStatus(ctx context.Context, cbAllocData, cbAlloc uint32) error {
	return b.deliver(ctx, cbAllocData, cbAlloc, b.DatabaseStatusBlob)
}

// GetInputData implements "get_input_data(cb_alloc_data, cb_alloc)":
// delivers the current sub-request's payload, i.e. the bytes after
// namespace and short_name (§4.H).
func (b *Bridge) GetInputData(ctx context.Context, cbAllocData, cbAlloc uint32) error {
	return b.deliver(ctx, cbAllocData, cbAlloc, b.InputData)
}

// SetOutputData implements "set_output_data(begin, end)": copies guest
// bytes into the reply buffer, replacing any prior content (§4.F).
func (b *Bridge) SetOutputData(begin, end uint32) error {
	data, err := b.VM.Memory().Read(begin, end)
	if err != nil {
		return badMemory(err.Error())
	}
	b.Output = append([]byte(nil), data...)
	return nil
}

// QueryDatabase implements "query_database(req_begin, req_end,
// cb_alloc_data, cb_alloc)": forwards the guest-built request blob to the
// snapshot session, capped by EffectiveMaxBlock, and delivers the reply
// through the same callback-allocation protocol as the other accessors.
func (b *Bridge) QueryDatabase(ctx context.Context, reqBegin, reqEnd, cbAllocData, cbAlloc uint32) error {
	req, err := b.VM.Memory().Read(reqBegin, reqEnd)
	if err != nil {
		return badMemory(err.Error())
	}
	reply, err := b.Querier.QueryDatabase(ctx, req, b.EffectiveMaxBlock)
	if err != nil {
		return err
	}
	return b.deliver(ctx, cbAllocData, cbAlloc, reply)
}

// PrintRange implements "print_range(begin, end)": writes guest bytes to
// the diagnostic sink iff PrintEnabled is set, otherwise a no-op.
func (b *Bridge) PrintRange(begin, end uint32) error {
	if !b.PrintEnabled || b.PrintSink == nil {
		return nil
	}
	data, err := b.VM.Memory().Read(begin, end)
	if err != nil {
		return badMemory(err.Error())
	}
	b.PrintSink(string(data))
	return nil
}

// deliver is the callback-allocation protocol (§4.F): invoke the guest's
// cb_alloc function with (cbAllocData, len(payload)), expect a single i32
// guest offset back, then write payload there.
func (b *Bridge) deliver(ctx context.Context, cbAllocData, cbAlloc uint32, payload []byte) error {
	size := uint32(len(payload))
	offset, isI32, err := b.VM.CallIndirect(ctx, cbAlloc, cbAllocData, size)
	if err != nil {
		return err
	}
	if !isI32 {
		return badCallbackReturn()
	}
	if err := b.VM.Memory().Write(offset, payload); err != nil {
		zlog.Debug("cb_alloc offset failed bounds check",
			zap.Uint32("offset", offset), zap.Uint32("size", size))
		return badMemory(err.Error())
	}
	return nil
}
