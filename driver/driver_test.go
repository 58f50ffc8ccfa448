package driver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfuse-io/wasmql/hostvm"
	"github.com/dfuse-io/wasmql/key"
	"github.com/dfuse-io/wasmql/wire"
)

type subReqSpec struct {
	shortName string
	payload   []byte
}

func buildMultiRequest(t *testing.T, subs []subReqSpec) []byte {
	t.Helper()
	e := wire.NewEncoder(nil)
	e.WriteVarUint32(uint32(len(subs)))
	for _, s := range subs {
		e.WriteName(uint64(localNamespace))
		e.WriteName(uint64(key.MustParseName(s.shortName)))
		e.WriteBytes(s.payload)
	}
	return e.Bytes()
}

func TestDriver_EmptyDatabase(t *testing.T) {
	factory := &FakeSessionFactory{Sessions: []*FakeSession{
		{Head: 0},
	}}
	loader := &FakeModuleLoader{Run: func(ctx context.Context, path string, bridge *hostvm.Bridge) error {
		t.Fatal("guest must not be invoked against an empty database")
		return nil
	}}
	d := &Driver{Sessions: factory, Loader: loader, WasmDir: "/wasm"}

	req := buildMultiRequest(t, []subReqSpec{{shortName: "account", payload: []byte("x")}})
	_, err := d.RunMultiRequest(context.Background(), req)

	require.Error(t, err)
	var driverErr *Error
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, ErrEmptyDatabase, driverErr.Kind)
}

func TestDriver_UnknownNamespaceRejectedBeforeOpeningSnapshot(t *testing.T) {
	factory := &FakeSessionFactory{Sessions: []*FakeSession{{Head: 10}}}
	loader := &FakeModuleLoader{Run: func(ctx context.Context, path string, bridge *hostvm.Bridge) error {
		t.Fatal("guest must not be invoked for an unknown namespace")
		return nil
	}}
	d := &Driver{Sessions: factory, Loader: loader, WasmDir: "/wasm"}

	e := wire.NewEncoder(nil)
	e.WriteVarUint32(1)
	e.WriteName(uint64(key.MustParseName("remote")))
	e.WriteName(uint64(key.MustParseName("account")))
	e.WriteBytes([]byte("x"))

	_, err := d.RunMultiRequest(context.Background(), e.Bytes())
	require.Error(t, err)
	var driverErr *Error
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, ErrUnknownNamespace, driverErr.Kind)
}

func TestDriver_SingleBlockSingleReply(t *testing.T) {
	headID := [32]byte{0x11}
	factory := &FakeSessionFactory{Sessions: []*FakeSession{
		{Head: 1, HeadID: headID, BlockIDs: map[uint32][32]byte{1: headID}},
	}}
	loader := &FakeModuleLoader{Run: func(ctx context.Context, path string, bridge *hostvm.Bridge) error {
		bridge.Output = []byte("trace-blob")
		return nil
	}}
	d := &Driver{Sessions: factory, Loader: loader, WasmDir: "/wasm"}

	req := buildMultiRequest(t, []subReqSpec{{shortName: "at.e.nra", payload: []byte("bounds")}})
	reply, err := d.RunMultiRequest(context.Background(), req)
	require.NoError(t, err)

	blobs, err := wire.DecodeBlobVector(reply)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, []byte("trace-blob"), blobs[0])
}

func TestDriver_PersistentForkExhaustsRetryBudget(t *testing.T) {
	headID := [32]byte{0x22}
	sessions := make([]*FakeSession, MaxAttempts)
	for i := range sessions {
		sessions[i] = &FakeSession{Head: 5, HeadID: headID, BlockIDs: map[uint32][32]byte{5: {0xDE, 0xAD}}}
	}
	factory := &FakeSessionFactory{Sessions: sessions}
	loader := &FakeModuleLoader{Run: func(ctx context.Context, path string, bridge *hostvm.Bridge) error {
		bridge.Output = []byte("never-committed")
		return nil
	}}
	d := &Driver{Sessions: factory, Loader: loader, WasmDir: "/wasm"}

	req := buildMultiRequest(t, []subReqSpec{{shortName: "account", payload: []byte("x")}})
	_, err := d.RunMultiRequest(context.Background(), req)

	require.Error(t, err)
	var driverErr *Error
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, ErrTooManyForks, driverErr.Kind)
	assert.Equal(t, MaxAttempts, factory.attempt)
}

func TestDriver_ForkMissingHeadRetriesThenCommits(t *testing.T) {
	headID := [32]byte{0x44}
	factory := &FakeSessionFactory{Sessions: []*FakeSession{
		{Head: 7, HeadID: headID, BlockIDs: map[uint32][32]byte{}},          // head not found: fork_missing_head
		{Head: 7, HeadID: headID, BlockIDs: map[uint32][32]byte{7: headID}}, // matches: commit
	}}
	loader := &FakeModuleLoader{Run: func(ctx context.Context, path string, bridge *hostvm.Bridge) error {
		bridge.Output = []byte("ok")
		return nil
	}}
	d := &Driver{Sessions: factory, Loader: loader, WasmDir: "/wasm"}

	req := buildMultiRequest(t, []subReqSpec{{shortName: "account", payload: []byte("x")}})
	reply, err := d.RunMultiRequest(context.Background(), req)
	require.NoError(t, err)

	blobs, err := wire.DecodeBlobVector(reply)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, []byte("ok"), blobs[0])
	assert.Equal(t, 2, factory.attempt)
}

func TestDriver_MultiSubRequestAtomicityRestartsWholeBatch(t *testing.T) {
	headID0 := [32]byte{0xAA}
	headID1 := [32]byte{0xBB}
	factory := &FakeSessionFactory{Sessions: []*FakeSession{
		{Head: 10, HeadID: headID0, BlockIDs: map[uint32][32]byte{10: {0xFF}}}, // mismatch: fork
		{Head: 10, HeadID: headID1, BlockIDs: map[uint32][32]byte{10: headID1}}, // matches: commit
	}}

	var calls int
	loader := &FakeModuleLoader{Run: func(ctx context.Context, path string, bridge *hostvm.Bridge) error {
		calls++
		bridge.Output = []byte(fmt.Sprintf("%s#%d", path, calls))
		return nil
	}}
	d := &Driver{Sessions: factory, Loader: loader, WasmDir: "/wasm"}

	req := buildMultiRequest(t, []subReqSpec{
		{shortName: "account", payload: []byte("A")},
		{shortName: "block.info", payload: []byte("B")},
	})

	reply, err := d.RunMultiRequest(context.Background(), req)
	require.NoError(t, err)

	// Both sub-requests ran once per attempt: 2 in the forked attempt, 2 more
	// in the committed attempt.
	assert.Equal(t, 4, calls)

	blobs, err := wire.DecodeBlobVector(reply)
	require.NoError(t, err)
	require.Len(t, blobs, 2)
	// The committed reply must come entirely from the second attempt (calls
	// #3 and #4), never from the pre-fork attempt (#1, #2).
	assert.Equal(t, fmt.Sprintf("%s#3", d.ModulePath("account")), string(blobs[0]))
	assert.Equal(t, fmt.Sprintf("%s#4", d.ModulePath("block.info")), string(blobs[1]))
}

func TestDriver_LegacyPathReplyIsUnframed(t *testing.T) {
	headID := [32]byte{0x33}
	factory := &FakeSessionFactory{Sessions: []*FakeSession{
		{Head: 1, HeadID: headID, BlockIDs: map[uint32][32]byte{1: headID}},
	}}
	d := &Driver{Sessions: factory, WasmDir: "/wasm"}
	d.Loader = &FakeModuleLoader{Run: func(ctx context.Context, path string, bridge *hostvm.Bridge) error {
		assert.Equal(t, d.ModulePath("legacy"), path)
		bridge.Output = []byte("raw-legacy-output")
		return nil
	}}

	reply, err := d.RunLegacyRequest(context.Background(), "eosio.token", []byte("get_table_rows-args"))
	require.NoError(t, err)
	assert.Equal(t, []byte("raw-legacy-output"), reply)
}
