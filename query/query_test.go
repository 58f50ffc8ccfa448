package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfuse-io/wasmql/key"
	"github.com/dfuse-io/wasmql/model"
	"github.com/dfuse-io/wasmql/registry"
	"github.com/dfuse-io/wasmql/store"
	"github.com/dfuse-io/wasmql/wire"
)

func accountKey(name uint64) key.Composite {
	return key.Composite{key.PutName(nil, key.Name(name))}
}

func accountRow(t *testing.T, blockIndex uint32, present bool, name uint64) []byte {
	t.Helper()
	a := &model.Account{BlockIndex: blockIndex, Present: present, Name: name}
	e := wire.NewEncoder(nil)
	a.MarshalWire(e)
	return e.Bytes()
}

// cts2pKey builds the ci1.cts2p composite key: code, table, scope,
// secondary_key, primary_key, per its registered KeySchema.
func cts2pKey(code, table, scope, secondaryKey, primaryKey uint64) key.Composite {
	return key.Composite{
		key.PutName(nil, key.Name(code)),
		key.PutName(nil, key.Name(table)),
		key.PutUint64(nil, scope),
		key.PutUint64(nil, secondaryKey),
		key.PutUint64(nil, primaryKey),
	}
}

func cts2pRow(t *testing.T, blockIndex uint32, present bool, code, table, scope, primaryKey, secondaryKey uint64) []byte {
	t.Helper()
	r := &model.ContractSecondaryIndexWithRow{
		BlockIndex:    blockIndex,
		Present:       present,
		Code:          code,
		Scope:         scope,
		Table:         table,
		PrimaryKey:    primaryKey,
		Payer:         code,
		SecondaryKey:  secondaryKey,
		RowBlockIndex: blockIndex,
		RowPresent:    present,
		RowPayer:      code,
		RowValue:      []byte("joined-row"),
	}
	e := wire.NewEncoder(nil)
	r.MarshalWire(e)
	return e.Bytes()
}

func TestRun_LatestPerKeyBelowMaxBlock(t *testing.T) {
	v, ok := registry.Lookup(key.MustParseName("account"))
	require.True(t, ok)

	fs := store.NewFakeStore()
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(1), BlockIndex: 5, Present: true, Row: accountRow(t, 5, true, 1)})
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(1), BlockIndex: 10, Present: true, Row: accountRow(t, 10, true, 1)})
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(1), BlockIndex: 20, Present: false, Row: accountRow(t, 20, false, 1)})

	session, err := fs.CreateQuerySession(context.Background())
	require.NoError(t, err)

	bounds := &registry.Bounds{MaxBlock: 15, First: accountKey(0), Last: accountKey(^uint64(0)), MaxResults: 10}
	rows, err := Run(context.Background(), session, v, bounds)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var got model.Account
	require.NoError(t, got.UnmarshalWire(wire.NewDecoder(rows[0])))
	assert.EqualValues(t, 10, got.BlockIndex)
	assert.True(t, got.Present)
}

func TestRun_TombstoneSurfacedWhenLatest(t *testing.T) {
	v, _ := registry.Lookup(key.MustParseName("account"))

	fs := store.NewFakeStore()
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(1), BlockIndex: 5, Present: true, Row: accountRow(t, 5, true, 1)})
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(1), BlockIndex: 20, Present: false, Row: accountRow(t, 20, false, 1)})

	session, _ := fs.CreateQuerySession(context.Background())
	bounds := &registry.Bounds{MaxBlock: 100, First: accountKey(0), Last: accountKey(^uint64(0)), MaxResults: 10}
	rows, err := Run(context.Background(), session, v, bounds)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var got model.Account
	require.NoError(t, got.UnmarshalWire(wire.NewDecoder(rows[0])))
	assert.False(t, got.Present)
}

func TestRun_MultipleKeysRespectsMaxResults(t *testing.T) {
	v, _ := registry.Lookup(key.MustParseName("account"))

	fs := store.NewFakeStore()
	for _, name := range []uint64{1, 2, 3, 4} {
		fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(name), BlockIndex: 1, Present: true, Row: accountRow(t, 1, true, name)})
	}

	session, _ := fs.CreateQuerySession(context.Background())
	bounds := &registry.Bounds{MaxBlock: 100, First: accountKey(0), Last: accountKey(^uint64(0)), MaxResults: 2}
	rows, err := Run(context.Background(), session, v, bounds)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRun_EmptyOnZeroMaxResultsOrMaxBlock(t *testing.T) {
	v, _ := registry.Lookup(key.MustParseName("account"))
	fs := store.NewFakeStore()
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(1), BlockIndex: 1, Present: true, Row: accountRow(t, 1, true, 1)})
	session, _ := fs.CreateQuerySession(context.Background())

	rows, err := Run(context.Background(), session, v, &registry.Bounds{MaxBlock: 0, First: accountKey(0), Last: accountKey(^uint64(0)), MaxResults: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = Run(context.Background(), session, v, &registry.Bounds{MaxBlock: 10, First: accountKey(0), Last: accountKey(^uint64(0)), MaxResults: 0})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRun_EmptyWhenFirstAfterLast(t *testing.T) {
	v, _ := registry.Lookup(key.MustParseName("account"))
	fs := store.NewFakeStore()
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(5), BlockIndex: 1, Present: true, Row: accountRow(t, 1, true, 5)})
	session, _ := fs.CreateQuerySession(context.Background())

	rows, err := Run(context.Background(), session, v, &registry.Bounds{MaxBlock: 10, First: accountKey(^uint64(0)), Last: accountKey(0), MaxResults: 10})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSession_QueryDatabase_ClampsMaxBlockToHead(t *testing.T) {
	v, _ := registry.Lookup(key.MustParseName("account"))

	fs := store.NewFakeStore()
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(1), BlockIndex: 5, Present: true, Row: accountRow(t, 5, true, 1)})
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: accountKey(1), BlockIndex: 50, Present: true, Row: accountRow(t, 50, true, 1)})

	host := &Host{Store: fs}
	session, err := host.CreateQuerySession(context.Background())
	require.NoError(t, err)

	e := wire.NewEncoder(nil)
	e.WriteName(uint64(v.ShortName))
	e.WriteUint32(1000) // requested max_block, above the simulated head
	e.WriteName(0)
	e.WriteName(^uint64(0))
	e.WriteUint32(10)

	reply, err := session.QueryDatabase(context.Background(), e.Bytes(), 10 /* effective head */)
	require.NoError(t, err)

	blobs, err := wire.DecodeBlobVector(reply)
	require.NoError(t, err)
	require.Len(t, blobs, 1)

	var got model.Account
	require.NoError(t, got.UnmarshalWire(wire.NewDecoder(blobs[0])))
	assert.EqualValues(t, 5, got.BlockIndex)
}

func TestRun_ContractSecondaryIndexWithRow_JoinsRowOnLatestVersion(t *testing.T) {
	v, ok := registry.Lookup(key.MustParseName("ci1.cts2p"))
	require.True(t, ok)

	fs := store.NewFakeStore()
	k := cts2pKey(10, 30, 20, 60, 40)
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: k, BlockIndex: 5, Present: true, Row: cts2pRow(t, 5, true, 10, 30, 20, 40, 60)})
	fs.AddVersion(v.ShortName, store.Version{NaturalKey: k, BlockIndex: 50, Present: true, Row: cts2pRow(t, 50, true, 10, 30, 20, 40, 60)})

	session, err := fs.CreateQuerySession(context.Background())
	require.NoError(t, err)

	bounds := &registry.Bounds{
		MaxBlock:   15,
		First:      cts2pKey(0, 0, 0, 0, 0),
		Last:       cts2pKey(^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)),
		MaxResults: 10,
	}
	rows, err := Run(context.Background(), session, v, bounds)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var got model.ContractSecondaryIndexWithRow
	require.NoError(t, got.UnmarshalWire(wire.NewDecoder(rows[0])))
	assert.EqualValues(t, 5, got.RowBlockIndex)
	assert.True(t, got.RowPresent)
	assert.EqualValues(t, 60, got.SecondaryKey)
	assert.Equal(t, []byte("joined-row"), got.RowValue)
}

func TestSession_QueryDatabase_UnknownVariant(t *testing.T) {
	fs := store.NewFakeStore()
	host := &Host{Store: fs}
	session, err := host.CreateQuerySession(context.Background())
	require.NoError(t, err)

	e := wire.NewEncoder(nil)
	e.WriteName(uint64(key.MustParseName("no.such.thing")))

	_, err = session.QueryDatabase(context.Background(), e.Bytes(), 10)
	assert.Error(t, err)
}
