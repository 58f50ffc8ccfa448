package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposite_Successor_CarryChain(t *testing.T) {
	c := Composite{
		PutUint32(nil, 1),
		PutUint8(nil, 0xFF),
	}

	next, wrapped := c.Successor()
	require.False(t, wrapped)
	assert.Equal(t, []byte{0, 0, 0, 2, 0}, next.Encode())
}

func TestComposite_Successor_WrapsToZeroOnMaximum(t *testing.T) {
	c := Composite{
		PutUint8(nil, 0xFF),
		PutUint8(nil, 0xFF),
	}

	next, wrapped := c.Successor()
	require.True(t, wrapped)
	assert.Equal(t, []byte{0, 0}, next.Encode())
}

func TestComposite_Successor_DoesNotMutateReceiver(t *testing.T) {
	c := Composite{PutUint16(nil, 5)}
	_, _ = c.Successor()
	assert.Equal(t, []byte{0, 5}, c.Encode())
}

func TestComposite_Successor_OrderingInvariant(t *testing.T) {
	c := Composite{PutUint64(nil, 41), PutUint32(nil, 900)}
	next, wrapped := c.Successor()
	require.False(t, wrapped)
	assert.True(t, string(c.Encode()) < string(next.Encode()))
}

func TestName_RoundTrip(t *testing.T) {
	n, err := ParseName("eosio.token")
	require.NoError(t, err)
	assert.Equal(t, "eosio.token", n.String())
}

func TestDigestSuccessor_CarriesAcrossFullWidth(t *testing.T) {
	d := Digest{}
	for i := range d {
		d[i] = 0xFF
	}

	buf := PutDigest(nil, d)
	wrapped := incrementBytes(buf)
	assert.True(t, wrapped)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}
