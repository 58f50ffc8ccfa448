package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarUint32_RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 300, 16384, 1 << 31, 0xFFFFFFFF}
	for _, v := range cases {
		e := NewEncoder(nil)
		e.WriteVarUint32(v)

		d := NewDecoder(e.Bytes())
		got, err := d.ReadVarUint32()
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, 0, d.Len())
	}
}

func TestBytes_RoundTrip(t *testing.T) {
	e := NewEncoder(nil)
	e.WriteBytes([]byte("hello world"))

	d := NewDecoder(e.Bytes())
	got, err := d.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestPrimitives_RoundTrip(t *testing.T) {
	e := NewEncoder(nil)
	e.WriteUint8(0xAB)
	e.WriteUint16(0x1234)
	e.WriteUint32(0xDEADBEEF)
	e.WriteUint64(0x0102030405060708)
	e.WriteBool(true)

	d := NewDecoder(e.Bytes())
	u8, _ := d.ReadUint8()
	u16, _ := d.ReadUint16()
	u32, _ := d.ReadUint32()
	u64, _ := d.ReadUint64()
	b, _ := d.ReadBool()

	assert.Equal(t, uint8(0xAB), u8)
	assert.Equal(t, uint16(0x1234), u16)
	assert.Equal(t, uint32(0xDEADBEEF), u32)
	assert.Equal(t, uint64(0x0102030405060708), u64)
	assert.True(t, b)
}

func TestDecoder_ShortBufferReturnsError(t *testing.T) {
	d := NewDecoder([]byte{0x01})
	_, err := d.ReadUint32()
	assert.Error(t, err)
}

func TestBlobVector_RoundTrip(t *testing.T) {
	blobs := [][]byte{[]byte("a"), []byte("bb"), {}}
	encoded := EncodeBlobVector(blobs)

	decoded, err := DecodeBlobVector(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	assert.Equal(t, "a", string(decoded[0]))
	assert.Equal(t, "bb", string(decoded[1]))
	assert.Equal(t, "", string(decoded[2]))
}

func TestBlobVector_EmptyVector(t *testing.T) {
	encoded := EncodeBlobVector(nil)
	decoded, err := DecodeBlobVector(encoded)
	require.NoError(t, err)
	assert.Len(t, decoded, 0)
}
