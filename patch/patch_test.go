package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadSize(t *testing.T) {
	_, err := New(0, 0, 0, 0)
	require.ErrorIs(t, err, ErrSize)

	_, err = New(0, 0, 9, 0)
	require.ErrorIs(t, err, ErrSize)

	_, err = FromBytes(nil, 0)
	require.ErrorIs(t, err, ErrSize)
}

func TestApplyFullBytes(t *testing.T) {
	p, err := FromBytes([]byte{0x00, 0x10}, 4)
	require.NoError(t, err)
	assert.True(t, p.FullBytes())

	b := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, p.Apply(b, 0))
	assert.Equal(t, []byte{1, 2, 3, 4, 0x00, 0x10, 7, 8}, b)
}

func TestApplyMaskedPreservesOtherBits(t *testing.T) {
	// Low 16 bits of a little-endian instruction word.
	p, err := New(0x1234, 0xFFFF, 4, 0)
	require.NoError(t, err)
	assert.False(t, p.FullBytes())

	b := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	require.NoError(t, p.Apply(b, 0))
	assert.Equal(t, []byte{0x34, 0x12, 0xCC, 0xDD}, b)
}

func TestApplySubByteMask(t *testing.T) {
	p, err := New(0x05, 0x0F, 1, 1)
	require.NoError(t, err)

	b := []byte{0xFF, 0xA0, 0xFF}
	require.NoError(t, p.Apply(b, 0))
	assert.Equal(t, byte(0xA5), b[1])
}

func TestApplyOutOfBounds(t *testing.T) {
	p, err := FromBytes([]byte{1, 2}, 3)
	require.NoError(t, err)

	b := make([]byte, 4)
	require.ErrorIs(t, p.Apply(b, 0), ErrBounds)
	require.ErrorIs(t, p.Apply(b, -4), ErrBounds)
	assert.Equal(t, make([]byte, 4), b, "failed apply must not write")

	require.NoError(t, p.Apply(b, -1))
	assert.Equal(t, []byte{0, 0, 1, 2}, b)
}

func TestOffsetHelpers(t *testing.T) {
	p, err := FromBytes([]byte{0xEE}, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(10), p.WithOffset(10).Offset())
	assert.Equal(t, int64(5), p.Shift(3).Offset())
	assert.Equal(t, int64(2), p.Offset(), "helpers return copies")
	assert.Equal(t, []byte{0xEE}, p.Data())
	assert.Equal(t, []byte{0xFF}, p.Mask())
}
