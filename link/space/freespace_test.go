package space

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpace() *FreeSpace {
	return New([]FreeBlock{
		block(0x3000, 0x40),
		block(0x1000, 0x100),
		block(0x2000, 0x20),
	})
}

func TestNewSortsBlocks(t *testing.T) {
	fs := newTestSpace()
	require.Equal(t, 3, fs.Len())
	assert.Equal(t, uint64(0x1000), fs.Block(0).Address.Value())
	assert.Equal(t, uint64(0x2000), fs.Block(1).Address.Value())
	assert.Equal(t, uint64(0x3000), fs.Block(2).Address.Value())
	assert.Equal(t, int64(0x160), fs.Capacity())
}

func TestFindBlockThatContains(t *testing.T) {
	fs := newTestSpace()
	cases := []struct {
		a     uint64
		index int
		found bool
	}{
		{0x1000, 0, true},
		{0x10FF, 0, true},
		{0x1100, 0, false},
		{0x2010, 1, true},
		{0x303F, 2, true},
		{0x3040, 0, false},
		{0x0FFF, 0, false},
	}
	for _, tc := range cases {
		i, ok := fs.FindBlockThatContains(at(tc.a))
		assert.Equal(t, tc.found, ok, "0x%X", tc.a)
		if tc.found {
			assert.Equal(t, tc.index, i, "0x%X", tc.a)
		}
	}
}

func TestFindBlocksThatFit(t *testing.T) {
	fs := newTestSpace()
	assert.Equal(t, []int{0, 2}, fs.FindBlocksThatFit(0x30))
	i, ok := fs.FindFirstBlockThatFits(0x41)
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.False(t, fs.HasBlockThatFits(0x101))
}

func TestFindBlocksWithinRange(t *testing.T) {
	fs := newTestSpace()
	cands := fs.FindBlocksWithinRange(at(0x1080), at(0x2010), 0x10)
	require.Len(t, cands, 2)

	assert.Equal(t, 0, cands[0].Block)
	assert.Equal(t, uint64(0x1080), cands[0].Start.Value())
	assert.Equal(t, int64(0x70), cands[0].Size)
	assert.Equal(t, int64(0x1080), cands[0].Offset)

	assert.Equal(t, 1, cands[1].Block)
	assert.Equal(t, uint64(0x2000), cands[1].Start.Value())
	assert.Equal(t, int64(0), cands[1].Size, "exact fit has zero slack")

	assert.Empty(t, fs.FindBlocksWithinRange(at(0x2010), at(0x2018), 0x10))
}

func TestAllocateAndUndo(t *testing.T) {
	fs := newTestSpace()
	before := fs.Blocks()

	require.NoError(t, fs.Allocate(0, at(0x1010), 0x10))
	require.Equal(t, 4, fs.Len())
	assert.Equal(t, int64(0x150), fs.Capacity())
	assert.Equal(t, int64(0x10), fs.Block(0).Size)
	assert.Equal(t, uint64(0x1020), fs.Block(1).Address.Value())

	require.NoError(t, fs.Allocate(2, at(0x2000), 0x20))
	require.Equal(t, 3, fs.Len(), "exact fit removes the block")

	require.NoError(t, fs.DeallocateLast())
	require.NoError(t, fs.DeallocateLast())
	assert.Equal(t, before, fs.Blocks())
	require.ErrorIs(t, fs.DeallocateLast(), ErrNothingToUndo)
}

func TestAllocateRejects(t *testing.T) {
	fs := newTestSpace()
	require.ErrorIs(t, fs.Allocate(5, at(0x1000), 1), ErrBadBlock)
	require.ErrorIs(t, fs.Allocate(0, at(0x10F8), 0x10), ErrRangeNotFree)
	require.ErrorIs(t, fs.Allocate(0, at(0x1000), 0), ErrRangeNotFree)
	assert.Equal(t, 0, fs.Depth())
}

func TestAllocateRange(t *testing.T) {
	fs := newTestSpace()

	ok, err := fs.AllocateRange(at(0x1050), 0x10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, fs.Depth())

	before := fs.Blocks()
	ok, err = fs.AllocateRange(at(0x5000), 0x10)
	require.NoError(t, err)
	assert.False(t, ok, "uncovered ranges are ignored")
	assert.Equal(t, before, fs.Blocks())
	assert.Equal(t, 1, fs.Depth())
}

func TestAddBlockKeepsOrder(t *testing.T) {
	fs := newTestSpace()
	fs.AddBlock(block(0x1800, 0x8))
	assert.Equal(t, uint64(0x1800), fs.Block(1).Address.Value())
}

// TestBacktrackingReversibility runs random allocation sequences and checks
// that undoing them in LIFO order restores the block list element for element.
func TestBacktrackingReversibility(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		fs := newTestSpace()
		original := fs.Blocks()
		initial := fs.Capacity()

		var allocated int64
		n := 0
		for step := 0; step < 12 && fs.Len() > 0; step++ {
			i := rng.Intn(fs.Len())
			b := fs.Block(i)
			length := 1 + rng.Int63n(b.Size)
			lead := rng.Int63n(b.Size - length + 1)
			require.NoError(t, fs.Allocate(i, b.Address.Add(lead), length))
			allocated += length
			n++
			require.Equal(t, initial, fs.Capacity()+allocated)
			for k := 1; k < fs.Len(); k++ {
				require.False(t, fs.Block(k).Address.Less(fs.Block(k-1).End()), "blocks overlap")
			}
		}
		for ; n > 0; n-- {
			require.NoError(t, fs.DeallocateLast())
		}
		require.Equal(t, original, fs.Blocks(), "round %d", round)
	}
}

func TestCommitDropsUndoLog(t *testing.T) {
	fs := newTestSpace()
	require.NoError(t, fs.Allocate(0, at(0x1000), 0x10))
	fs.Commit()
	assert.Equal(t, 0, fs.Depth())
	require.ErrorIs(t, fs.DeallocateLast(), ErrNothingToUndo)
	assert.Equal(t, int64(0x150), fs.Capacity())
}

func TestReserveAcrossBlocks(t *testing.T) {
	fs := New([]FreeBlock{block(0x1000, 0x10), block(0x1010, 0x10), block(0x2000, 0x10)})

	n, err := fs.Reserve(at(0xFF8), 0x20)
	require.NoError(t, err)
	assert.Equal(t, int64(0x18), n)
	assert.Equal(t, 2, fs.Depth())
	require.Equal(t, 2, fs.Len())
	assert.Equal(t, block(0x1018, 0x8), fs.Block(0))
	assert.Equal(t, block(0x2000, 0x10), fs.Block(1))

	require.NoError(t, fs.DeallocateLast())
	require.NoError(t, fs.DeallocateLast())
	assert.Equal(t, 3, fs.Len())
}

func TestReserveInsideOneBlock(t *testing.T) {
	fs := newTestSpace()
	n, err := fs.Reserve(at(0x1050), 0x10)
	require.NoError(t, err)
	assert.Equal(t, int64(0x10), n)
	assert.Equal(t, block(0x1000, 0x50), fs.Block(0))
	assert.Equal(t, block(0x1060, 0xA0), fs.Block(1))

	n, err = fs.Reserve(at(0x5000), 0x10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
