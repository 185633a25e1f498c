package space

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/joshuapare/romlink/addr"
)

// split records the list segment replaced by one allocation.
// blocks[begin:end] holds the remainders that replaced original.
type split struct {
	begin, end int
	original   FreeBlock
}

// FreeSpace is an address-ordered free list with an undo log.
type FreeSpace struct {
	blocks []FreeBlock
	splits []split
}

// New returns a free space over blocks, sorted by address.
func New(blocks []FreeBlock) *FreeSpace {
	fs := &FreeSpace{blocks: append([]FreeBlock(nil), blocks...)}
	sort.SliceStable(fs.blocks, func(i, j int) bool {
		return fs.blocks[i].Address.Less(fs.blocks[j].Address)
	})
	return fs
}

// Len returns the number of free blocks.
func (fs *FreeSpace) Len() int { return len(fs.blocks) }

// Block returns block i.
func (fs *FreeSpace) Block(i int) FreeBlock { return fs.blocks[i] }

// Blocks returns a copy of the block list.
func (fs *FreeSpace) Blocks() []FreeBlock { return slices.Clone(fs.blocks) }

// Depth returns the number of allocations that can be undone.
func (fs *FreeSpace) Depth() int { return len(fs.splits) }

// AddBlock inserts b keeping the list sorted.
func (fs *FreeSpace) AddBlock(b FreeBlock) {
	i := sort.Search(len(fs.blocks), func(i int) bool {
		return b.Address.Less(fs.blocks[i].Address)
	})
	fs.blocks = slices.Insert(fs.blocks, i, b)
}

// FindBlockThatContains binary-searches for the block covering a.
func (fs *FreeSpace) FindBlockThatContains(a addr.Address) (int, bool) {
	if len(fs.blocks) == 0 || !fs.blocks[0].Address.Compatible(a) {
		return 0, false
	}
	i := sort.Search(len(fs.blocks), func(i int) bool {
		return a.Less(fs.blocks[i].End())
	})
	if i < len(fs.blocks) && fs.blocks[i].Contains(a) {
		return i, true
	}
	return 0, false
}

// FindFirstBlockThatFits returns the lowest-addressed block of at least size bytes.
func (fs *FreeSpace) FindFirstBlockThatFits(size int64) (int, bool) {
	for i, b := range fs.blocks {
		if b.Fits(size) {
			return i, true
		}
	}
	return 0, false
}

// HasBlockThatFits reports whether any block holds size bytes.
func (fs *FreeSpace) HasBlockThatFits(size int64) bool {
	_, ok := fs.FindFirstBlockThatFits(size)
	return ok
}

// FindBlocksThatFit returns the indices of all blocks of at least size bytes.
func (fs *FreeSpace) FindBlocksThatFit(size int64) []int {
	var out []int
	for i, b := range fs.blocks {
		if b.Fits(size) {
			out = append(out, i)
		}
	}
	return out
}

// FindBlocksWithinRange returns candidates for a size-byte object that must lie
// fully inside [lower, upper).
func (fs *FreeSpace) FindBlocksWithinRange(lower, upper addr.Address, size int64) []Candidate {
	var out []Candidate
	for i, b := range fs.blocks {
		if !b.Address.Compatible(lower) || !b.Address.Compatible(upper) {
			continue
		}
		if !b.Address.Less(upper) {
			break
		}
		start := addr.Max(b.Address, lower)
		end := addr.Min(b.End(), upper)
		if !start.Less(end) {
			continue
		}
		if span := end.Sub(start); span >= size {
			out = append(out, Candidate{
				Block:  i,
				Start:  start,
				Size:   span - size,
				Offset: b.Offset + start.Sub(b.Address),
			})
		}
	}
	return out
}

// Capacity returns the total number of free bytes.
func (fs *FreeSpace) Capacity() int64 {
	var total int64
	for _, b := range fs.blocks {
		if total > math.MaxInt64-b.Size {
			return math.MaxInt64
		}
		total += b.Size
	}
	return total
}

// Allocate removes [a, a+length) from block i and records the split.
func (fs *FreeSpace) Allocate(i int, a addr.Address, length int64) error {
	if i < 0 || i >= len(fs.blocks) {
		return fmt.Errorf("%w: %d of %d", ErrBadBlock, i, len(fs.blocks))
	}
	original := fs.blocks[i]
	if length <= 0 || !original.FitsRange(a, length) {
		return fmt.Errorf("%w: [%s, +%d) in %s", ErrRangeNotFree, a, length, original)
	}
	parts := original.Allocate(a, length)
	fs.splits = append(fs.splits, split{begin: i, end: i + len(parts), original: original})
	fs.blocks = slices.Replace(fs.blocks, i, i+1, parts...)
	return nil
}

// AllocateRange removes [a, a+length) from the block containing a.
// It reports false and changes nothing when no free block covers a.
func (fs *FreeSpace) AllocateRange(a addr.Address, length int64) (bool, error) {
	i, ok := fs.FindBlockThatContains(a)
	if !ok {
		return false, nil
	}
	if err := fs.Allocate(i, a, length); err != nil {
		return false, err
	}
	return true, nil
}

// DeallocateLast undoes the most recent allocation.
func (fs *FreeSpace) DeallocateLast() error {
	if len(fs.splits) == 0 {
		return ErrNothingToUndo
	}
	s := fs.splits[len(fs.splits)-1]
	fs.splits = fs.splits[:len(fs.splits)-1]
	fs.blocks = slices.Replace(fs.blocks, s.begin, s.end, s.original)
	return nil
}

// Commit forgets the undo log, keeping the current allocations.
func (fs *FreeSpace) Commit() {
	fs.splits = fs.splits[:0]
}

// Reserve removes every free byte of [a, a+length), whichever blocks hold
// them, and returns the number of bytes removed. Bytes outside the free list
// are ignored. Each touched block records its own split.
func (fs *FreeSpace) Reserve(a addr.Address, length int64) (int64, error) {
	if length <= 0 {
		return 0, nil
	}
	end := a.Add(length)
	var removed int64
	for i := 0; i < len(fs.blocks); {
		b := fs.blocks[i]
		if !b.Address.Compatible(a) {
			i++
			continue
		}
		lo := addr.Max(b.Address, a)
		hi := addr.Min(b.End(), end)
		if !lo.Less(hi) {
			i++
			continue
		}
		n := hi.Sub(lo)
		if err := fs.Allocate(i, lo, n); err != nil {
			return removed, err
		}
		removed += n
		if b.Address.Less(lo) {
			i++ // skip the left remainder
		}
	}
	return removed, nil
}
