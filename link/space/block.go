package space

import (
	"fmt"

	"github.com/joshuapare/romlink/addr"
)

// FreeBlock is a contiguous unused byte range inside one target.
// Offset is the file offset of the block's first byte.
type FreeBlock struct {
	Address addr.Address
	Size    int64
	Offset  int64
}

// End returns the first address past the block.
func (b FreeBlock) End() addr.Address { return b.Address.Add(b.Size) }

// IsValid reports whether the block covers at least one byte.
func (b FreeBlock) IsValid() bool { return b.Size > 0 && b.Address.IsValid() }

// Contains reports whether a lies inside the block.
func (b FreeBlock) Contains(a addr.Address) bool {
	return b.Address.Compatible(a) && !a.Less(b.Address) && a.Less(b.End())
}

// Overlaps reports whether b and o share at least one address.
func (b FreeBlock) Overlaps(o FreeBlock) bool {
	return b.Address.Compatible(o.Address) && b.Address.Less(o.End()) && o.Address.Less(b.End())
}

// CheckDisjoint returns ErrOverlap if any two blocks share an address.
func CheckDisjoint(blocks []FreeBlock) error {
	for i := range blocks {
		for j := i + 1; j < len(blocks); j++ {
			if blocks[i].Overlaps(blocks[j]) {
				return fmt.Errorf("%w: %s and %s", ErrOverlap, blocks[i], blocks[j])
			}
		}
	}
	return nil
}

// Fits reports whether size bytes fit anywhere in the block.
func (b FreeBlock) Fits(size int64) bool { return b.Size >= size }

// FitsRange reports whether [a, a+length) lies inside the block.
func (b FreeBlock) FitsRange(a addr.Address, length int64) bool {
	if !b.Address.Compatible(a) || a.Less(b.Address) || length < 0 {
		return false
	}
	return b.Size-a.Sub(b.Address) >= length
}

// Allocate returns the blocks left after removing [a, a+length).
// The caller must have checked FitsRange. The result holds 0, 1 or 2 blocks
// in address order whose sizes sum to b.Size - length.
func (b FreeBlock) Allocate(a addr.Address, length int64) []FreeBlock {
	if length == b.Size {
		return nil
	}
	lead := a.Sub(b.Address)
	tail := b.Size - lead - length
	switch {
	case lead == 0:
		return []FreeBlock{{Address: a.Add(length), Size: tail, Offset: b.Offset + length}}
	case tail == 0:
		return []FreeBlock{{Address: b.Address, Size: lead, Offset: b.Offset}}
	default:
		return []FreeBlock{
			{Address: b.Address, Size: lead, Offset: b.Offset},
			{Address: a.Add(length), Size: tail, Offset: b.Offset + lead + length},
		}
	}
}

func (b FreeBlock) String() string {
	return fmt.Sprintf("(%s, %d)", b.Address, b.Size)
}

// Candidate is a range of start addresses at which an object could be placed.
// Valid starts are Start .. Start+Size inclusive; Size is the slack.
type Candidate struct {
	Block  int
	Start  addr.Address
	Size   int64
	Offset int64 // file offset of Start
}

// Allocation is the placement committed for an object.
type Allocation struct {
	Address addr.Address
	Offset  int64
	Size    int64 // slack of the containing block at commit time
	Block   int
}
