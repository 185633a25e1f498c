// Package space provides free-space bookkeeping for the packer.
//
// # Overview
//
// A FreeSpace is an address-ordered list of non-overlapping FreeBlocks. Every
// allocation carves a range out of one block, leaving zero, one or two
// remainders, and pushes a split record onto an undo log. DeallocateLast pops
// the record and restores the block list segment exactly, which is what makes
// each backtracking step O(1) in the number of blocks touched instead of
// requiring a snapshot of the whole list.
//
//	fs := space.New(blocks)
//	if err := fs.Allocate(i, a, 0x10); err != nil {
//	    return err
//	}
//	// ... explore ...
//	_ = fs.DeallocateLast() // blocks are byte-identical to before Allocate
//
// # Invariants
//
//   - blocks never overlap and are sorted by address
//   - every block has Size > 0
//   - n Allocate calls followed by n DeallocateLast calls restore the list
//   - Capacity() + allocated bytes == initial capacity
//
// FreeSpace is not safe for concurrent use.
package space
