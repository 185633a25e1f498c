package space

import "errors"

var (
	// ErrRangeNotFree indicates an allocation range not inside the given block.
	ErrRangeNotFree = errors.New("space: range is not inside the free block")

	// ErrBadBlock indicates a block index out of range.
	ErrBadBlock = errors.New("space: bad block index")

	// ErrOverlap indicates two free blocks sharing an address.
	ErrOverlap = errors.New("space: free blocks overlap")

	// ErrNothingToUndo indicates DeallocateLast on an empty undo log.
	ErrNothingToUndo = errors.New("space: no allocation to undo")
)
