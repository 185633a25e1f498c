package pack

import "errors"

var (
	// ErrInsufficientSpace indicates the objects need more bytes than are free.
	ErrInsufficientSpace = errors.New("pack: objects exceed free space capacity")

	// ErrNoPacking indicates the search ran out of states.
	ErrNoPacking = errors.New("pack: no packing found")

	// ErrStepBudget indicates the search hit Options.MaxSteps.
	ErrStepBudget = errors.New("pack: step budget exhausted")

	// ErrNotAllocated indicates an address query on an unplaced object.
	ErrNotAllocated = errors.New("pack: object has no address")

	// ErrSealed indicates a free block added after objects were registered.
	ErrSealed = errors.New("pack: free space is sealed once objects are added")

	// ErrEmptyObject indicates an object with no bytes to place.
	ErrEmptyObject = errors.New("pack: object is empty")
)
