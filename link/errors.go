package link

import "errors"

var (
	// ErrConfig indicates inconsistent arguments or documents, detected
	// before any packing or linking work.
	ErrConfig = errors.New("link: configuration error")

	// ErrUnresolvedReference indicates a reference to a path that is neither
	// a link object nor in a loaded allocation file.
	ErrUnresolvedReference = errors.New("link: unresolved reference")

	// ErrMissingAllocation indicates an object without an address at write time.
	ErrMissingAllocation = errors.New("link: object has no allocation")

	// ErrPatchOutsideSection indicates a patch not contained in one section.
	ErrPatchOutsideSection = errors.New("link: patch crosses a section boundary")

	// ErrOutsideFile indicates an object placed past the end of its target file.
	ErrOutsideFile = errors.New("link: object outside target file")
)
