// Package object describes the relocatable objects handed to the linker by
// the decode engine: a path, logical bytes, the on-disk sections those bytes
// are written to, and references to other objects that still need an address.
package object

import (
	"errors"
	"fmt"
	"sort"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/patch"
)

var (
	// ErrInvalid indicates an object whose sections or references are inconsistent.
	ErrInvalid = errors.New("object: invalid object")

	// ErrNoSuchReference indicates a reference index out of range.
	ErrNoSuchReference = errors.New("object: no such reference")
)

// Section maps a run of logical bytes onto the target file.
// Offset is the position in Data, RealOffset the position relative to the
// object's allocated file offset. Gaps between sections are left untouched.
type Section struct {
	Offset     int64
	RealOffset int64
	Size       int64
}

// UnresolvedReference is a pointer inside the object to another object.
type UnresolvedReference struct {
	Offset     int64 // logical offset within the object
	Referenced string
	Layout     addr.Layout
}

// Object is a relocatable unit. The linker only borrows it.
type Object struct {
	Path       string
	Data       []byte
	Sections   []Section
	References []UnresolvedReference
}

// New returns an object whose data is written as one contiguous section.
func New(path string, data []byte) *Object {
	return &Object{
		Path:     path,
		Data:     data,
		Sections: []Section{{Offset: 0, RealOffset: 0, Size: int64(len(data))}},
	}
}

// AddSection appends a section holding the next size logical bytes at realOffset.
func (o *Object) AddSection(realOffset, size int64) {
	o.Sections = append(o.Sections, Section{
		Offset:     o.mappedSize(),
		RealOffset: realOffset,
		Size:       size,
	})
}

// AddReference records a reference at logical offset off.
func (o *Object) AddReference(off int64, referenced string, layout addr.Layout) {
	o.References = append(o.References, UnresolvedReference{
		Offset:     off,
		Referenced: referenced,
		Layout:     layout,
	})
}

// LogicalSize is the number of logical bytes.
func (o *Object) LogicalSize() int64 { return int64(len(o.Data)) }

// Size is the extent of the object in the target file, gaps included.
// It is the amount of free space the object occupies.
func (o *Object) Size() int64 {
	var end int64
	for _, s := range o.Sections {
		end = max(end, s.RealOffset+s.Size)
	}
	return end
}

func (o *Object) mappedSize() int64 {
	if len(o.Sections) == 0 {
		return 0
	}
	last := o.Sections[len(o.Sections)-1]
	return last.Offset + last.Size
}

// Validate checks that sections tile the data in order without overlapping
// on disk, and that references lie inside the data.
func (o *Object) Validate() error {
	if o.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalid)
	}
	if len(o.Sections) == 0 {
		return fmt.Errorf("%w: %s has no sections", ErrInvalid, o.Path)
	}
	var logical, onDisk int64
	for i, s := range o.Sections {
		if s.Size <= 0 {
			return fmt.Errorf("%w: %s section %d is empty", ErrInvalid, o.Path, i)
		}
		if s.Offset != logical {
			return fmt.Errorf("%w: %s section %d starts at %d, want %d",
				ErrInvalid, o.Path, i, s.Offset, logical)
		}
		if s.RealOffset < onDisk {
			return fmt.Errorf("%w: %s section %d overlaps its predecessor on disk",
				ErrInvalid, o.Path, i)
		}
		logical += s.Size
		onDisk = s.RealOffset + s.Size
	}
	if logical != o.LogicalSize() {
		return fmt.Errorf("%w: %s sections cover %d bytes, data has %d",
			ErrInvalid, o.Path, logical, o.LogicalSize())
	}
	for i, r := range o.References {
		if r.Layout == nil {
			return fmt.Errorf("%w: %s reference %d has no layout", ErrInvalid, o.Path, i)
		}
		if r.Offset < 0 || r.Offset >= logical {
			return fmt.Errorf("%w: %s reference %d at %d outside data", ErrInvalid, o.Path, i, r.Offset)
		}
	}
	return nil
}

// SectionOf returns the index of the section containing logical offset off.
func (o *Object) SectionOf(off int64) (int, bool) {
	i := sort.Search(len(o.Sections), func(i int) bool {
		s := o.Sections[i]
		return s.Offset+s.Size > off
	})
	if i < len(o.Sections) && o.Sections[i].Offset <= off {
		return i, true
	}
	return 0, false
}

// ToRealOffset converts a logical offset into an offset relative to the
// object's position in the target file.
func (o *Object) ToRealOffset(off int64) (int64, bool) {
	i, ok := o.SectionOf(off)
	if !ok {
		return 0, false
	}
	s := o.Sections[i]
	return s.RealOffset + (off - s.Offset), true
}

// SectionData returns a copy of the logical bytes of section i.
func (o *Object) SectionData(i int) []byte {
	s := o.Sections[i]
	return append([]byte(nil), o.Data[s.Offset:s.Offset+s.Size]...)
}

// SolveReference encodes address a for reference i. The returned patches are
// positioned relative to the start of the object's logical data.
func (o *Object) SolveReference(i int, a addr.Address) ([]patch.Patch, error) {
	if i < 0 || i >= len(o.References) {
		return nil, fmt.Errorf("%w: %s #%d", ErrNoSuchReference, o.Path, i)
	}
	ref := o.References[i]
	patches, err := ref.Layout.WriteAddress(a)
	if err != nil {
		return nil, fmt.Errorf("%s reference to %s: %w", o.Path, ref.Referenced, err)
	}
	for k := range patches {
		patches[k] = patches[k].Shift(ref.Offset)
	}
	return patches, nil
}
