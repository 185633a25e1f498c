package pack

import (
	"fmt"
	"math"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/link/constraint"
	"github.com/joshuapare/romlink/link/space"
	"github.com/joshuapare/romlink/object"
)

// LinkObject is the packer's view of an object: its size, its placement rule
// and, once placed, its allocation. The underlying object is borrowed.
type LinkObject struct {
	obj        *object.Object
	size       int64
	constraint constraint.Constraint
	fixed      bool
	allocated  bool
	allocation space.Allocation
}

// NewLinkObject wraps o. The packer reserves o.Size() bytes.
func NewLinkObject(o *object.Object) (*LinkObject, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil object", ErrEmptyObject)
	}
	size := o.Size()
	if size <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyObject, o.Path)
	}
	return &LinkObject{obj: o, size: size}, nil
}

func (l *LinkObject) Path() string           { return l.obj.Path }
func (l *LinkObject) Size() int64            { return l.size }
func (l *LinkObject) Object() *object.Object { return l.obj }

// Constrain attaches a search constraint.
func (l *LinkObject) Constrain(c constraint.Constraint) { l.constraint = c }

// Constraint returns the attached constraint, or nil.
func (l *LinkObject) Constraint() constraint.Constraint { return l.constraint }

func (l *LinkObject) IsConstrained() bool { return l.constraint != nil }

// SetFixedAddress pins the object. Pinned objects never enter the search.
func (l *LinkObject) SetFixedAddress(a addr.Address) {
	l.fixed = true
	l.allocated = true
	l.allocation = space.Allocation{Address: a, Block: -1}
}

func (l *LinkObject) HasFixedAddress() bool { return l.fixed }

// SetAllocation records a search result. Pinned objects refuse it.
func (l *LinkObject) SetAllocation(a space.Allocation) error {
	if l.fixed {
		return fmt.Errorf("pack: %s is pinned at %s", l.Path(), l.allocation.Address)
	}
	l.allocation = a
	l.allocated = true
	return nil
}

// UnsetAllocation forgets a search result. It leaves pinned objects alone.
func (l *LinkObject) UnsetAllocation() {
	if l.fixed {
		return
	}
	l.allocation = space.Allocation{}
	l.allocated = false
}

func (l *LinkObject) HasAddress() bool { return l.allocated }

// Address returns the placed address.
func (l *LinkObject) Address() (addr.Address, error) {
	if !l.allocated {
		return addr.Address{}, fmt.Errorf("%w: %s", ErrNotAllocated, l.Path())
	}
	return l.allocation.Address, nil
}

// Allocation returns the placement and whether there is one.
func (l *LinkObject) Allocation() (space.Allocation, bool) {
	return l.allocation, l.allocated
}

// FindAllocations lists where the object could go in fs. Without a
// constraint every block that fits is a candidate starting at the block.
func (l *LinkObject) FindAllocations(fs *space.FreeSpace) []space.Candidate {
	if l.constraint != nil {
		return l.constraint.FindAllocations(fs, l.size)
	}
	var out []space.Candidate
	for _, i := range fs.FindBlocksThatFit(l.size) {
		b := fs.Block(i)
		out = append(out, space.Candidate{
			Block:  i,
			Start:  b.Address,
			Size:   b.Size - l.size,
			Offset: b.Offset,
		})
	}
	return out
}

// HasAllocations reports whether FindAllocations would return anything.
func (l *LinkObject) HasAllocations(fs *space.FreeSpace) bool {
	if l.constraint != nil {
		return l.constraint.HasAllocations(fs, l.size)
	}
	return fs.HasBlockThatFits(l.size)
}

// MeasureSlack sums the slack of every candidate, saturating at MaxInt64.
func (l *LinkObject) MeasureSlack(fs *space.FreeSpace) int64 {
	var slack int64
	for _, c := range l.FindAllocations(fs) {
		if slack > math.MaxInt64-c.Size {
			return math.MaxInt64
		}
		slack += c.Size
	}
	return slack
}

func (l *LinkObject) String() string {
	if l.allocated {
		return fmt.Sprintf("%s[%d]@%s", l.Path(), l.size, l.allocation.Address)
	}
	return fmt.Sprintf("%s[%d]", l.Path(), l.size)
}
