// Package target describes the output files objects are linked into.
package target

import (
	"errors"
	"fmt"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/link/space"
)

var (
	// ErrUnmappable indicates a file range or address the target's map cannot convert.
	ErrUnmappable = errors.New("target: address not mapped")

	// ErrNoTarget indicates no target covers an address.
	ErrNoTarget = errors.New("target: no target covers address")

	// ErrDuplicate indicates two targets with the same id.
	ErrDuplicate = errors.New("target: duplicate target id")

	// ErrAmbiguous indicates a free block address mapped by more than one target.
	ErrAmbiguous = errors.New("target: free block mapped by several targets")
)

// Target is one output file: the map between its offsets and canonical
// addresses, and the free blocks objects may be placed in.
type Target struct {
	ID         string
	InputPath  string
	OutputPath string

	m      addr.Map
	blocks []space.FreeBlock
}

// New returns a target with no free blocks.
func New(id string, m addr.Map) *Target {
	return &Target{ID: id, m: m}
}

// Map returns the target's address map.
func (t *Target) Map() addr.Map { return t.m }

// Format returns the canonical address format of the target.
func (t *Target) Format() addr.Format { return t.m.TargetFormat() }

// MapFreeBlock registers size free bytes at fileOffset. The whole range must
// map onto one contiguous canonical range.
func (t *Target) MapFreeBlock(fileOffset, size int64) error {
	if fileOffset < 0 || size <= 0 {
		return fmt.Errorf("target %s: bad free block at 0x%X size %d", t.ID, fileOffset, size)
	}
	source := addr.New(addr.FileOffsets, uint64(fileOffset))
	start, ok := t.m.ToTarget(source)
	if !ok {
		return fmt.Errorf("%w: %s free block at file offset 0x%X", ErrUnmappable, t.ID, fileOffset)
	}
	last, ok := t.m.ToTarget(source.Add(size - 1))
	if !ok || last.Sub(start) != size-1 {
		return fmt.Errorf("%w: %s free block [0x%X, +0x%X) crosses a region boundary",
			ErrUnmappable, t.ID, fileOffset, size)
	}
	b := space.FreeBlock{Address: start, Size: size, Offset: fileOffset}
	for _, o := range t.blocks {
		if b.Overlaps(o) {
			return fmt.Errorf("%w: %s free blocks %s and %s", space.ErrOverlap, t.ID, b, o)
		}
	}
	t.blocks = append(t.blocks, b)
	return nil
}

// FreeBlocks returns a copy of the mapped free blocks.
func (t *Target) FreeBlocks() []space.FreeBlock {
	return append([]space.FreeBlock(nil), t.blocks...)
}

// coversBlock reports whether any address of b maps into the target's file.
func (t *Target) coversBlock(b space.FreeBlock) bool {
	return b.Address.IsValid() && t.m.CoversTargetRange(b.Address, b.Size)
}

// CoversAddress reports whether a maps into the target's file.
func (t *Target) CoversAddress(a addr.Address) bool {
	return a.IsValid() && t.m.CoversTarget(a)
}

// ToOffset returns the file offset a is stored at. When the map mirrors a
// range the first mapping wins.
func (t *Target) ToOffset(a addr.Address) (int64, error) {
	sources := t.m.ToSources(a)
	if len(sources) == 0 {
		return 0, fmt.Errorf("%w: %s in %s", ErrUnmappable, a, t.ID)
	}
	return int64(sources[0].Value()), nil
}

// ToOffsetRange is ToOffset for size bytes at a, which must map contiguously.
func (t *Target) ToOffsetRange(a addr.Address, size int64) (int64, error) {
	off, err := t.ToOffset(a)
	if err != nil || size <= 1 {
		return off, err
	}
	for _, s := range t.m.ToSources(a.Add(size - 1)) {
		if int64(s.Value())-off == size-1 {
			return off, nil
		}
	}
	return 0, fmt.Errorf("%w: [%s, +0x%X) is not contiguous in %s", ErrUnmappable, a, size, t.ID)
}

func (t *Target) String() string { return t.ID }

// Map is the set of targets, searched in insertion order.
type Map struct {
	targets []*Target
}

// Add appends t. Ids must be unique, and every free block address must map
// into exactly one target so Find sends objects to the file they were
// packed for.
func (m *Map) Add(t *Target) error {
	if _, ok := m.ByID(t.ID); ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, t.ID)
	}
	for _, e := range m.targets {
		for _, b := range t.blocks {
			if e.coversBlock(b) {
				return fmt.Errorf("%w: %s free block %s is also mapped by %s", ErrAmbiguous, t.ID, b, e.ID)
			}
		}
		for _, b := range e.blocks {
			if t.coversBlock(b) {
				return fmt.Errorf("%w: %s free block %s is also mapped by %s", ErrAmbiguous, e.ID, b, t.ID)
			}
		}
	}
	m.targets = append(m.targets, t)
	return nil
}

func (m *Map) Len() int         { return len(m.targets) }
func (m *Map) At(i int) *Target { return m.targets[i] }
func (m *Map) All() []*Target   { return append([]*Target(nil), m.targets...) }

// Has reports whether any target covers a.
func (m *Map) Has(a addr.Address) bool {
	_, err := m.Find(a)
	return err == nil
}

// Find returns the first target covering a.
func (m *Map) Find(a addr.Address) (*Target, error) {
	for _, t := range m.targets {
		if t.CoversAddress(a) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoTarget, a)
}

// ByID returns the target named id.
func (m *Map) ByID(id string) (*Target, bool) {
	for _, t := range m.targets {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// FreeBlocks returns the free blocks of every target.
func (m *Map) FreeBlocks() []space.FreeBlock {
	var out []space.FreeBlock
	for _, t := range m.targets {
		out = append(out, t.blocks...)
	}
	return out
}
