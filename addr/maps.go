package addr

import (
	"errors"
	"fmt"
)

// ErrAlreadyMapped indicates a region overlapping an existing mapping.
var ErrAlreadyMapped = errors.New("addr: source range already mapped")

// Map converts between a target file's offsets (source) and the canonical
// address space objects are placed in (target).
type Map interface {
	SourceFormat() Format
	TargetFormat() Format

	// ToTarget maps a file position to its canonical address.
	ToTarget(source Address) (Address, bool)

	// ToSources returns every file position the canonical address is stored at.
	ToSources(target Address) []Address

	// CoversTarget reports whether target maps back into the file.
	CoversTarget(target Address) bool

	// CoversTargetRange reports whether any of size addresses from start
	// maps back into the file.
	CoversTargetRange(start Address, size int64) bool
}

// IdentityMap maps file offsets one-to-one onto a linear address space.
type IdentityMap struct {
	format Format
	size   uint64 // 0 = unbounded
}

// NewIdentityMap returns a map where address value == file offset.
// A non-zero size restricts coverage to [0, size).
func NewIdentityMap(f Format, size uint64) *IdentityMap {
	return &IdentityMap{format: f, size: size}
}

func (m *IdentityMap) SourceFormat() Format { return FileOffsets }
func (m *IdentityMap) TargetFormat() Format { return m.format }

func (m *IdentityMap) ToTarget(source Address) (Address, bool) {
	if !source.IsValid() || !source.format.Compatible(FileOffsets) || !m.inside(source.value) {
		return Address{}, false
	}
	return New(m.format, source.value), true
}

func (m *IdentityMap) ToSources(target Address) []Address {
	if !m.CoversTarget(target) {
		return nil
	}
	return []Address{New(FileOffsets, target.value)}
}

func (m *IdentityMap) CoversTarget(target Address) bool {
	return target.IsValid() && target.format.Compatible(m.format) && m.inside(target.value)
}

func (m *IdentityMap) CoversTargetRange(start Address, size int64) bool {
	return size > 0 && m.CoversTarget(start)
}

func (m *IdentityMap) inside(v uint64) bool {
	return m.size == 0 || v < m.size
}

// Region maps Size bytes starting at file offset Source onto Target.
type Region struct {
	Source Address
	Target Address
	Size   uint64
}

func (r Region) containsSource(a Address) bool {
	return r.Source.Compatible(a) && !a.Less(r.Source) && uint64(a.Sub(r.Source)) < r.Size
}

func (r Region) containsTarget(a Address) bool {
	return r.Target.Compatible(a) && !a.Less(r.Target) && uint64(a.Sub(r.Target)) < r.Size
}

func (r Region) overlapsTarget(start Address, size int64) bool {
	if size <= 0 || r.Size == 0 || !r.Target.Compatible(start) {
		return false
	}
	return start.Less(r.Target.Add(int64(r.Size))) && r.Target.Less(start.Add(size))
}

// RegionMap maps disjoint file regions onto canonical address ranges.
// Several regions may map onto the same canonical range (mirrors).
type RegionMap struct {
	target  Format
	regions []Region
}

// NewRegionMap returns an empty region map into the target format.
func NewRegionMap(target Format) *RegionMap {
	return &RegionMap{target: target}
}

func (m *RegionMap) SourceFormat() Format { return FileOffsets }
func (m *RegionMap) TargetFormat() Format { return m.target }

// Regions returns a copy of the configured regions.
func (m *RegionMap) Regions() []Region {
	return append([]Region(nil), m.regions...)
}

// Add maps size bytes at file offset source to the canonical address target.
func (m *RegionMap) Add(source, target Address, size uint64) error {
	if !source.IsValid() || !source.format.Compatible(FileOffsets) {
		return fmt.Errorf("%w: region source %s is not a file offset", ErrIncompatible, source)
	}
	if !target.IsValid() || !target.format.Compatible(m.target) {
		return fmt.Errorf("%w: region target %s is not a %s address",
			ErrIncompatible, target, m.target.Name())
	}
	if size == 0 {
		return fmt.Errorf("addr: empty region at %s", source)
	}
	for _, r := range m.regions {
		if source.value < r.Source.value+r.Size && r.Source.value < source.value+size {
			return fmt.Errorf("%w: %s", ErrAlreadyMapped, source)
		}
	}
	m.regions = append(m.regions, Region{Source: source, Target: target, Size: size})
	return nil
}

func (m *RegionMap) ToTarget(source Address) (Address, bool) {
	for _, r := range m.regions {
		if r.containsSource(source) {
			return r.Target.Add(source.Sub(r.Source)), true
		}
	}
	return Address{}, false
}

func (m *RegionMap) ToSources(target Address) []Address {
	var out []Address
	for _, r := range m.regions {
		if r.containsTarget(target) {
			out = append(out, r.Source.Add(target.Sub(r.Target)))
		}
	}
	return out
}

func (m *RegionMap) CoversTarget(target Address) bool {
	for _, r := range m.regions {
		if r.containsTarget(target) {
			return true
		}
	}
	return false
}

func (m *RegionMap) CoversTargetRange(start Address, size int64) bool {
	for _, r := range m.regions {
		if r.overlapsTarget(start, size) {
			return true
		}
	}
	return false
}
