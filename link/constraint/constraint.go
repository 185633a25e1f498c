// Package constraint implements placement rules for link objects and the
// directory that assigns them by path pattern.
package constraint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/link/space"
)

// MaxStrength is the strength of a constraint that pins an exact address.
const MaxStrength = 1000

// Constraint restricts where an object of a given size may be placed.
type Constraint interface {
	// FindAllocations returns every candidate range satisfying the constraint.
	FindAllocations(fs *space.FreeSpace, size int64) []space.Candidate

	// HasAllocations reports whether FindAllocations would return anything.
	HasAllocations(fs *space.FreeSpace, size int64) bool

	// FixedAddress returns the only address the constraint allows, if any.
	FixedAddress() (addr.Address, bool)

	// Strength orders constraints inside a conjunction; stronger ones are
	// evaluated first so empty intersections are detected early.
	Strength() int

	Copy() Constraint
	String() string
}

// Fixed pins an object to one address. Objects with a fixed address never
// enter the search, so its candidate methods report nothing.
type Fixed struct {
	Address addr.Address
}

func (c *Fixed) FindAllocations(*space.FreeSpace, int64) []space.Candidate { return nil }
func (c *Fixed) HasAllocations(*space.FreeSpace, int64) bool               { return false }
func (c *Fixed) FixedAddress() (addr.Address, bool)                        { return c.Address, true }
func (c *Fixed) Strength() int                                             { return MaxStrength }
func (c *Fixed) Copy() Constraint                                          { return &Fixed{Address: c.Address} }
func (c *Fixed) String() string                                            { return "FixedAddress(" + c.Address.String() + ")" }

// Range keeps an object fully inside [Lower, Upper).
type Range struct {
	Lower addr.Address
	Upper addr.Address
}

// NewRange validates the bounds.
func NewRange(lower, upper addr.Address) (*Range, error) {
	if !lower.Compatible(upper) {
		return nil, fmt.Errorf("constraint: range bounds %s and %s are incompatible", lower, upper)
	}
	if !lower.Less(upper) {
		return nil, fmt.Errorf("constraint: empty range [%s, %s)", lower, upper)
	}
	return &Range{Lower: lower, Upper: upper}, nil
}

func (c *Range) FindAllocations(fs *space.FreeSpace, size int64) []space.Candidate {
	return fs.FindBlocksWithinRange(c.Lower, c.Upper, size)
}

func (c *Range) HasAllocations(fs *space.FreeSpace, size int64) bool {
	return len(c.FindAllocations(fs, size)) > 0
}

func (c *Range) FixedAddress() (addr.Address, bool) { return addr.Address{}, false }
func (c *Range) Strength() int                      { return 10 }
func (c *Range) Copy() Constraint                   { return &Range{Lower: c.Lower, Upper: c.Upper} }

func (c *Range) String() string {
	return "AddressRange(" + c.Lower.String() + ", " + c.Upper.String() + ")"
}

// And is the conjunction of its parts. Its candidates are the per-block
// intersections of every part's candidate start ranges.
type And struct {
	Parts []Constraint
}

// NewAnd returns a conjunction with parts ordered strongest first.
func NewAnd(parts ...Constraint) *And {
	ordered := append([]Constraint(nil), parts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Strength() > ordered[j].Strength()
	})
	return &And{Parts: ordered}
}

func (c *And) FindAllocations(fs *space.FreeSpace, size int64) []space.Candidate {
	if len(c.Parts) == 0 {
		return nil
	}
	result := c.Parts[0].FindAllocations(fs, size)
	for _, part := range c.Parts[1:] {
		if len(result) == 0 {
			return nil
		}
		result = intersect(result, part.FindAllocations(fs, size))
	}
	return result
}

func (c *And) HasAllocations(fs *space.FreeSpace, size int64) bool {
	return len(c.FindAllocations(fs, size)) > 0
}

// FixedAddress returns the first part's fixed address.
func (c *And) FixedAddress() (addr.Address, bool) {
	for _, part := range c.Parts {
		if a, ok := part.FixedAddress(); ok {
			return a, true
		}
	}
	return addr.Address{}, false
}

func (c *And) Strength() int {
	strength := 0
	for _, part := range c.Parts {
		strength = max(strength, part.Strength())
	}
	return strength
}

func (c *And) Copy() Constraint {
	parts := make([]Constraint, len(c.Parts))
	for i, part := range c.Parts {
		parts[i] = part.Copy()
	}
	return &And{Parts: parts}
}

func (c *And) String() string {
	names := make([]string, len(c.Parts))
	for i, part := range c.Parts {
		names[i] = part.String()
	}
	return "And(" + strings.Join(names, ",") + ")"
}

// intersect overlaps two candidate lists. Start ranges are inclusive:
// [Start, Start+Size].
func intersect(a, b []space.Candidate) []space.Candidate {
	var out []space.Candidate
	for _, x := range a {
		for _, y := range b {
			if x.Block != y.Block {
				continue
			}
			start := addr.Max(x.Start, y.Start)
			last := addr.Min(x.Start.Add(x.Size), y.Start.Add(y.Size))
			if last.Less(start) {
				continue
			}
			out = append(out, space.Candidate{
				Block:  x.Block,
				Start:  start,
				Size:   last.Sub(start),
				Offset: x.Offset + start.Sub(x.Start),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Start.Less(out[j].Start)
	})
	return out
}
