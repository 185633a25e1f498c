package addr

import (
	"fmt"
)

// Address is an integer value tagged with its Format. The zero Address is invalid.
type Address struct {
	value  uint64
	format Format
}

// New creates an Address of format f. Formats use it to build their addresses;
// callers normally go through Format.FromInteger.
func New(f Format, value uint64) Address {
	return Address{value: value, format: f}
}

// Value returns the linear value of the address within its format.
func (a Address) Value() uint64 { return a.value }

// Format returns the format a belongs to, or nil for the zero Address.
func (a Address) Format() Format { return a.format }

// IsValid reports whether a has a format.
func (a Address) IsValid() bool { return a.format != nil }

// Add returns a moved by off bytes.
func (a Address) Add(off int64) Address {
	a.mustBeValid()
	return a.format.ApplyOffset(a, off)
}

// Sub returns the distance a - b in bytes.
func (a Address) Sub(b Address) int64 {
	a.mustBeCompatible(b)
	return a.format.Subtract(a, b)
}

// Compatible reports whether a and b can be compared and combined.
func (a Address) Compatible(b Address) bool {
	if a.format == nil || b.format == nil {
		return false
	}
	return a.format.Compatible(b.format)
}

// Compare returns -1, 0 or +1 depending on whether a is before, at, or after b.
func (a Address) Compare(b Address) int {
	a.mustBeCompatible(b)
	switch {
	case a.value < b.value:
		return -1
	case a.value > b.value:
		return 1
	default:
		return 0
	}
}

// Less reports whether a comes before b.
func (a Address) Less(b Address) bool { return a.Compare(b) < 0 }

// Equal reports whether a and b are the same compatible address.
func (a Address) Equal(b Address) bool {
	return a.Compatible(b) && a.value == b.value
}

// Integer returns the encoded integer form of a, as stored in binaries.
func (a Address) Integer() uint64 {
	a.mustBeValid()
	return a.format.ToInteger(a)
}

func (a Address) String() string {
	if a.format == nil {
		return "(invalid address)"
	}
	return a.format.String(a)
}

func (a Address) mustBeValid() {
	if a.format == nil {
		panic("addr: operation on invalid address")
	}
}

func (a Address) mustBeCompatible(b Address) {
	if !a.Compatible(b) {
		panic(fmt.Sprintf("addr: incompatible addresses %s and %s", a, b))
	}
}

// Max returns the later of a and b.
func Max(a, b Address) Address {
	if a.Less(b) {
		return b
	}
	return a
}

// Min returns the earlier of a and b.
func Min(a, b Address) Address {
	if b.Less(a) {
		return b
	}
	return a
}
