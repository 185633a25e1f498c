package addr

import (
	"errors"
	"fmt"

	"github.com/joshuapare/romlink/internal/buf"
	"github.com/joshuapare/romlink/patch"
)

// ErrLayout indicates an invalid layout configuration.
var ErrLayout = errors.New("addr: invalid address layout")

// Layout encodes a resolved address into one or more binary patches.
// Patch offsets are relative to the start of the reference.
type Layout interface {
	Name() string
	Compatible(a Address) bool
	WriteAddress(a Address) ([]patch.Patch, error)
	WritePlaceholder() []patch.Patch

	// ReadAddress decodes the address stored at off and returns the offset
	// just past the encoded field.
	ReadAddress(b []byte, off int) (int, Address, error)
}

// AbsoluteLayout stores the address's encoded integer.
type AbsoluteLayout struct {
	Format Format
	Int    IntegerLayout
}

// NewAbsoluteLayout validates and returns an absolute layout.
func NewAbsoluteLayout(f Format, il IntegerLayout) (*AbsoluteLayout, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: absolute layout without format", ErrLayout)
	}
	if err := il.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayout, err)
	}
	return &AbsoluteLayout{Format: f, Int: il}, nil
}

func (l *AbsoluteLayout) Name() string { return "absolute" }

func (l *AbsoluteLayout) Compatible(a Address) bool {
	return a.IsValid() && a.format.Compatible(l.Format)
}

func (l *AbsoluteLayout) WriteAddress(a Address) ([]patch.Patch, error) {
	if !l.Compatible(a) {
		return nil, fmt.Errorf("%w: %s in %s layout", ErrIncompatible, a, l.Name())
	}
	data, err := l.Int.Encode(int64(a.Integer()))
	if err != nil {
		return nil, err
	}
	p, err := patch.FromBytes(data, 0)
	if err != nil {
		return nil, err
	}
	return []patch.Patch{p}, nil
}

func (l *AbsoluteLayout) WritePlaceholder() []patch.Patch {
	p, _ := patch.FromBytes(make([]byte, l.Int.Size), 0)
	return []patch.Patch{p}
}

func (l *AbsoluteLayout) ReadAddress(b []byte, off int) (int, Address, error) {
	field, ok := buf.Slice(b, off, l.Int.Size)
	if !ok {
		return 0, Address{}, fmt.Errorf("addr: absolute field at %d out of bounds", off)
	}
	v, err := l.Int.Decode(field)
	if err != nil {
		return 0, Address{}, err
	}
	a, ok := l.Format.FromInteger(uint64(v))
	if !ok {
		return 0, Address{}, fmt.Errorf("addr: 0x%X is not a %s address", v, l.Format.Name())
	}
	return off + l.Int.Size, a, nil
}

// NullPointer is a sentinel stored offset that decodes to a fixed address.
type NullPointer struct {
	Offset  int64
	Address Address
}

// RelativeLayout stores the distance from Base to the address.
type RelativeLayout struct {
	Base Address
	Int  IntegerLayout
	Null *NullPointer
}

// NewRelativeLayout validates and returns a relative layout.
func NewRelativeLayout(base Address, il IntegerLayout) (*RelativeLayout, error) {
	if !base.IsValid() {
		return nil, fmt.Errorf("%w: relative layout without base", ErrLayout)
	}
	if err := il.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLayout, err)
	}
	return &RelativeLayout{Base: base, Int: il}, nil
}

// SetNullPointer makes the stored offset null decode to address.
func (l *RelativeLayout) SetNullPointer(offset int64, address Address) error {
	if !address.Compatible(l.Base) {
		return fmt.Errorf("%w: null pointer %s", ErrIncompatible, address)
	}
	l.Null = &NullPointer{Offset: offset, Address: address}
	return nil
}

func (l *RelativeLayout) Name() string { return "relative" }

func (l *RelativeLayout) Compatible(a Address) bool { return l.Base.Compatible(a) }

func (l *RelativeLayout) WriteAddress(a Address) ([]patch.Patch, error) {
	if !l.Compatible(a) {
		return nil, fmt.Errorf("%w: %s relative to %s", ErrIncompatible, a, l.Base)
	}
	data, err := l.Int.Encode(a.Sub(l.Base))
	if err != nil {
		return nil, err
	}
	p, err := patch.FromBytes(data, 0)
	if err != nil {
		return nil, err
	}
	return []patch.Patch{p}, nil
}

func (l *RelativeLayout) WritePlaceholder() []patch.Patch {
	p, _ := patch.FromBytes(make([]byte, l.Int.Size), 0)
	return []patch.Patch{p}
}

func (l *RelativeLayout) ReadAddress(b []byte, off int) (int, Address, error) {
	field, ok := buf.Slice(b, off, l.Int.Size)
	if !ok {
		return 0, Address{}, fmt.Errorf("addr: relative field at %d out of bounds", off)
	}
	v, err := l.Int.Decode(field)
	if err != nil {
		return 0, Address{}, err
	}
	next := off + l.Int.Size
	if l.Null != nil && v == l.Null.Offset {
		return next, l.Null.Address, nil
	}
	return next, l.Base.Add(v), nil
}

// HiLoLayout splits the distance to Base over two 32-bit little-endian MIPS
// instructions: the high half goes into the immediate of the instruction at
// Hi16 (typically lui), the low half into the one at Lo16 (addiu, lw, ...).
// Only the low 16 bits of each instruction word are patched.
type HiLoLayout struct {
	Base Address
	Hi16 int
	Lo16 int
}

const instructionSize = 4

// NewHiLoLayout validates and returns a hi16/lo16 layout.
func NewHiLoLayout(base Address, hi16, lo16 int) (*HiLoLayout, error) {
	if !base.IsValid() {
		return nil, fmt.Errorf("%w: hi/lo layout without base", ErrLayout)
	}
	if hi16 < 0 || lo16 < 0 {
		return nil, fmt.Errorf("%w: negative instruction offsets", ErrLayout)
	}
	if lo16 < hi16+instructionSize && hi16 < lo16+instructionSize {
		return nil, fmt.Errorf("%w: instructions at %d and %d overlap", ErrLayout, hi16, lo16)
	}
	return &HiLoLayout{Base: base, Hi16: hi16, Lo16: lo16}, nil
}

func (l *HiLoLayout) Name() string { return "hilo" }

func (l *HiLoLayout) Compatible(a Address) bool { return l.Base.Compatible(a) }

func (l *HiLoLayout) WriteAddress(a Address) ([]patch.Patch, error) {
	if !l.Compatible(a) {
		return nil, fmt.Errorf("%w: %s relative to %s", ErrIncompatible, a, l.Base)
	}
	offset := uint32(a.Sub(l.Base))
	lo := uint64(offset & 0xFFFF)
	// lo16 is sign-extended at run time, so carry into hi16 when it reads as negative.
	hi := uint64((offset>>16)+boolToUint32(lo >= 0x8000)) & 0xFFFF
	return l.patches(hi, lo)
}

func (l *HiLoLayout) WritePlaceholder() []patch.Patch {
	out, _ := l.patches(0, 0)
	return out
}

func (l *HiLoLayout) patches(hi, lo uint64) ([]patch.Patch, error) {
	hiPatch, err := patch.New(hi, 0xFFFF, instructionSize, int64(l.Hi16))
	if err != nil {
		return nil, err
	}
	loPatch, err := patch.New(lo, 0xFFFF, instructionSize, int64(l.Lo16))
	if err != nil {
		return nil, err
	}
	if l.Hi16 > l.Lo16 {
		return []patch.Patch{loPatch, hiPatch}, nil
	}
	return []patch.Patch{hiPatch, loPatch}, nil
}

func (l *HiLoLayout) ReadAddress(b []byte, off int) (int, Address, error) {
	if !buf.Has(b, off+l.Hi16, instructionSize) || !buf.Has(b, off+l.Lo16, instructionSize) {
		return 0, Address{}, fmt.Errorf("addr: hi/lo instructions at %d out of bounds", off)
	}
	hi := buf.UintLE(b[off+l.Hi16:], 2)
	lo := buf.SignExtend(buf.UintLE(b[off+l.Lo16:], 2), 2)
	// Distances wrap modulo 2^32 like the 32-bit register arithmetic they encode.
	offset := int64(uint32(hi<<16) + uint32(lo))
	next := off + max(l.Hi16, l.Lo16) + instructionSize
	return next, l.Base.Add(offset), nil
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
