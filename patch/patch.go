// Package patch implements masked byte-level writes used to store resolved
// addresses into object data.
//
// A Patch carries up to MaxSize bytes of data together with a per-byte mask.
// Only the bits set in the mask are written; the remaining bits of the target
// byte are preserved. This supports encodings that share bytes with other
// fields, such as the 16-bit immediate of a 32-bit instruction word.
package patch

import (
	"errors"
	"fmt"
)

// MaxSize is the largest patch, in bytes.
const MaxSize = 8

var (
	// ErrSize indicates a patch size outside 1..MaxSize.
	ErrSize = errors.New("patch: size must be between 1 and 8 bytes")

	// ErrBounds indicates a patch that does not fit inside the target buffer.
	ErrBounds = errors.New("patch: write out of bounds")
)

// Patch is a masked write of up to MaxSize bytes at a relative offset.
type Patch struct {
	data   [MaxSize]byte
	mask   [MaxSize]byte
	size   int
	offset int64
}

// New builds a patch from little-endian packed data and mask words.
// Byte i of the patch is (data >> 8*i) & 0xFF.
func New(data, mask uint64, size int, offset int64) (Patch, error) {
	if size < 1 || size > MaxSize {
		return Patch{}, fmt.Errorf("%w: %d", ErrSize, size)
	}
	p := Patch{size: size, offset: offset}
	for i := 0; i < size; i++ {
		p.data[i] = byte(data)
		p.mask[i] = byte(mask)
		data >>= 8
		mask >>= 8
	}
	return p, nil
}

// FromBytes builds a patch that overwrites len(b) whole bytes.
func FromBytes(b []byte, offset int64) (Patch, error) {
	if len(b) < 1 || len(b) > MaxSize {
		return Patch{}, fmt.Errorf("%w: %d", ErrSize, len(b))
	}
	p := Patch{size: len(b), offset: offset}
	copy(p.data[:], b)
	for i := range b {
		p.mask[i] = 0xFF
	}
	return p, nil
}

// Size returns the number of bytes the patch touches.
func (p Patch) Size() int { return p.size }

// Offset returns the relative offset the patch applies to.
func (p Patch) Offset() int64 { return p.offset }

// Data returns a copy of the patch bytes.
func (p Patch) Data() []byte { return append([]byte(nil), p.data[:p.size]...) }

// Mask returns a copy of the per-byte mask.
func (p Patch) Mask() []byte { return append([]byte(nil), p.mask[:p.size]...) }

// WithOffset returns a copy of p relocated to offset.
func (p Patch) WithOffset(offset int64) Patch {
	p.offset = offset
	return p
}

// Shift returns a copy of p moved by delta bytes.
func (p Patch) Shift(delta int64) Patch {
	p.offset += delta
	return p
}

// FullBytes reports whether every touched byte is completely overwritten.
// Patches that only cover parts of a byte need the original byte values
// to be present in the buffer before Apply.
func (p Patch) FullBytes() bool {
	for i := 0; i < p.size; i++ {
		if p.mask[i] != 0xFF {
			return false
		}
	}
	return true
}

// Apply merges the masked patch bits into b at base+Offset().
func (p Patch) Apply(b []byte, base int64) error {
	start := base + p.offset
	if start < 0 || start+int64(p.size) > int64(len(b)) {
		return fmt.Errorf("%w: [%d, %d) in buffer of %d bytes",
			ErrBounds, start, start+int64(p.size), len(b))
	}
	for i := 0; i < p.size; i++ {
		at := start + int64(i)
		b[at] = (b[at] &^ p.mask[i]) | (p.data[i] & p.mask[i])
	}
	return nil
}

func (p Patch) String() string {
	return fmt.Sprintf("patch(+%d, % x / % x)", p.offset, p.data[:p.size], p.mask[:p.size])
}
