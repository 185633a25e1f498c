// Package buf contains helpers for endian-safe encoding of sized integer fields.
package buf

// MaxIntSize is the widest integer field, in bytes, the helpers handle.
const MaxIntSize = 8

// UintLE reads an n-byte little-endian unsigned integer from b.
// Returns 0 when b is too short or n is outside 1..8.
func UintLE(b []byte, n int) uint64 {
	if n < 1 || n > MaxIntSize || len(b) < n {
		return 0
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// UintBE reads an n-byte big-endian unsigned integer from b.
// Returns 0 when b is too short or n is outside 1..8.
func UintBE(b []byte, n int) uint64 {
	if n < 1 || n > MaxIntSize || len(b) < n {
		return 0
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// PutUintLE writes the low n bytes of v into b in little-endian order.
// It reports false and writes nothing when b is too short.
func PutUintLE(b []byte, n int, v uint64) bool {
	if n < 1 || n > MaxIntSize || len(b) < n {
		return false
	}
	for i := 0; i < n; i++ {
		b[i] = byte(v)
		v >>= 8
	}
	return true
}

// PutUintBE writes the low n bytes of v into b in big-endian order.
// It reports false and writes nothing when b is too short.
func PutUintBE(b []byte, n int, v uint64) bool {
	if n < 1 || n > MaxIntSize || len(b) < n {
		return false
	}
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return true
}

// SignExtend interprets the low n bytes of v as a two's complement number.
func SignExtend(v uint64, n int) int64 {
	if n < 1 || n >= MaxIntSize {
		return int64(v)
	}
	shift := uint(64 - 8*n)
	return int64(v<<shift) >> shift
}

// FitsUnsigned reports whether v is representable in n bytes.
func FitsUnsigned(v int64, n int) bool {
	if v < 0 || n < 1 {
		return false
	}
	if n >= MaxIntSize {
		return true
	}
	return uint64(v) < uint64(1)<<(8*uint(n))
}

// FitsSigned reports whether v is representable as an n-byte two's complement number.
func FitsSigned(v int64, n int) bool {
	if n < 1 {
		return false
	}
	if n >= MaxIntSize {
		return true
	}
	limit := int64(1) << (8*uint(n) - 1)
	return v >= -limit && v < limit
}
