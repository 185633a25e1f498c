package addr

import (
	"errors"
	"fmt"
)

// ErrIncompatible indicates an address used with a format or layout it does not belong to.
var ErrIncompatible = errors.New("addr: incompatible address format")

// Format defines the arithmetic and encoding of one address space.
type Format interface {
	// Name identifies the format in configuration and messages.
	Name() string

	// ApplyOffset returns a moved by off bytes.
	ApplyOffset(a Address, off int64) Address

	// Subtract returns a - b in bytes.
	Subtract(a, b Address) int64

	// FromInteger decodes an integer as stored in binaries or documents.
	FromInteger(v uint64) (Address, bool)

	// ToInteger is the inverse of FromInteger.
	ToInteger(a Address) uint64

	// Compatible reports whether addresses of other can be mixed with this format.
	Compatible(other Format) bool

	String(a Address) string
}

// LinearFormat is a flat address space where the encoded integer equals the value.
type LinearFormat struct {
	name  string
	limit uint64 // exclusive upper bound, 0 = unbounded
}

// FileOffsets is the format of positions inside target files.
var FileOffsets Format = NewLinear("file", 0)

// NewLinear returns a linear format. A non-zero limit bounds the valid values to [0, limit).
func NewLinear(name string, limit uint64) *LinearFormat {
	return &LinearFormat{name: name, limit: limit}
}

func (f *LinearFormat) Name() string { return f.name }

func (f *LinearFormat) ApplyOffset(a Address, off int64) Address {
	return New(f, uint64(int64(a.value)+off))
}

func (f *LinearFormat) Subtract(a, b Address) int64 {
	return int64(a.value - b.value)
}

func (f *LinearFormat) FromInteger(v uint64) (Address, bool) {
	if f.limit != 0 && v >= f.limit {
		return Address{}, false
	}
	return New(f, v), true
}

func (f *LinearFormat) ToInteger(a Address) uint64 { return a.value }

func (f *LinearFormat) Compatible(other Format) bool {
	o, ok := other.(*LinearFormat)
	return ok && o.name == f.name
}

func (f *LinearFormat) String(a Address) string {
	return fmt.Sprintf("%s:0x%X", f.name, a.value)
}

// BankedFormat is a bank-switched address space such as a Game Boy cartridge.
//
// Values are linear (bank*BankSize + offset). The encoded integer is
// bank<<16 | cpu address, where the cpu address of bank 0 lies in
// [0, BankSize) and every other bank is visible through the window
// [BankSize, 2*BankSize).
type BankedFormat struct {
	name     string
	bankSize uint64
}

// NewBanked returns a banked format. bankSize must be a power of two.
func NewBanked(name string, bankSize uint64) (*BankedFormat, error) {
	if bankSize == 0 || bankSize&(bankSize-1) != 0 || bankSize > 0x8000 {
		return nil, fmt.Errorf("addr: bank size 0x%X must be a power of two <= 0x8000", bankSize)
	}
	return &BankedFormat{name: name, bankSize: bankSize}, nil
}

func (f *BankedFormat) Name() string { return f.name }

// BankSize returns the size of one bank in bytes.
func (f *BankedFormat) BankSize() uint64 { return f.bankSize }

func (f *BankedFormat) ApplyOffset(a Address, off int64) Address {
	return New(f, uint64(int64(a.value)+off))
}

func (f *BankedFormat) Subtract(a, b Address) int64 {
	return int64(a.value - b.value)
}

func (f *BankedFormat) FromInteger(v uint64) (Address, bool) {
	bank := (v >> 16) & 0xFF
	cpu := v & 0xFFFF
	if cpu >= 2*f.bankSize {
		return Address{}, false
	}
	if bank > 0 && cpu < f.bankSize {
		return Address{}, false
	}
	return New(f, bank*f.bankSize+(cpu&(f.bankSize-1))), true
}

func (f *BankedFormat) ToInteger(a Address) uint64 {
	bank, cpu := f.split(a)
	return bank<<16 | cpu
}

func (f *BankedFormat) Compatible(other Format) bool {
	o, ok := other.(*BankedFormat)
	return ok && o.name == f.name && o.bankSize == f.bankSize
}

func (f *BankedFormat) String(a Address) string {
	bank, cpu := f.split(a)
	return fmt.Sprintf("%02X:%04X", bank, cpu)
}

func (f *BankedFormat) split(a Address) (bank, cpu uint64) {
	bank = a.value / f.bankSize
	cpu = a.value % f.bankSize
	if bank > 0 {
		cpu += f.bankSize
	}
	return bank, cpu
}
