package addr

import (
	"errors"
	"fmt"

	"github.com/joshuapare/romlink/internal/buf"
)

// ErrOverflow indicates a value that does not fit its integer field.
var ErrOverflow = errors.New("addr: value does not fit integer field")

// IntegerLayout describes how an integer field is stored.
type IntegerLayout struct {
	Size      int  // bytes, 1..8
	BigEndian bool // default little-endian
	Signed    bool // two's complement
}

// Validate checks the field size.
func (l IntegerLayout) Validate() error {
	if l.Size < 1 || l.Size > buf.MaxIntSize {
		return fmt.Errorf("addr: integer size %d out of range 1..8", l.Size)
	}
	return nil
}

// Encode stores v in a new l.Size byte slice.
func (l IntegerLayout) Encode(v int64) ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	fits := buf.FitsUnsigned(v, l.Size)
	if l.Signed {
		fits = buf.FitsSigned(v, l.Size)
	}
	if !fits {
		return nil, fmt.Errorf("%w: %d in %s", ErrOverflow, v, l)
	}
	out := make([]byte, l.Size)
	if l.BigEndian {
		buf.PutUintBE(out, l.Size, uint64(v))
	} else {
		buf.PutUintLE(out, l.Size, uint64(v))
	}
	return out, nil
}

// Decode reads an l.Size byte field from the start of b.
func (l IntegerLayout) Decode(b []byte) (int64, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}
	if len(b) < l.Size {
		return 0, fmt.Errorf("addr: need %d bytes, have %d", l.Size, len(b))
	}
	var raw uint64
	if l.BigEndian {
		raw = buf.UintBE(b, l.Size)
	} else {
		raw = buf.UintLE(b, l.Size)
	}
	if l.Signed {
		return buf.SignExtend(raw, l.Size), nil
	}
	return int64(raw), nil
}

func (l IntegerLayout) String() string {
	sign, endian := "u", "le"
	if l.Signed {
		sign = "s"
	}
	if l.BigEndian {
		endian = "be"
	}
	return fmt.Sprintf("%s%d%s", sign, l.Size*8, endian)
}
