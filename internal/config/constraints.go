package config

import (
	"fmt"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/link/constraint"
)

// RangeSpec is a half-open canonical address range.
type RangeSpec struct {
	Lower Number `yaml:"lower"`
	Upper Number `yaml:"upper"`
}

// ConstraintSpec binds a path pattern to either a fixed address or a range.
type ConstraintSpec struct {
	Pattern string     `yaml:"pattern"`
	Fixed   *Number    `yaml:"fixed"`
	Range   *RangeSpec `yaml:"range"`
}

// ConstraintsDocument is the top level of a constraints file.
type ConstraintsDocument struct {
	Constraints []ConstraintSpec `yaml:"constraints"`
}

// Build returns the constraint in format f.
func (s ConstraintSpec) Build(f addr.Format) (constraint.Constraint, error) {
	switch {
	case s.Fixed != nil && s.Range != nil:
		return nil, fmt.Errorf("%w: /%s/ is both fixed and ranged", ErrInvalid, s.Pattern)
	case s.Fixed != nil:
		a, err := address(f, *s.Fixed)
		if err != nil {
			return nil, err
		}
		return &constraint.Fixed{Address: a}, nil
	case s.Range != nil:
		lo, err := address(f, s.Range.Lower)
		if err != nil {
			return nil, err
		}
		hi, err := address(f, s.Range.Upper)
		if err != nil {
			return nil, err
		}
		return constraint.NewRange(lo, hi)
	default:
		return nil, fmt.Errorf("%w: /%s/ has no constraint", ErrInvalid, s.Pattern)
	}
}

// LoadConstraints reads a constraints document into d.
func LoadConstraints(path string, f addr.Format, d *constraint.Directory) error {
	var doc ConstraintsDocument
	if err := decodeFile(path, &doc); err != nil {
		return err
	}
	for _, s := range doc.Constraints {
		c, err := s.Build(f)
		if err != nil {
			return fmt.Errorf("config: %s: %w", path, err)
		}
		if err := d.Add(s.Pattern, c); err != nil {
			return fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return nil
}
