package config

import (
	"fmt"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/link/target"
)

// FormatSpec selects an address format.
//
//	{kind: linear, name: cpu, limit: 0x10000}
//	{kind: banked, name: gbc, bank_size: 0x4000}
type FormatSpec struct {
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name"`
	Limit    Number `yaml:"limit"`
	BankSize Number `yaml:"bank_size"`
}

// Build returns the described format.
func (s FormatSpec) Build() (addr.Format, error) {
	name := s.Name
	switch s.Kind {
	case "", "linear":
		if name == "" {
			name = "cpu"
		}
		return addr.NewLinear(name, uint64(s.Limit)), nil
	case "banked":
		if name == "" {
			name = "banked"
		}
		return addr.NewBanked(name, uint64(s.BankSize))
	default:
		return nil, fmt.Errorf("%w: unknown address format %q", ErrInvalid, s.Kind)
	}
}

// RegionSpec maps size bytes at file offset source to canonical address target.
type RegionSpec struct {
	Source Number `yaml:"source"`
	Target Number `yaml:"target"`
	Size   Number `yaml:"size"`
}

// MapSpec selects an address map: identity (optionally bounded by size) or
// a list of regions.
type MapSpec struct {
	Kind    string       `yaml:"kind"`
	Size    Number       `yaml:"size"`
	Regions []RegionSpec `yaml:"regions"`
}

// Build returns the map into format f.
func (s MapSpec) Build(f addr.Format) (addr.Map, error) {
	switch s.Kind {
	case "", "identity":
		return addr.NewIdentityMap(f, uint64(s.Size)), nil
	case "region":
		m := addr.NewRegionMap(f)
		for i, r := range s.Regions {
			to, err := address(f, r.Target)
			if err != nil {
				return nil, fmt.Errorf("region %d: %w", i, err)
			}
			if err := m.Add(addr.New(addr.FileOffsets, uint64(r.Source)), to, uint64(r.Size)); err != nil {
				return nil, fmt.Errorf("region %d: %w", i, err)
			}
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown address map %q", ErrInvalid, s.Kind)
	}
}

// FreeBlockSpec is size free bytes at a file offset.
type FreeBlockSpec struct {
	Offset Number `yaml:"offset"`
	Size   Number `yaml:"size"`
}

// TargetSpec describes one output file.
type TargetSpec struct {
	ID         string          `yaml:"id"`
	Format     FormatSpec      `yaml:"format"`
	Map        MapSpec         `yaml:"map"`
	FreeBlocks []FreeBlockSpec `yaml:"free_blocks"`
	Input      string          `yaml:"input"`
	Output     string          `yaml:"output"`
}

// TargetsDocument is the top level of a targets file.
type TargetsDocument struct {
	Targets []TargetSpec `yaml:"targets"`
}

// Build returns the target with its free blocks mapped.
func (s TargetSpec) Build() (*target.Target, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("%w: target without id", ErrInvalid)
	}
	f, err := s.Format.Build()
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", s.ID, err)
	}
	m, err := s.Map.Build(f)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", s.ID, err)
	}
	t := target.New(s.ID, m)
	t.InputPath, t.OutputPath = s.Input, s.Output
	for _, b := range s.FreeBlocks {
		if err := t.MapFreeBlock(int64(b.Offset), int64(b.Size)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadTargets reads a targets document.
func LoadTargets(path string) ([]*target.Target, error) {
	var doc TargetsDocument
	if err := decodeFile(path, &doc); err != nil {
		return nil, err
	}
	out := make([]*target.Target, 0, len(doc.Targets))
	for _, s := range doc.Targets {
		t, err := s.Build()
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		out = append(out, t)
	}
	return out, nil
}
