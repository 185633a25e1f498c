package config

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/internal/buf"
	"github.com/joshuapare/romlink/internal/mmfile"
	"github.com/joshuapare/romlink/object"
)

// SectionSpec places the next size logical bytes at real_offset from the
// object's allocated position.
type SectionSpec struct {
	RealOffset Number `yaml:"real_offset"`
	Size       Number `yaml:"size"`
}

// NullSpec makes a stored relative offset decode to a fixed address.
type NullSpec struct {
	Offset  int64  `yaml:"offset"`
	Address Number `yaml:"address"`
}

// LayoutSpec describes how a reference stores its address.
//
//	{kind: absolute, size: 2, endian: little}
//	{kind: relative, base: 0x8000, size: 2, signed: true}
//	{kind: hilo, base: 0, hi: 0, lo: 8}
type LayoutSpec struct {
	Kind   string    `yaml:"kind"`
	Base   Number    `yaml:"base"`
	Size   int       `yaml:"size"`
	Endian string    `yaml:"endian"`
	Signed bool      `yaml:"signed"`
	Hi     int       `yaml:"hi"`
	Lo     int       `yaml:"lo"`
	Null   *NullSpec `yaml:"null"`
}

// Build returns the layout for addresses in format f.
func (s LayoutSpec) Build(f addr.Format) (addr.Layout, error) {
	il := addr.IntegerLayout{Size: s.Size, Signed: s.Signed}
	switch strings.ToLower(s.Endian) {
	case "", "little", "le":
	case "big", "be":
		il.BigEndian = true
	default:
		return nil, fmt.Errorf("%w: unknown endianness %q", ErrInvalid, s.Endian)
	}

	switch s.Kind {
	case "absolute":
		return addr.NewAbsoluteLayout(f, il)
	case "relative":
		base, err := address(f, s.Base)
		if err != nil {
			return nil, err
		}
		l, err := addr.NewRelativeLayout(base, il)
		if err != nil {
			return nil, err
		}
		if s.Null != nil {
			na, err := address(f, s.Null.Address)
			if err != nil {
				return nil, err
			}
			if err := l.SetNullPointer(s.Null.Offset, na); err != nil {
				return nil, err
			}
		}
		return l, nil
	case "hilo":
		base, err := address(f, s.Base)
		if err != nil {
			return nil, err
		}
		return addr.NewHiLoLayout(base, s.Hi, s.Lo)
	default:
		return nil, fmt.Errorf("%w: unknown layout %q", ErrInvalid, s.Kind)
	}
}

// ReferenceSpec is a pointer at offset to the object named target.
type ReferenceSpec struct {
	Offset Number     `yaml:"offset"`
	Target string     `yaml:"target"`
	Layout LayoutSpec `yaml:"layout"`
}

// ObjectSpec describes one object. Its bytes come from exactly one of data
// (hex), file (a slice of a binary, relative to the document) or text
// (encoded with an IANA character set, UTF-8 by default).
type ObjectSpec struct {
	Path       string          `yaml:"path"`
	Data       string          `yaml:"data"`
	File       string          `yaml:"file"`
	FileOffset Number          `yaml:"file_offset"`
	Length     Number          `yaml:"length"`
	Text       string          `yaml:"text"`
	Encoding   string          `yaml:"encoding"`
	Sections   []SectionSpec   `yaml:"sections"`
	References []ReferenceSpec `yaml:"references"`
}

// ObjectsDocument is the top level of an objects file.
type ObjectsDocument struct {
	Objects []ObjectSpec `yaml:"objects"`
}

// Build returns the object. dir resolves relative file paths.
func (s ObjectSpec) Build(f addr.Format, dir string) (*object.Object, error) {
	data, err := s.bytes(dir)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", s.Path, err)
	}
	o := object.New(s.Path, data)
	if len(s.Sections) > 0 {
		o.Sections = nil
		for _, sec := range s.Sections {
			o.AddSection(int64(sec.RealOffset), int64(sec.Size))
		}
	}
	for i, r := range s.References {
		l, err := r.Layout.Build(f)
		if err != nil {
			return nil, fmt.Errorf("object %s reference %d: %w", s.Path, i, err)
		}
		o.AddReference(int64(r.Offset), r.Target, l)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (s ObjectSpec) bytes(dir string) ([]byte, error) {
	sources := 0
	for _, set := range []bool{s.Data != "", s.File != "", s.Text != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("%w: need exactly one of data, file, text", ErrInvalid)
	}

	switch {
	case s.Data != "":
		return hex.DecodeString(strings.Join(strings.Fields(s.Data), ""))
	case s.Text != "":
		return encodeText(s.Text, s.Encoding)
	}

	path := s.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cleanup() }()

	start := int(s.FileOffset)
	n := len(data) - start
	if s.Length != 0 {
		n = int(s.Length)
	}
	end, err := buf.CheckRange(len(data), start, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, s.File, err)
	}
	return append([]byte(nil), data[start:end]...), nil
}

func encodeText(text, charset string) ([]byte, error) {
	if charset == "" {
		return []byte(text), nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: character set %q is not supported", ErrInvalid, charset)
	}
	return enc.NewEncoder().Bytes([]byte(text))
}

// LoadObjects reads an objects document. Addresses in layouts use format f.
func LoadObjects(path string, f addr.Format) ([]*object.Object, error) {
	var doc ObjectsDocument
	if err := decodeFile(path, &doc); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	out := make([]*object.Object, 0, len(doc.Objects))
	seen := make(map[string]bool, len(doc.Objects))
	for _, s := range doc.Objects {
		if seen[s.Path] {
			return nil, fmt.Errorf("config: %s: %w: duplicate object %s", path, ErrInvalid, s.Path)
		}
		seen[s.Path] = true
		o, err := s.Build(f, dir)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		out = append(out, o)
	}
	return out, nil
}
