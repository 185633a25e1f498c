// Package config loads the YAML documents that describe targets,
// constraints, objects and allocations.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/romlink/addr"
)

// ErrInvalid indicates a document that parses but describes something impossible.
var ErrInvalid = errors.New("config: invalid document")

// decode reads one YAML document from r. A UTF-16 byte order mark switches
// decoding to UTF-16; otherwise the input is UTF-8.
func decode(r io.Reader, v any) error {
	utf8Reader := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	dec := yaml.NewDecoder(utf8Reader)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := decode(f, v); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Number is an unsigned integer written in decimal, 0x hex, 0o octal, 0b
// binary or $ hex, with optional _ separators.
type Number uint64

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	s := strings.ReplaceAll(strings.TrimSpace(node.Value), "_", "")
	if rest, ok := strings.CutPrefix(s, "$"); ok {
		s = "0x" + rest
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return fmt.Errorf("line %d: bad number %q", node.Line, node.Value)
	}
	*n = Number(v)
	return nil
}

// address decodes n in format f.
func address(f addr.Format, n Number) (addr.Address, error) {
	a, ok := f.FromInteger(uint64(n))
	if !ok {
		return addr.Address{}, fmt.Errorf("%w: 0x%X is not a %s address", ErrInvalid, uint64(n), f.Name())
	}
	return a, nil
}
