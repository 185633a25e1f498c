package config

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// LoadAllocations reads an allocation file: object path to encoded address.
func LoadAllocations(path string) (map[string]uint64, error) {
	var raw map[string]Number
	if err := decodeFile(path, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]uint64, len(raw))
	for k, v := range raw {
		out[k] = uint64(v)
	}
	return out, nil
}

// MarshalAllocations renders an allocation file with paths sorted and
// addresses in hex.
func MarshalAllocations(m map[string]uint64) ([]byte, error) {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range paths {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("0x%X", m[p])},
		)
	}
	if len(paths) == 0 {
		doc.Style = yaml.FlowStyle
	}
	return yaml.Marshal(doc)
}
