package main

import (
	"errors"
	"fmt"
	"strings"
)

var errQuoting = errors.New("incorrectly quoted path")

// unescape strips one pair of matching single or double quotes.
func unescape(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	switch q := path[0]; q {
	case '"', '\'':
		if len(path) < 2 || path[len(path)-1] != q {
			return "", fmt.Errorf("%w: %s", errQuoting, path)
		}
		return path[1 : len(path)-1], nil
	}
	return path, nil
}

// parseMappings turns TARGET=PATH pairs into a map. Later pairs win.
func parseMappings(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		id, path, ok := strings.Cut(pair, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("format required is TARGET=PATH, got %q", pair)
		}
		p, err := unescape(path)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}
