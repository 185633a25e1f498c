package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootPacksAndLinks(t *testing.T) {
	dir := t.TempDir()
	targets := filepath.Join(dir, "targets.yaml")
	objects := filepath.Join(dir, "objects.yaml")
	input := filepath.Join(dir, "rom.bin")
	output := filepath.Join(dir, "out dir", "rom.bin")
	alloc := filepath.Join(dir, "alloc.yaml")

	require.NoError(t, os.WriteFile(targets, []byte(`
targets:
  - id: rom
    map: {size: 0x100}
    free_blocks: [{offset: 0x80, size: 0x10}]
`), 0o644))
	require.NoError(t, os.WriteFile(objects, []byte(`
objects:
  - {path: msg, text: "HI"}
`), 0o644))
	require.NoError(t, os.WriteFile(input, make([]byte, 0x100), 0o644))

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{
		"-t", targets, "-i", objects, "-o", alloc, "-v", "0",
		"--target-input", "rom=" + input,
		"--target-output", "rom='" + output + "'",
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, []byte("HI"), got[0x80:0x82])

	allocation, err := os.ReadFile(alloc)
	require.NoError(t, err)
	assert.Equal(t, "msg: 0x80\n", string(allocation))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "romlink dev")
}
