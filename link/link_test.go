package link

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/romlink/internal/writer"
	"github.com/joshuapare/romlink/link/space"
	"github.com/joshuapare/romlink/link/target"
	"github.com/joshuapare/romlink/object"
)

const (
	testTargets = `
targets:
  - id: rom
    format: {kind: linear, name: cpu}
    map: {kind: identity, size: 0x4000}
    free_blocks:
      - {offset: 0x2000, size: 0x200}
`
	testConstraints = `
constraints:
  - {pattern: "A", fixed: 0x2000}
  - pattern: "B|C"
    range: {lower: 0x2000, upper: 0x2200}
`
	testObjects = `
objects:
  - path: A
    data: "11 22 33 44 55 66 77 88"
  - path: B
    data: "aa bb cc dd ff ff ee ee"
    references:
      - {offset: 4, target: A, layout: {kind: relative, base: 0x1000, size: 2}}
  - path: C
    data: "00 00 00 00"
    references:
      - {offset: 0, target: B, layout: {kind: absolute, size: 4, endian: big}}
`
)

type fixture struct {
	dir         string
	targets     string
	constraints string
	objects     string
	input       string
}

func newFixture(t *testing.T, objects string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:         dir,
		targets:     filepath.Join(dir, "targets.yaml"),
		constraints: filepath.Join(dir, "constraints.yaml"),
		objects:     filepath.Join(dir, "objects.yaml"),
		input:       filepath.Join(dir, "rom.bin"),
	}
	require.NoError(t, os.WriteFile(f.targets, []byte(testTargets), 0o644))
	require.NoError(t, os.WriteFile(f.constraints, []byte(testConstraints), 0o644))
	require.NoError(t, os.WriteFile(f.objects, []byte(objects), 0o644))

	rom := make([]byte, 0x4000)
	for i := range rom {
		rom[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(f.input, rom, 0o644))
	return f
}

func (f *fixture) args(output string) Arguments {
	return Arguments{
		DoPacking:     true,
		DoLinking:     true,
		Targets:       []string{f.targets},
		Objects:       []string{f.objects},
		Constraints:   []string{f.constraints},
		TargetInputs:  map[string]string{"rom": f.input},
		TargetOutputs: map[string]string{"rom": output},
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func addressOf(t *testing.T, l *Linker, path string) uint64 {
	t.Helper()
	o, ok := l.Object(path)
	require.True(t, ok, path)
	a, err := o.Address()
	require.NoError(t, err)
	return a.Value()
}

func TestReferencePatch(t *testing.T) {
	f := newFixture(t, testObjects)
	out := filepath.Join(f.dir, "out", "rom.bin")

	l, err := NewLinker(f.args(out))
	require.NoError(t, err)
	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, uint64(0x2000), addressOf(t, l, "A"))
	b := addressOf(t, l, "B")
	c := addressOf(t, l, "C")

	got := readFile(t, out)
	require.Len(t, got, 0x4000)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}, got[0x2000:0x2008])
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd, 0x00, 0x10, 0xee, 0xee}, got[b:b+8])
	assert.Equal(t, []byte{0, 0, byte(b >> 8), byte(b)}, got[c:c+4])

	// Bytes outside objects keep the input's contents.
	assert.Equal(t, byte(0x10), got[0x10])
	assert.Equal(t, byte(0x2100&0xFF), got[0x2100])
}

func TestAllocationFileRoundTrip(t *testing.T) {
	f := newFixture(t, testObjects)
	alloc := filepath.Join(f.dir, "alloc.yaml")
	direct := filepath.Join(f.dir, "direct.bin")
	relinked := filepath.Join(f.dir, "relinked.bin")

	args := f.args(direct)
	args.AllocationOutput = alloc
	require.NoError(t, Run(context.Background(), args))

	linkOnly := f.args(relinked)
	linkOnly.DoPacking = false
	linkOnly.Constraints = nil
	linkOnly.AllocationInputs = []string{alloc}
	require.NoError(t, Run(context.Background(), linkOnly))

	assert.Equal(t, readFile(t, direct), readFile(t, relinked))
	assert.Contains(t, string(readFile(t, alloc)), "A: 0x2000")
}

func TestWriteAllocationsToSink(t *testing.T) {
	f := newFixture(t, testObjects)
	alloc := filepath.Join(f.dir, "alloc.yaml")
	args := f.args("")
	args.DoLinking = false
	args.AllocationOutput = alloc

	l, err := NewLinker(args)
	require.NoError(t, err)
	require.NoError(t, l.Run(context.Background()))

	var mem writer.MemWriter
	require.NoError(t, l.WriteAllocations(&mem))
	assert.Equal(t, readFile(t, alloc), mem.Buf)
}

func TestAddObjectValidates(t *testing.T) {
	l, err := NewLinker(Arguments{DoPacking: true, Targets: []string{"t"}, Objects: []string{"o"}})
	require.NoError(t, err)

	o := object.New("bad", []byte{1, 2})
	o.Sections = nil
	o.AddSection(0, 4)
	require.ErrorIs(t, l.AddObject(o), ErrConfig)
	_, ok := l.Object("bad")
	assert.False(t, ok)

	require.NoError(t, l.AddObject(object.New("good", []byte{1, 2})))
}

func TestOnlyPackWritesNoBinary(t *testing.T) {
	f := newFixture(t, testObjects)
	alloc := filepath.Join(f.dir, "alloc.yaml")
	out := filepath.Join(f.dir, "never.bin")

	args := f.args(out)
	args.DoLinking = false
	args.AllocationOutput = alloc
	require.NoError(t, Run(context.Background(), args))

	assert.FileExists(t, alloc)
	assert.NoFileExists(t, out)
}

func TestUnresolvedReference(t *testing.T) {
	objects := `
objects:
  - path: B
    data: "aa bb cc dd ff ff"
    references:
      - {offset: 4, target: nowhere, layout: {kind: relative, base: 0x1000, size: 2}}
      - {offset: 0, target: elsewhere, layout: {kind: absolute, size: 2}}
`
	f := newFixture(t, objects)
	out := filepath.Join(f.dir, "out.bin")

	err := Run(context.Background(), f.args(out))
	require.ErrorIs(t, err, ErrUnresolvedReference)
	assert.Contains(t, err.Error(), "nowhere")
	assert.Contains(t, err.Error(), "elsewhere")
	assert.NoFileExists(t, out)

	args := f.args(out)
	args.AllowExternal = true
	l, err := NewLinker(args)
	require.NoError(t, err)
	require.NoError(t, l.Run(context.Background()))
	b := addressOf(t, l, "B")
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xff, 0xff}, readFile(t, out)[b:b+6])
}

func TestExternalAddressesFromAllocationFile(t *testing.T) {
	objects := `
objects:
  - path: B
    data: "00 00"
    references:
      - {offset: 0, target: ext/sym, layout: {kind: absolute, size: 2}}
`
	f := newFixture(t, objects)
	ext := filepath.Join(f.dir, "ext.yaml")
	require.NoError(t, os.WriteFile(ext, []byte("ext/sym: 0x1234\n"), 0o644))
	out := filepath.Join(f.dir, "out.bin")

	args := f.args(out)
	args.AllocationInputs = []string{ext}
	l, err := NewLinker(args)
	require.NoError(t, err)
	require.NoError(t, l.Run(context.Background()))

	a, ok := l.ResolveReference("ext/sym")
	require.True(t, ok)
	assert.Equal(t, uint64(0x1234), a.Value())
	b := addressOf(t, l, "B")
	assert.Equal(t, []byte{0x34, 0x12}, readFile(t, out)[b:b+2])
}

func TestPinnedByAllocationFile(t *testing.T) {
	f := newFixture(t, testObjects)
	pins := filepath.Join(f.dir, "pins.yaml")
	require.NoError(t, os.WriteFile(pins, []byte("B: 0x2100\n"), 0o644))

	args := f.args(filepath.Join(f.dir, "out.bin"))
	args.AllocationInputs = []string{pins}
	l, err := NewLinker(args)
	require.NoError(t, err)
	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, uint64(0x2100), addressOf(t, l, "B"))
	c := addressOf(t, l, "C")
	assert.True(t, c+4 <= 0x2100 || c >= 0x2108, "C at 0x%X overlaps B", c)
}

func TestLinkOnlyNeedsEveryAllocation(t *testing.T) {
	f := newFixture(t, testObjects)
	partial := filepath.Join(f.dir, "partial.yaml")
	require.NoError(t, os.WriteFile(partial, []byte("A: 0x2000\n"), 0o644))

	args := f.args(filepath.Join(f.dir, "out.bin"))
	args.DoPacking = false
	args.AllocationInputs = []string{partial}
	err := Run(context.Background(), args)
	require.ErrorIs(t, err, ErrMissingAllocation)
	assert.Contains(t, err.Error(), "B")
	assert.Contains(t, err.Error(), "C")
}

func TestPackFailure(t *testing.T) {
	objects := `
objects:
  - path: big
    file: rom.bin
    length: 0x201
`
	f := newFixture(t, objects)
	err := Run(context.Background(), f.args(filepath.Join(f.dir, "out.bin")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not pack")
}

func TestTargetPathsRequired(t *testing.T) {
	f := newFixture(t, testObjects)
	args := f.args("")
	args.TargetOutputs = nil
	require.ErrorIs(t, Run(context.Background(), args), ErrConfig)

	args.DoLinking = false
	require.NoError(t, Run(context.Background(), args), "packing alone needs no files")
}

func TestIncompatibleTargetFormats(t *testing.T) {
	f := newFixture(t, testObjects)
	second := filepath.Join(f.dir, "banked.yaml")
	require.NoError(t, os.WriteFile(second, []byte(`
targets:
  - id: gb
    format: {kind: banked, name: gb, bank_size: 0x4000}
    input: rom.bin
    output: gb.bin
`), 0o644))

	args := f.args(filepath.Join(f.dir, "out.bin"))
	args.Targets = append(args.Targets, second)
	require.ErrorIs(t, Run(context.Background(), args), ErrConfig)
}

const twoObjects = `
objects:
  - {path: x, data: "11111111111111111111111111111111"}
  - {path: y, data: "22222222222222222222222222222222"}
`

// twoTargets writes targets a and b with the given maps, each with a free
// block at file offset 0x100, and returns arguments that link both.
func twoTargets(t *testing.T, mapA, mapB string) (Arguments, string, string) {
	t.Helper()
	f := newFixture(t, twoObjects)
	targets := filepath.Join(f.dir, "two.yaml")
	require.NoError(t, os.WriteFile(targets, []byte(`
targets:
  - id: a
    map: `+mapA+`
    free_blocks: [{offset: 0x100, size: 0x10}]
  - id: b
    map: `+mapB+`
    free_blocks: [{offset: 0x100, size: 0x10}]
`), 0o644))
	outA, outB := filepath.Join(f.dir, "a.bin"), filepath.Join(f.dir, "b.bin")
	return Arguments{
		DoPacking:     true,
		DoLinking:     true,
		Targets:       []string{targets},
		Objects:       []string{f.objects},
		TargetInputs:  map[string]string{"a": f.input, "b": f.input},
		TargetOutputs: map[string]string{"a": outA, "b": outB},
	}, outA, outB
}

func TestTargetsSharingFreeAddresses(t *testing.T) {
	args, _, _ := twoTargets(t, "{kind: identity}", "{kind: identity}")
	err := Run(context.Background(), args)
	require.ErrorIs(t, err, ErrConfig)
	require.ErrorIs(t, err, target.ErrAmbiguous)
}

func TestTargetsWithDisjointFreeAddresses(t *testing.T) {
	args, outA, outB := twoTargets(t,
		"{kind: region, regions: [{source: 0, target: 0x0000, size: 0x1000}]}",
		"{kind: region, regions: [{source: 0, target: 0x1000, size: 0x1000}]}")
	l, err := NewLinker(args)
	require.NoError(t, err)
	require.NoError(t, l.Run(context.Background()))
	assert.NotEqual(t, addressOf(t, l, "x"), addressOf(t, l, "y"))

	a, b := readFile(t, outA)[0x100:0x110], readFile(t, outB)[0x100:0x110]
	assert.ElementsMatch(t, [][]byte{a, b}, [][]byte{
		bytesOf(0x11, 0x10), bytesOf(0x22, 0x10),
	}, "each file holds exactly one object")
}

func TestOverlappingFreeBlocksInOneTarget(t *testing.T) {
	f := newFixture(t, testObjects)
	targets := filepath.Join(f.dir, "overlap.yaml")
	require.NoError(t, os.WriteFile(targets, []byte(`
targets:
  - id: rom
    map: {kind: identity, size: 0x4000}
    free_blocks: [{offset: 0x2000, size: 0x200}, {offset: 0x21F0, size: 0x20}]
`), 0o644))
	args := f.args(filepath.Join(f.dir, "out.bin"))
	args.Targets = []string{targets}
	err := Run(context.Background(), args)
	require.ErrorIs(t, err, ErrConfig)
	require.ErrorIs(t, err, space.ErrOverlap)
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestArgumentsValidate(t *testing.T) {
	base := Arguments{DoPacking: true, DoLinking: true, Targets: []string{"t"}, Objects: []string{"o"}}
	tests := []struct {
		name   string
		modify func(*Arguments)
		ok     bool
	}{
		{"complete", func(*Arguments) {}, true},
		{"nothing to do", func(a *Arguments) { a.DoPacking, a.DoLinking = false, false }, false},
		{"no targets", func(a *Arguments) { a.Targets = nil }, false},
		{"no objects", func(a *Arguments) { a.Objects = nil }, false},
		{"link only without allocations", func(a *Arguments) { a.DoPacking = false }, false},
		{"link only", func(a *Arguments) { a.DoPacking = false; a.AllocationInputs = []string{"x"} }, true},
		{"negative budget", func(a *Arguments) { a.MaxSteps = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base
			tt.modify(&a)
			err := a.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrConfig)
		})
	}
}
