package pack

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/link/constraint"
	"github.com/joshuapare/romlink/link/space"
	"github.com/joshuapare/romlink/object"
)

var cpu = addr.NewLinear("cpu", 0)

func at(v uint64) addr.Address { return addr.New(cpu, v) }

func block(a uint64, size int64) space.FreeBlock {
	return space.FreeBlock{Address: at(a), Size: size, Offset: int64(a)}
}

func newObject(t *testing.T, path string, size int) *LinkObject {
	t.Helper()
	o, err := NewLinkObject(object.New(path, make([]byte, size)))
	require.NoError(t, err)
	return o
}

func inRange(t *testing.T, o *LinkObject, lo, hi uint64) *LinkObject {
	t.Helper()
	r, err := constraint.NewRange(at(lo), at(hi))
	require.NoError(t, err)
	o.Constrain(r)
	return o
}

func newPacker(t *testing.T, opts *Options, blocks ...space.FreeBlock) *BacktrackingPacker {
	t.Helper()
	p := NewBacktrackingPacker(opts)
	require.NoError(t, p.SetFreeBlocks(blocks))
	return p
}

func addAll(t *testing.T, p *BacktrackingPacker, objs ...*LinkObject) {
	t.Helper()
	for _, o := range objs {
		require.NoError(t, p.AddObject(o))
	}
}

func addressOf(t *testing.T, o *LinkObject) uint64 {
	t.Helper()
	a, err := o.Address()
	require.NoError(t, err)
	return a.Value()
}
