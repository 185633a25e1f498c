package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/romlink/addr"
)

type fakeObject struct {
	path       string
	constraint Constraint
	fixed      *addr.Address
}

func (o *fakeObject) Path() string                   { return o.path }
func (o *fakeObject) Constrain(c Constraint)         { o.constraint = c }
func (o *fakeObject) SetFixedAddress(a addr.Address) { o.fixed = &a }

func TestDirectoryApply(t *testing.T) {
	var d Directory
	require.NoError(t, d.Add(`text/.*`, mustRange(t, 0x1000, 0x2000)))
	require.NoError(t, d.Add(`text/0`, &Fixed{Address: at(0x1050)}))
	require.NoError(t, d.Add(`text/[12]`, mustRange(t, 0x1800, 0x1900)))
	assert.Equal(t, 3, d.Len())

	t.Run("unconstrained", func(t *testing.T) {
		o := &fakeObject{path: "data/0"}
		d.Apply(o)
		assert.Nil(t, o.constraint)
		assert.Nil(t, o.fixed)
	})

	t.Run("single", func(t *testing.T) {
		o := &fakeObject{path: "text/9"}
		d.Apply(o)
		assert.IsType(t, &Range{}, o.constraint)
		assert.Nil(t, o.fixed)
	})

	t.Run("combined", func(t *testing.T) {
		o := &fakeObject{path: "text/1"}
		d.Apply(o)
		and, ok := o.constraint.(*And)
		require.True(t, ok)
		assert.Len(t, and.Parts, 2)
	})

	t.Run("fixed wins", func(t *testing.T) {
		o := &fakeObject{path: "text/0"}
		d.Apply(o)
		assert.Nil(t, o.constraint)
		require.NotNil(t, o.fixed)
		assert.Equal(t, uint64(0x1050), o.fixed.Value())
	})

	t.Run("full match only", func(t *testing.T) {
		o := &fakeObject{path: "pre/text/1"}
		d.Apply(o)
		assert.Nil(t, o.constraint)
	})
}

func TestDirectoryRejectsBadPattern(t *testing.T) {
	var d Directory
	require.Error(t, d.Add(`text/(`, &Fixed{Address: at(0)}))
	assert.Equal(t, 0, d.Len())
}

func TestDirectoryMatchCopies(t *testing.T) {
	var d Directory
	c := mustRange(t, 0x1000, 0x2000)
	require.NoError(t, d.Add(`a`, c))
	got := d.Match("a")
	require.Len(t, got, 1)
	assert.NotSame(t, c, got[0])
}
