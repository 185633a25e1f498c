// Package pack places link objects into free space.
package pack

import (
	"context"
	"fmt"
	"math"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/link/space"
)

// ctxCheckInterval is how many search steps run between context checks.
const ctxCheckInterval = 1024

// Options tunes a BacktrackingPacker. The zero value is usable.
type Options struct {
	// MaxSteps bounds the number of search steps; 0 means unbounded.
	MaxSteps int

	// Score orders objects; nil means DefaultScore.
	Score ScoreFunc

	// OnAttempt is called before each tentative placement.
	OnAttempt func(o *LinkObject, a addr.Address)
}

// BacktrackingPacker assigns an address to every object so that no two
// objects overlap and each lies inside one free block.
type BacktrackingPacker struct {
	opts    Options
	fs      *space.FreeSpace
	objects []*LinkObject
	steps   int
}

// NewBacktrackingPacker returns a packer with no free space. opts may be nil.
func NewBacktrackingPacker(opts *Options) *BacktrackingPacker {
	p := &BacktrackingPacker{fs: space.New(nil)}
	if opts != nil {
		p.opts = *opts
	}
	return p
}

// AddFreeBlock adds b to the free space. Blocks must be added before objects.
func (p *BacktrackingPacker) AddFreeBlock(b space.FreeBlock) error {
	if len(p.objects) > 0 {
		return ErrSealed
	}
	if !b.IsValid() {
		return fmt.Errorf("pack: invalid free block %s", b)
	}
	for _, o := range p.fs.Blocks() {
		if b.Overlaps(o) {
			return fmt.Errorf("pack: add free block: %w: %s and %s", space.ErrOverlap, b, o)
		}
	}
	p.fs.AddBlock(b)
	return nil
}

// SetFreeBlocks replaces the free space.
func (p *BacktrackingPacker) SetFreeBlocks(blocks []space.FreeBlock) error {
	if len(p.objects) > 0 {
		return ErrSealed
	}
	for _, b := range blocks {
		if !b.IsValid() {
			return fmt.Errorf("pack: invalid free block %s", b)
		}
	}
	if err := space.CheckDisjoint(blocks); err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	p.fs = space.New(blocks)
	return nil
}

// FreeSpace exposes the packer's free space.
func (p *BacktrackingPacker) FreeSpace() *space.FreeSpace { return p.fs }

// Objects returns the registered objects in registration order.
func (p *BacktrackingPacker) Objects() []*LinkObject {
	return append([]*LinkObject(nil), p.objects...)
}

// Steps returns the number of search steps taken by the last Pack.
func (p *BacktrackingPacker) Steps() int { return p.steps }

// AddObject registers o. A pinned object has its range removed from the free
// space at once; the parts of it outside the free space are not an error.
func (p *BacktrackingPacker) AddObject(o *LinkObject) error {
	if o.HasFixedAddress() {
		a, _ := o.Address()
		if _, err := p.fs.Reserve(a, o.Size()); err != nil {
			return fmt.Errorf("pack: reserve %s: %w", o, err)
		}
		p.fs.Commit()
	}
	p.objects = append(p.objects, o)
	return nil
}

// Pack places every registered object that has no address yet.
//
// The search is depth first over an explicit stack, most constrained object
// first, with a forward check that every remaining object still has a
// candidate. Addresses inside a candidate are sampled coarse to fine rather
// than enumerated, so Pack may report ErrNoPacking even though a packing
// exists; in exchange the number of addresses tried per object grows with the
// logarithm of its slack rather than with the slack itself.
//
// On failure the free space and every allocation are as they were before the
// call.
func (p *BacktrackingPacker) Pack(ctx context.Context) error {
	p.steps = 0

	var pending []*LinkObject
	var total int64
	for _, o := range p.objects {
		if o.HasAddress() {
			continue
		}
		pending = append(pending, o)
		if total > math.MaxInt64-o.Size() {
			total = math.MaxInt64
		} else {
			total += o.Size()
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if capacity := p.fs.Capacity(); total > capacity {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrInsufficientSpace, total, capacity)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	list := NewPriorityObjectList(p.fs, p.opts.Score)
	for _, o := range pending {
		list.Add(o)
	}

	stack := []*state{newState(list.NextUnmapped(), p.fs, list.CanBeSatisfied())}
	for len(stack) > 0 {
		p.steps++
		if p.opts.MaxSteps > 0 && p.steps > p.opts.MaxSteps {
			p.unwind(list)
			return fmt.Errorf("%w: %d steps", ErrStepBudget, p.opts.MaxSteps)
		}
		if p.steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				p.unwind(list)
				return err
			}
		}

		top := stack[len(stack)-1]
		if !top.hasMore() {
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break
			}
			if err := p.undo(list); err != nil {
				return err
			}
			stack[len(stack)-1].next()
			continue
		}

		a := top.current()
		if p.opts.OnAttempt != nil {
			p.opts.OnAttempt(top.obj, a.Address)
		}
		if err := p.fs.Allocate(a.Block, a.Address, top.obj.Size()); err != nil {
			p.unwind(list)
			return fmt.Errorf("pack: place %s: %w", top.obj, err)
		}
		if err := top.obj.SetAllocation(a); err != nil {
			_ = p.fs.DeallocateLast()
			p.unwind(list)
			return err
		}
		list.MapNext()
		if !list.HasUnmapped() {
			p.fs.Commit()
			return nil
		}
		stack = append(stack, newState(list.NextUnmapped(), p.fs, list.CanBeSatisfied()))
	}
	return fmt.Errorf("%w: %d objects after %d steps", ErrNoPacking, len(pending), p.steps)
}

// undo reverts the most recent placement.
func (p *BacktrackingPacker) undo(list *PriorityObjectList) error {
	if err := p.fs.DeallocateLast(); err != nil {
		return err
	}
	if o := list.UnmapLast(); o != nil {
		o.UnsetAllocation()
	}
	return nil
}

// unwind reverts every placement made by the running search.
func (p *BacktrackingPacker) unwind(list *PriorityObjectList) {
	for len(list.mapped) > 0 {
		if p.undo(list) != nil {
			return
		}
	}
}
