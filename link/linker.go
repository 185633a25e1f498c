// Package link drives a whole run: it loads targets, constraints and
// objects, packs the objects into the targets' free space, records the
// result in an allocation file and writes the patched output binaries.
package link

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/joshuapare/romlink/addr"
	"github.com/joshuapare/romlink/internal/config"
	"github.com/joshuapare/romlink/internal/logger"
	"github.com/joshuapare/romlink/internal/writer"
	"github.com/joshuapare/romlink/link/constraint"
	"github.com/joshuapare/romlink/link/pack"
	"github.com/joshuapare/romlink/link/target"
	"github.com/joshuapare/romlink/object"
)

// Linker holds the state of one run.
type Linker struct {
	args Arguments

	format      addr.Format
	targets     target.Map
	constraints constraint.Directory
	objects     []*pack.LinkObject
	byPath      map[string]*pack.LinkObject
	external    map[string]addr.Address
	packer      *pack.BacktrackingPacker
}

// NewLinker validates args and returns an empty linker.
func NewLinker(args Arguments) (*Linker, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	opts := &pack.Options{MaxSteps: args.MaxSteps}
	if args.Verbosity >= 3 {
		opts.OnAttempt = func(o *pack.LinkObject, a addr.Address) {
			logger.Debug("trying placement", "object", o.Path(), "address", a.String())
		}
	}
	return &Linker{
		args:     args,
		byPath:   make(map[string]*pack.LinkObject),
		external: make(map[string]addr.Address),
		packer:   pack.NewBacktrackingPacker(opts),
	}, nil
}

// Run executes the phases args selects.
func Run(ctx context.Context, args Arguments) error {
	l, err := NewLinker(args)
	if err != nil {
		return err
	}
	return l.Run(ctx)
}

// Run loads everything, then packs and links as configured.
func (l *Linker) Run(ctx context.Context) error {
	if err := l.LoadTargets(); err != nil {
		return err
	}
	if l.args.DoPacking {
		if err := l.LoadConstraints(); err != nil {
			return err
		}
	}
	if err := l.LoadObjects(); err != nil {
		return err
	}
	if err := l.LoadAllocationFiles(l.args.AllocationInputs...); err != nil {
		return err
	}
	if l.args.DoPacking {
		if err := l.Pack(ctx); err != nil {
			return err
		}
		if l.args.AllocationOutput != "" {
			if err := l.WriteAllocationFile(l.args.AllocationOutput); err != nil {
				return err
			}
		}
	}
	if l.args.DoLinking {
		return l.Link(ctx)
	}
	return nil
}

// Format returns the canonical address format shared by every target.
func (l *Linker) Format() addr.Format { return l.format }

// Targets returns the loaded targets.
func (l *Linker) Targets() *target.Map { return &l.targets }

// Objects returns the link objects in load order.
func (l *Linker) Objects() []*pack.LinkObject { return slices.Clone(l.objects) }

// Object returns the link object at path.
func (l *Linker) Object(path string) (*pack.LinkObject, bool) {
	o, ok := l.byPath[path]
	return o, ok
}

// LoadTargets reads the target documents and applies the path overrides.
func (l *Linker) LoadTargets() error {
	for _, path := range l.args.Targets {
		targets, err := config.LoadTargets(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		for _, t := range targets {
			if err := l.AddTarget(t); err != nil {
				return err
			}
		}
	}
	if l.targets.Len() == 0 {
		return fmt.Errorf("%w: no targets declared", ErrConfig)
	}
	return nil
}

// AddTarget registers t, filling its paths from the arguments.
func (l *Linker) AddTarget(t *target.Target) error {
	if in, ok := l.args.TargetInputs[t.ID]; ok {
		t.InputPath = in
	}
	if out, ok := l.args.TargetOutputs[t.ID]; ok {
		t.OutputPath = out
	}
	if l.args.DoLinking {
		if t.InputPath == "" {
			return fmt.Errorf("%w: did not specify an input path for target %q", ErrConfig, t.ID)
		}
		if t.OutputPath == "" {
			return fmt.Errorf("%w: did not specify an output path for target %q", ErrConfig, t.ID)
		}
	}
	if l.format == nil {
		l.format = t.Format()
	} else if !l.format.Compatible(t.Format()) {
		return fmt.Errorf("%w: target %q uses format %s, others use %s",
			ErrConfig, t.ID, t.Format().Name(), l.format.Name())
	}
	if err := l.targets.Add(t); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	logger.Info("added target", "id", t.ID, "input", t.InputPath, "output", t.OutputPath)
	for _, b := range t.FreeBlocks() {
		logger.Debug("added free block", "target", t.ID, "block", b.String(), "offset", b.Offset)
	}
	return nil
}

// LoadConstraints reads the constraint documents.
func (l *Linker) LoadConstraints() error {
	if l.format == nil {
		return fmt.Errorf("%w: constraints need targets to be loaded first", ErrConfig)
	}
	for _, path := range l.args.Constraints {
		if err := config.LoadConstraints(path, l.format, &l.constraints); err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
	}
	logger.Info("loaded constraints", "rules", l.constraints.Len())
	return nil
}

// AddConstraint registers c for paths matching pattern.
func (l *Linker) AddConstraint(pattern string, c constraint.Constraint) error {
	if err := l.constraints.Add(pattern, c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	logger.Info("added constraint", "pattern", pattern, "constraint", c.String())
	return nil
}

// LoadObjects reads the object documents.
func (l *Linker) LoadObjects() error {
	if l.format == nil {
		return fmt.Errorf("%w: objects need targets to be loaded first", ErrConfig)
	}
	for _, path := range l.args.Objects {
		objs, err := config.LoadObjects(path, l.format)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		for _, o := range objs {
			if err := l.AddObject(o); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddObject wraps o in a link object. Constraints must already be loaded.
func (l *Linker) AddObject(o *object.Object) error {
	if _, dup := l.byPath[o.Path]; dup {
		return fmt.Errorf("%w: duplicate object %s", ErrConfig, o.Path)
	}
	if err := o.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	lo, err := pack.NewLinkObject(o)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	l.constraints.Apply(lo)
	l.objects = append(l.objects, lo)
	l.byPath[o.Path] = lo

	logger.Debug("added object", "path", o.Path, "size", lo.Size(),
		"sections", len(o.Sections), "references", len(o.References))
	return nil
}

// LoadAllocationFiles reads allocation files. Entries naming a loaded object
// pin it at the recorded address; the others become external addresses for
// reference resolution.
func (l *Linker) LoadAllocationFiles(paths ...string) error {
	for _, path := range paths {
		entries, err := config.LoadAllocations(path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		for p, v := range entries {
			a, ok := l.format.FromInteger(v)
			if !ok {
				return fmt.Errorf("%w: %s: 0x%X is not a %s address", ErrConfig, path, v, l.format.Name())
			}
			if o, ok := l.byPath[p]; ok {
				o.SetFixedAddress(a)
				continue
			}
			l.external[p] = a
		}
		logger.Info("loaded allocation file", "path", path, "entries", len(entries))
	}
	return nil
}

// Pack places every object without an address.
func (l *Linker) Pack(ctx context.Context) error {
	if err := l.packer.SetFreeBlocks(l.targets.FreeBlocks()); err != nil {
		return err
	}
	for _, o := range l.objects {
		if err := l.packer.AddObject(o); err != nil {
			return err
		}
	}
	logger.Info("packing objects into free blocks", "objects", len(l.objects))
	if err := l.packer.Pack(ctx); err != nil {
		return fmt.Errorf("link: could not pack objects into the free blocks: %w", err)
	}
	logger.Info("finished packing", "steps", l.packer.Steps())
	for _, o := range l.objects {
		a, _ := o.Address()
		logger.Debug("allocated object", "path", o.Path(), "address", a.String())
	}
	return nil
}

// Allocations returns every placed object's encoded address by path.
func (l *Linker) Allocations() map[string]uint64 {
	out := make(map[string]uint64, len(l.objects))
	for _, o := range l.objects {
		if a, err := o.Address(); err == nil {
			out[o.Path()] = a.Integer()
		}
	}
	return out
}

// WriteAllocations renders Allocations as an allocation file into w.
func (l *Linker) WriteAllocations(w writer.Sink) error {
	data, err := config.MarshalAllocations(l.Allocations())
	if err != nil {
		return err
	}
	return w.WriteAll(data)
}

// WriteAllocationFile writes Allocations to path atomically.
func (l *Linker) WriteAllocationFile(path string) error {
	if err := l.WriteAllocations(&writer.FileWriter{Path: path}); err != nil {
		return fmt.Errorf("link: write allocation file %s: %w", path, err)
	}
	logger.Info("wrote allocation file", "path", path)
	return nil
}

// ResolveReference returns the address of the object or external entry at path.
func (l *Linker) ResolveReference(path string) (addr.Address, bool) {
	if o, ok := l.byPath[path]; ok {
		if a, err := o.Address(); err == nil {
			return a, true
		}
		return addr.Address{}, false
	}
	a, ok := l.external[path]
	return a, ok
}

// Link resolves references and writes the output binaries.
func (l *Linker) Link(ctx context.Context) error {
	var missing []error
	for _, o := range l.objects {
		if !o.HasAddress() {
			missing = append(missing, fmt.Errorf("%w: %s", ErrMissingAllocation, o.Path()))
		}
	}
	if len(missing) > 0 {
		return errors.Join(missing...)
	}
	patches, err := l.resolveReferences()
	if err != nil {
		return err
	}
	return l.writeBinaries(ctx, patches)
}
