package link

import (
	"context"
	"fmt"
	"slices"

	"github.com/joshuapare/romlink/internal/dirty"
	"github.com/joshuapare/romlink/internal/logger"
	"github.com/joshuapare/romlink/internal/mmfile"
	"github.com/joshuapare/romlink/internal/writer"
	"github.com/joshuapare/romlink/link/pack"
	"github.com/joshuapare/romlink/link/target"
	"github.com/joshuapare/romlink/patch"
)

// placed is an object with its file position in one target.
type placed struct {
	obj    *pack.LinkObject
	offset int64
}

// writeBinaries copies every target's input to its output and writes the
// objects placed in it, one target at a time.
func (l *Linker) writeBinaries(ctx context.Context, patches map[*pack.LinkObject][]patch.Patch) error {
	byTarget := make(map[*target.Target][]placed, l.targets.Len())
	for _, o := range l.objects {
		a, err := o.Address()
		if err != nil {
			return err
		}
		t, err := l.targets.Find(a)
		if err != nil {
			return fmt.Errorf("link: %s: %w", o.Path(), err)
		}
		off, err := t.ToOffsetRange(a, o.Size())
		if err != nil {
			return fmt.Errorf("link: %s: %w", o.Path(), err)
		}
		byTarget[t] = append(byTarget[t], placed{obj: o, offset: off})
	}

	for _, t := range l.targets.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		objs := byTarget[t]
		slices.SortFunc(objs, func(a, b placed) int {
			switch {
			case a.offset < b.offset:
				return -1
			case a.offset > b.offset:
				return 1
			}
			return 0
		})
		if err := l.writeTarget(ctx, t, objs, patches); err != nil {
			return fmt.Errorf("link: target %s: %w", t.ID, err)
		}
		logger.Info("wrote target", "id", t.ID, "output", t.OutputPath, "objects", len(objs))
	}
	return nil
}

func (l *Linker) writeTarget(ctx context.Context, t *target.Target, objs []placed, patches map[*pack.LinkObject][]patch.Patch) error {
	if err := copyFile(t.InputPath, t.OutputPath); err != nil {
		return err
	}
	m, err := mmfile.OpenWritable(t.OutputPath)
	if err != nil {
		return err
	}
	tracker := dirty.NewTracker(m)
	for _, p := range objs {
		if err := writeObject(m.Bytes(), tracker, p, patches[p.obj]); err != nil {
			_ = m.Close()
			return err
		}
	}
	if err := tracker.Flush(ctx, dirty.FlushAuto); err != nil {
		_ = m.Close()
		return err
	}
	return m.Close()
}

// copyFile replaces out with the contents of in. Identical paths patch in place.
func copyFile(in, out string) error {
	if in == out {
		return nil
	}
	data, cleanup, err := mmfile.Map(in)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()
	w := &writer.FileWriter{Path: out}
	return w.WriteAll(data)
}

// writeObject writes each section of p at its file position, applying the
// patches that fall inside it. Patches touching partial bytes keep the bits
// outside their mask from the bytes already in the file.
func writeObject(file []byte, tracker *dirty.Tracker, p placed, patches []patch.Patch) error {
	o := p.obj.Object()
	if end := p.offset + o.Size(); end > int64(len(file)) {
		return fmt.Errorf("%w: %s ends at 0x%X, file has 0x%X bytes", ErrOutsideFile, o.Path, end, len(file))
	}
	for _, pt := range patches {
		if _, ok := o.SectionOf(pt.Offset()); !ok {
			return fmt.Errorf("%w: %s %s", ErrPatchOutsideSection, o.Path, pt)
		}
	}
	for i, s := range o.Sections {
		data := o.SectionData(i)
		at := p.offset + s.RealOffset
		for _, pt := range patches {
			start := pt.Offset()
			if start < s.Offset || start >= s.Offset+s.Size {
				continue
			}
			if start+int64(pt.Size()) > s.Offset+s.Size {
				return fmt.Errorf("%w: %s %s", ErrPatchOutsideSection, o.Path, pt)
			}
			within := start - s.Offset
			if !pt.FullBytes() {
				copy(data[within:within+int64(pt.Size())], file[at+within:])
			}
			if err := pt.WithOffset(within).Apply(data, 0); err != nil {
				return err
			}
		}
		copy(file[at:], data)
		tracker.Add(at, s.Size)
	}
	return nil
}
