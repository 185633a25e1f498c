package link

import (
	"errors"
	"fmt"

	"github.com/joshuapare/romlink/internal/logger"
	"github.com/joshuapare/romlink/link/pack"
	"github.com/joshuapare/romlink/patch"
)

// resolveReferences turns every object's references into patches relative
// to the object's logical data. Missing targets are collected and reported
// together unless external references are allowed.
func (l *Linker) resolveReferences() (map[*pack.LinkObject][]patch.Patch, error) {
	out := make(map[*pack.LinkObject][]patch.Patch, len(l.objects))
	var errs []error
	for _, lo := range l.objects {
		o := lo.Object()
		for i, ref := range o.References {
			a, ok := l.ResolveReference(ref.Referenced)
			if !ok {
				if l.args.AllowExternal {
					logger.Warn("external symbol left unpatched",
						"object", o.Path, "offset", ref.Offset, "symbol", ref.Referenced)
					continue
				}
				errs = append(errs, fmt.Errorf("%w: %s+0x%X -> %s",
					ErrUnresolvedReference, o.Path, ref.Offset, ref.Referenced))
				continue
			}
			ps, err := o.SolveReference(i, a)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out[lo] = append(out[lo], ps...)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
