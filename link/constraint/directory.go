package constraint

import (
	"fmt"
	"regexp"

	"github.com/joshuapare/romlink/addr"
)

// Constrainable is the part of a link object the directory configures.
type Constrainable interface {
	Path() string
	Constrain(c Constraint)
	SetFixedAddress(a addr.Address)
}

type rule struct {
	pattern    string
	re         *regexp.Regexp
	constraint Constraint
}

// Directory maps path patterns to constraints.
type Directory struct {
	rules []rule
}

// Add registers c for every object whose full path matches pattern.
func (d *Directory) Add(pattern string, c Constraint) error {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return fmt.Errorf("constraint: pattern /%s/: %w", pattern, err)
	}
	d.rules = append(d.rules, rule{pattern: pattern, re: re, constraint: c})
	return nil
}

// Len returns the number of registered rules.
func (d *Directory) Len() int { return len(d.rules) }

// Match returns copies of every constraint whose pattern matches path, in
// registration order.
func (d *Directory) Match(path string) []Constraint {
	var out []Constraint
	for _, r := range d.rules {
		if r.re.MatchString(path) {
			out = append(out, r.constraint.Copy())
		}
	}
	return out
}

// Apply attaches the matching constraints to obj. Several matches are
// combined with And; a constraint yielding a fixed address pins the object
// instead of constraining its search.
func (d *Directory) Apply(obj Constrainable) {
	matches := d.Match(obj.Path())
	if len(matches) == 0 {
		return
	}
	c := matches[0]
	if len(matches) > 1 {
		c = NewAnd(matches...)
	}
	if a, ok := c.FixedAddress(); ok {
		obj.SetFixedAddress(a)
		return
	}
	obj.Constrain(c)
}
