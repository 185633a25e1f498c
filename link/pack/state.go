package pack

import (
	"github.com/joshuapare/romlink/link/space"
)

// maxShift bounds the probe refinement; slack fits in 63 bits.
const maxShift = 63

// state is one search frame: the candidates of one object and the position
// of the probe among them.
//
// The probe walks the candidates in rounds. A candidate with slack s has
// s+1 valid starts; in round k the probe visits starts that are multiples of
// (s+1)>>k, so round 0 tries each candidate's first start and later rounds
// sample ever more finely. Candidates too small for the round's step are
// skipped, and the frame is exhausted once no candidate is large enough.
type state struct {
	obj        *LinkObject
	candidates []space.Candidate
	index      int
	offset     int64
	shift      uint
	maxSpan    int64
	done       bool

	// feasible caches the forward check for the free space under this frame,
	// which does not change while the frame is on top.
	feasible bool
}

func newState(obj *LinkObject, fs *space.FreeSpace, feasible bool) *state {
	s := &state{obj: obj, feasible: feasible}
	if !feasible {
		s.done = true
		return s
	}
	s.candidates = obj.FindAllocations(fs)
	for _, c := range s.candidates {
		s.maxSpan = max(s.maxSpan, c.Size+1)
	}
	s.done = len(s.candidates) == 0
	return s
}

func (s *state) hasMore() bool { return !s.done }

// current returns the placement under the probe.
func (s *state) current() space.Allocation {
	c := s.candidates[s.index]
	return space.Allocation{
		Address: c.Start.Add(s.offset),
		Offset:  c.Offset + s.offset,
		Size:    c.Size,
		Block:   c.Block,
	}
}

// next moves the probe to the next start to try.
func (s *state) next() {
	if s.done {
		return
	}
	c := s.candidates[s.index]
	if step := (c.Size + 1) >> s.shift; step > 0 && s.offset <= c.Size-step {
		s.offset += step
		return
	}
	for {
		s.index++
		if s.index == len(s.candidates) {
			s.index = 0
			s.shift++
			if s.shift > maxShift || s.maxSpan>>s.shift == 0 {
				s.done = true
				return
			}
		}
		step := (s.candidates[s.index].Size + 1) >> s.shift
		if step == 0 {
			continue
		}
		// Start 0 of every candidate was tried in the first round.
		if s.shift == 0 {
			s.offset = 0
		} else {
			s.offset = step
		}
		return
	}
}
