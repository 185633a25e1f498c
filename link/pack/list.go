package pack

import (
	"sort"

	"github.com/joshuapare/romlink/link/space"
)

// ScoreFunc rates an object against the initial free space. Objects with
// the highest score are placed first.
type ScoreFunc func(o *LinkObject, fs *space.FreeSpace) int64

// DefaultScore places the object with the least slack first.
func DefaultScore(o *LinkObject, fs *space.FreeSpace) int64 {
	return -o.MeasureSlack(fs)
}

type scored struct {
	obj   *LinkObject
	score int64
}

// PriorityObjectList orders objects for the search. unmapped is kept in
// ascending score order so the next object is at the back; mapped is the
// history MapNext and UnmapLast move objects through.
type PriorityObjectList struct {
	fs       *space.FreeSpace
	score    ScoreFunc
	unmapped []scored
	mapped   []scored
}

// NewPriorityObjectList scores objects against fs. A nil score uses DefaultScore.
func NewPriorityObjectList(fs *space.FreeSpace, score ScoreFunc) *PriorityObjectList {
	if score == nil {
		score = DefaultScore
	}
	return &PriorityObjectList{fs: fs, score: score}
}

// Add scores o and inserts it after every object with an equal score.
func (l *PriorityObjectList) Add(o *LinkObject) {
	s := scored{obj: o, score: l.score(o, l.fs)}
	i := sort.Search(len(l.unmapped), func(i int) bool {
		return l.unmapped[i].score > s.score
	})
	l.unmapped = append(l.unmapped, scored{})
	copy(l.unmapped[i+1:], l.unmapped[i:])
	l.unmapped[i] = s
}

// NextUnmapped returns the object the search places next, or nil.
func (l *PriorityObjectList) NextUnmapped() *LinkObject {
	if len(l.unmapped) == 0 {
		return nil
	}
	return l.unmapped[len(l.unmapped)-1].obj
}

// MapNext moves the next object to the mapped history and returns it.
func (l *PriorityObjectList) MapNext() *LinkObject {
	n := len(l.unmapped)
	if n == 0 {
		return nil
	}
	s := l.unmapped[n-1]
	l.unmapped = l.unmapped[:n-1]
	l.mapped = append(l.mapped, s)
	return s.obj
}

// UnmapLast returns the most recently mapped object to the unmapped list.
func (l *PriorityObjectList) UnmapLast() *LinkObject {
	n := len(l.mapped)
	if n == 0 {
		return nil
	}
	s := l.mapped[n-1]
	l.mapped = l.mapped[:n-1]
	l.unmapped = append(l.unmapped, s)
	return s.obj
}

// CanBeSatisfied reports whether every unmapped object still has somewhere
// to go, checking the most constrained first.
func (l *PriorityObjectList) CanBeSatisfied() bool {
	for i := len(l.unmapped) - 1; i >= 0; i-- {
		if !l.unmapped[i].obj.HasAllocations(l.fs) {
			return false
		}
	}
	return true
}

func (l *PriorityObjectList) HasUnmapped() bool { return len(l.unmapped) > 0 }

// Len returns the number of unmapped objects.
func (l *PriorityObjectList) Len() int { return len(l.unmapped) }

// Mapped returns the mapped objects in mapping order.
func (l *PriorityObjectList) Mapped() []*LinkObject {
	out := make([]*LinkObject, len(l.mapped))
	for i, s := range l.mapped {
		out[i] = s.obj
	}
	return out
}
