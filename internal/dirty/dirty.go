// Package dirty tracks the byte ranges written to a memory-mapped output
// file and flushes them to disk.
//
// Ranges are page-aligned and coalesced at flush time, then written back
// with msync followed by fdatasync (F_FULLFSYNC on macOS when requested).
package dirty

import (
	"context"
	"sort"
)

const (
	defaultRangeCapacity = 64
	standardPageSize     = 4096
)

// FlushMode controls how far Flush goes.
type FlushMode int

const (
	// FlushAuto msyncs the dirty pages and fdatasyncs the descriptor.
	FlushAuto FlushMode = iota

	// FlushDataOnly only msyncs the dirty pages.
	FlushDataOnly

	// FlushFull is FlushAuto with F_FULLFSYNC on macOS.
	FlushFull
)

// Mapping is the mapped file a Tracker flushes.
type Mapping interface {
	Bytes() []byte
	FD() int
	Mapped() bool
}

// Range is a dirty byte range in file offsets.
type Range struct {
	Off int64
	Len int64
}

// Tracker accumulates dirty ranges of one mapping. Not safe for concurrent use.
type Tracker struct {
	m        Mapping
	ranges   []Range
	pageSize int64
}

// NewTracker returns a tracker for m.
func NewTracker(m Mapping) *Tracker {
	return &Tracker{
		m:        m,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
}

// Add records [off, off+length) as written.
func (t *Tracker) Add(off, length int64) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: off, Len: length})
}

// Len returns the number of recorded ranges.
func (t *Tracker) Len() int { return len(t.ranges) }

// Reset drops every recorded range.
func (t *Tracker) Reset() { t.ranges = t.ranges[:0] }

// Flush writes the dirty pages back and, unless mode is FlushDataOnly,
// syncs the descriptor. Unmapped files have nothing to flush here; their
// contents are written on close.
func (t *Tracker) Flush(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := t.m.Bytes()
	if len(t.ranges) == 0 || len(data) == 0 || !t.m.Mapped() {
		t.Reset()
		return nil
	}
	if err := t.flushRanges(ctx, data); err != nil {
		return err
	}
	t.Reset()
	if mode == FlushDataOnly {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fdatasync(t.m.FD(), mode == FlushFull)
}

// Coalesced returns the page-aligned, merged ranges Flush would write.
func (t *Tracker) Coalesced() []Range {
	return t.coalesce()
}

func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			current.Len = max(current.Off+current.Len, next.Off+next.Len) - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
