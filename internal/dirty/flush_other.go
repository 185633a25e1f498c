//go:build !unix

package dirty

import "context"

// Without mmap the file is written back when the mapping closes.
func (t *Tracker) flushRanges(context.Context, []byte) error { return nil }

func fdatasync(int, bool) error { return nil }
