//go:build darwin

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges syncs the whole mapping: msync on macOS needs the address the
// mapping started at. Only dirty pages are written.
func (t *Tracker) flushRanges(_ context.Context, data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

func fdatasync(fd int, fullfsync bool) error {
	if fullfsync {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
		return err
	}
	return unix.Fsync(fd)
}
