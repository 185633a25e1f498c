// Package mmfile memory-maps input and output binaries.
package mmfile

import (
	"errors"
	"fmt"
	"os"
)

// ErrClosed indicates use of a closed mapping.
var ErrClosed = errors.New("mmfile: mapping closed")

// File is a writable view of a whole file. On platforms without mmap the
// contents are read into memory and written back by Close.
type File struct {
	f      *os.File
	data   []byte
	mapped bool
	closed bool
}

// OpenWritable maps the existing file at path for reading and writing.
func OpenWritable(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	size := info.Size()
	if size > int64(^uint(0)>>1) {
		_ = f.Close()
		return nil, fmt.Errorf("mmfile: %s too large to map (%d bytes)", path, size)
	}
	m := &File{f: f}
	if size == 0 {
		m.data = []byte{}
		return m, nil
	}
	if m.data, m.mapped, err = mapWritable(f, int(size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmfile: map %s: %w", path, err)
	}
	return m, nil
}

// Bytes returns the file contents. Writes to the slice change the file.
func (m *File) Bytes() []byte { return m.data }

// FD returns the underlying descriptor.
func (m *File) FD() int { return int(m.f.Fd()) }

// Mapped reports whether Bytes is a shared mapping of the file.
func (m *File) Mapped() bool { return m.mapped }

// Name returns the file's path.
func (m *File) Name() string { return m.f.Name() }

// Close releases the mapping and the descriptor.
func (m *File) Close() error {
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	err := unmapWritable(m.f, m.data, m.mapped)
	m.data = nil
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
