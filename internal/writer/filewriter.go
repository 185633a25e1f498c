// Package writer provides sinks for whole-file output.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives one complete file image.
type Sink interface {
	WriteAll(buf []byte) error
}

// FileWriter writes to a filesystem path atomically.
type FileWriter struct {
	Path string

	// Perm is the mode of a newly written file; 0 means 0o644.
	Perm os.FileMode
}

// WriteAll writes buf via a temp file in the same directory and a rename.
// Missing parent directories are created.
func (w *FileWriter) WriteAll(buf []byte) error {
	dir := filepath.Dir(w.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".romlink-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, writeErr := tmpFile.Write(buf); writeErr != nil {
		return fmt.Errorf("write temp file: %w", writeErr)
	}
	perm := w.Perm
	if perm == 0 {
		perm = 0o644
	}
	if chmodErr := tmpFile.Chmod(perm); chmodErr != nil {
		return fmt.Errorf("chmod temp file: %w", chmodErr)
	}
	if syncErr := tmpFile.Sync(); syncErr != nil {
		return fmt.Errorf("sync temp file: %w", syncErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	tmpFile = nil

	if renameErr := os.Rename(tmpPath, w.Path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", renameErr)
	}
	return nil
}
