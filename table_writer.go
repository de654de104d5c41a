package bdzhash

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	bdzerrors "github.com/tamirms/bdzhash/errors"
	"github.com/tamirms/bdzhash/internal/platform"
)

// tableWriter writes a table image to disk through a writable memory map.
type tableWriter struct {
	file *os.File
	mmap mmap.MMap // Memory-mapped region
	data []byte    // View into mmap for direct writes
}

// newTableWriter creates path, reserves size bytes and maps them for writing.
func newTableWriter(path string, size int) (*tableWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create table file: %w", err)
	}

	if err := platform.Reserve(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("failed to allocate disk space: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	mm, err := mmap.MapRegion(file, size, mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("failed to mmap file: %w", err)
		return nil, errors.Join(primaryErr, file.Close(), os.Remove(path))
	}

	tw := &tableWriter{
		file: file,
		mmap: mm,
		data: []byte(mm),
	}

	platform.PrefaultWrite(tw.data)
	return tw, nil
}

// finalize flushes and unmaps the region and closes the file.
// On error, delegates to close() for idempotent cleanup.
func (tw *tableWriter) finalize() error {
	if err := tw.mmap.Flush(); err != nil {
		primaryErr := fmt.Errorf("mmap flush failed: %w", err)
		return errors.Join(primaryErr, tw.close())
	}

	// Nil mmap regardless of outcome to prevent close() from retrying.
	unmapErr := tw.mmap.Unmap()
	tw.mmap = nil
	if unmapErr != nil {
		primaryErr := fmt.Errorf("mmap unmap failed: %w", unmapErr)
		return errors.Join(primaryErr, tw.close())
	}

	closeErr := tw.file.Close()
	tw.file = nil
	return closeErr
}

// close closes the writer without finalizing (for error cleanup).
// Idempotent: safe to call multiple times.
func (tw *tableWriter) close() error {
	var unmapErr error
	if tw.mmap != nil {
		unmapErr = tw.mmap.Unmap()
		tw.mmap = nil
	}
	var closeErr error
	if tw.file != nil {
		closeErr = tw.file.Close()
		tw.file = nil
	}
	return errors.Join(unmapErr, closeErr)
}

// WriteFile writes the table image to path, replacing any existing file.
// On failure the partially written file is removed.
func (t *Table) WriteFile(path string) error {
	if t.closed.Load() {
		return bdzerrors.ErrTableClosed
	}

	tw, err := newTableWriter(path, len(t.data))
	if err != nil {
		return err
	}
	copy(tw.data, t.data)

	if err := tw.finalize(); err != nil {
		return errors.Join(err, os.Remove(path))
	}
	return nil
}
