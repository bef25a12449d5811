package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is a Store whose image lives in a regular file. Writes are buffered
// in memory until Commit replaces the file.
type File struct {
	image
	path string
}

var _ Store = (*File)(nil)

// OpenFile loads the image from path. A missing file starts as a zero-filled
// image (which loads as default calibration) and is created on open so that
// an unwritable location fails here rather than at the first Commit.
func OpenFile(path string) (*File, error) {
	f := &File{
		image: image{buf: make([]byte, Size)},
		path:  path,
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(data) < Size {
			return nil, fmt.Errorf("store %s: image is %d bytes, want %d", path, len(data), Size)
		}
		copy(f.buf, data)
	case os.IsNotExist(err):
		if err := f.Commit(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to read store %s: %w", path, err)
	}

	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Get decodes the value at addr into v.
func (f *File) Get(addr int, v any) error { return f.get(addr, v) }

// Put encodes v at addr.
func (f *File) Put(addr int, v any) error { return f.put(addr, v) }

// Commit atomically replaces the backing file with the current image.
func (f *File) Commit() error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return fmt.Errorf("failed to commit store %s: %w", f.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(f.buf); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store %s: %w", f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync store %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close store %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to commit store %s: %w", f.path, err)
	}
	return nil
}
