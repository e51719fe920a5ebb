package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var _ Store = (*Disk)(nil)

// Disk stores objects as files below a base directory.
type Disk struct {
	baseDir string
}

func NewDisk(baseDir string) *Disk {
	return &Disk{baseDir: baseDir}
}

func (d *Disk) path(name string) string {
	return filepath.Join(d.baseDir, filepath.FromSlash(name))
}

// Get opens a file in read only mode.
// Caller should take care of closing the returned io.ReadCloser.
func (d *Disk) Get(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %s: %w", name, err)
	}
	return f, nil
}

// Put writes to a temp file in the target directory and renames it into place.
func (d *Disk) Put(_ context.Context, name string, r io.Reader) error {
	target := d.path(name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("storage: failed to create dir for %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("storage: failed to replace %s: %w", name, err)
	}
	return nil
}

func (d *Disk) Delete(_ context.Context, name string) error {
	err := os.Remove(d.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: failed to delete %s: %w", name, err)
	}
	return nil
}

func (d *Disk) Close() error { return nil }
