package limpet

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskStorage stores files on the local filesystem. The zero value is ready
// to use.
type DiskStorage struct{}

var _ Storage = DiskStorage{}

// Join composes a directory and a base name with the OS path separator.
func (DiskStorage) Join(dir, name string) string {
	return filepath.Join(dir, name)
}

// EnsureDir creates dir and any missing parents.
func (DiskStorage) EnsureDir(_ context.Context, dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// Writable probes dir by creating and removing a temp file.
func (DiskStorage) Writable(_ context.Context, dir string) error {
	f, err := os.CreateTemp(dir, ".limpet-*")
	if err != nil {
		return err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}

// Exists reports whether anything exists at path.
func (DiskStorage) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Move relocates src to dst. Upload temp files arrive with restrictive
// permissions, so the stored file's mode is reset after the move. Falls
// back to copy-and-remove when rename fails, as it does across filesystem
// boundaries.
func (d DiskStorage) Move(ctx context.Context, src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		if err := d.Copy(ctx, src, dst); err != nil {
			return err
		}
		if err := os.Remove(src); err != nil {
			return err
		}
	}
	return os.Chmod(dst, 0o644)
}

// Copy writes a copy of src at dst, going through a temp file in the
// destination directory so a partial write never occupies the final path.
func (DiskStorage) Copy(_ context.Context, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".limpet-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Remove deletes the file at path. Removing a missing file is not an error.
func (DiskStorage) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
