// Package filex is the local file collaborator of the transfer engine:
// positional chunk reads with zero padding for uploads, positional writes for
// downloads, and removal of abandoned partial files.
package filex

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileAccess is the file collaborator used by a transfer slot.
type FileAccess interface {
	// Read returns n bytes read at off followed by padding zero bytes.
	Read(n int, padding int, off int64) ([]byte, error)
	// Write stores p at off.
	Write(p []byte, off int64) error
	Close() error
}

// LocalFile implements FileAccess over an *os.File.
type LocalFile struct {
	f    *os.File
	path string
}

// OpenRead opens path for chunk reads.
func OpenRead(path string) (*LocalFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &LocalFile{f: f, path: path}, nil
}

// OpenWrite opens path for positional writes, creating it if needed.
// Existing content is kept so an interrupted download can be resumed.
func OpenWrite(path string) (*LocalFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &LocalFile{f: f, path: path}, nil
}

func (l *LocalFile) Path() string {
	return l.path
}

// Size returns the current file size.
func (l *LocalFile) Size() (int64, error) {
	fi, err := l.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (l *LocalFile) Read(n int, padding int, off int64) ([]byte, error) {
	buf := make([]byte, n+padding)
	if _, err := l.f.ReadAt(buf[:n], off); err != nil && !(errors.Is(err, io.EOF) && n == 0) {
		return nil, fmt.Errorf("read %d bytes at %d from %s: %w", n, off, l.path, err)
	}
	return buf, nil
}

func (l *LocalFile) Write(p []byte, off int64) error {
	if _, err := l.f.WriteAt(p, off); err != nil {
		return fmt.Errorf("write %d bytes at %d to %s: %w", len(p), off, l.path, err)
	}
	return nil
}

func (l *LocalFile) Close() error {
	return l.f.Close()
}

// Unlink removes path; a missing file is not an error.
func Unlink(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// EnsureDir creates dir (relative paths are resolved against the working
// directory) and returns its absolute path.
func EnsureDir(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// Rename moves a finished file into place.
func Rename(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("rename %s: %w", from, err)
	}
	return nil
}
