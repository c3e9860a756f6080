package jsonstore

import (
	"io/fs"
	"os"
)

// FS is the filesystem interface the store uses.
// This allows injection of failing filesystems in tests.
type FS interface {
	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm fs.FileMode) error

	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating it if necessary.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Remove removes a file or empty directory.
	Remove(path string) error

	// Rename renames (moves) a file.
	Rename(oldpath, newpath string) error

	// Stat returns file info for a path.
	Stat(path string) (fs.FileInfo, error)
}

// OS returns an FS backed by the os package.
func OS() FS {
	return osFS{}
}

type osFS struct{}

func (osFS) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (osFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (osFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (osFS) Remove(path string) error {
	return os.Remove(path)
}

func (osFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (osFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}
