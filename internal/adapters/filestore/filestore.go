// Package filestore reads and writes whole text files through an afero filesystem.
//
// Writes truncate and overwrite in place. There is no temp-file rename or journal,
// so a crash mid-write can leave a partial file behind.
package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileStore performs whole-file I/O against fs
type FileStore struct {
	fs afero.Fs
}

// New creates a FileStore. A nil fs means the operating system filesystem.
func New(fsys afero.Fs) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FileStore{fs: fsys}
}

// EnsureExists creates the parent directories and an empty file when path is missing.
func (s *FileStore) EnsureExists(path string) error {
	_, err := s.fs.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: stat %q: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("filestore: create dir %q: %w", dir, err)
		}
	}

	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("filestore: create %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("filestore: close %q: %w", path, err)
	}
	return nil
}

// ReadAll returns the entire file contents
func (s *FileStore) ReadAll(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("filestore: read %q: %w", path, err)
	}
	return data, nil
}

// WriteAll replaces the file contents with data
func (s *FileStore) WriteAll(path string, data []byte) error {
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("filestore: write %q: %w", path, err)
	}
	return nil
}

// Readable reports whether path can currently be opened for reading
func (s *FileStore) Readable(path string) error {
	f, err := s.fs.Open(path)
	if err != nil {
		return fmt.Errorf("filestore: open %q: %w", path, err)
	}
	return f.Close()
}
