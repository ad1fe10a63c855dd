package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the document in a plain file
type FileStore struct {
	path string
}

// OpenFile returns a store for the document at path. The file is not
// touched until Load or Save.
func OpenFile(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document
func (s *FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}
	return data, nil
}

// Save writes the document to a temporary file next to the vault and
// renames it over the old one, so an interrupted save leaves the previous
// document intact.
func (s *FileStore) Save(document []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if err := tmp.Chmod(FilePermSecure); err != nil {
		cleanup()
		return fmt.Errorf("failed to set temp file permissions: %w", err)
	}
	if _, err := tmp.Write(document); err != nil {
		cleanup()
		return fmt.Errorf("failed to write vault: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace vault: %w", err)
	}
	return nil
}

// ID returns the absolute path of the vault file
func (s *FileStore) ID() (string, error) {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return abs, nil
}

// Info stats the vault file
func (s *FileStore) Info() (*Info, error) {
	fi, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Info{
		Backend:  BackendFile,
		Path:     s.path,
		Size:     fi.Size(),
		Modified: fi.ModTime(),
	}, nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
