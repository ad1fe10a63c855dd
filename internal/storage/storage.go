package storage

import (
	"errors"
	"fmt"
	"time"
)

const (
	BackendFile = "file"
	BackendBolt = "bolt"

	FilePermSecure = 0600 // File: owner rw only
)

var (
	ErrNotFound       = errors.New("vault document not found")
	ErrLocked         = errors.New("vault is locked by another process")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Store reads and replaces the persisted document of one vault
type Store interface {
	// Load returns the current document, or ErrNotFound.
	Load() ([]byte, error)

	// Save replaces the current document.
	Save(document []byte) error

	// ID returns a stable identifier for this vault.
	ID() (string, error)

	// Info describes the persisted document without reading it.
	Info() (*Info, error)

	Close() error
}

// Info describes a persisted document
type Info struct {
	Backend  string
	Path     string
	Size     int64
	Modified time.Time
}

// Open opens the store for backend at path
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return OpenFile(path), nil
	case BackendBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}
