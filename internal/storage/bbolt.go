package storage

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket   = []byte("config")   // Schema version, timestamps, vault ID - unencrypted
	DocumentBucket = []byte("document") // Serialized vault document
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigVaultID  = []byte("vault_id")

	DocumentCurrent = []byte("current")
)

const schemaVersion = 1

// BoltStore provides BBolt-based storage for a vault document
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates a BBolt vault database
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, FilePermSecure, &bolt.Options{Timeout: time.Second})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &BoltStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// initialize creates the bucket structure for a new database
func (s *BoltStore) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, DocumentBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte(strconv.Itoa(schemaVersion))); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		return config.Put(ConfigCreated, created)
	})
}

// Load returns the stored document
func (s *BoltStore) Load() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		doc := tx.Bucket(DocumentBucket)
		if doc == nil {
			return ErrNotFound
		}
		data = doc.Get(DocumentCurrent)
		if data == nil {
			return ErrNotFound
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), data...)
		return nil
	})
	return data, err
}

// Save replaces the stored document and the modified timestamp in one
// transaction
func (s *BoltStore) Save(document []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		doc, err := tx.CreateBucketIfNotExists(DocumentBucket)
		if err != nil {
			return err
		}
		if err := doc.Put(DocumentCurrent, document); err != nil {
			return err
		}

		config, err := tx.CreateBucketIfNotExists(ConfigBucket)
		if err != nil {
			return err
		}
		modified, _ := time.Now().MarshalBinary()
		return config.Put(ConfigModified, modified)
	})
}

// GetModified retrieves the last modified timestamp
func (s *BoltStore) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return ErrNotFound
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetCreated retrieves the creation timestamp
func (s *BoltStore) GetCreated() (time.Time, error) {
	var created time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigCreated)
		if data == nil {
			return fmt.Errorf("created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// ID retrieves the vault ID, generating one on first use
func (s *BoltStore) ID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(ConfigBucket).Get(ConfigVaultID); data != nil {
			vaultID = string(data)
		}
		return nil
	})
	if err != nil || vaultID != "" {
		return vaultID, err
	}

	vaultID = uuid.NewString()
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigBucket).Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}
	return vaultID, nil
}

// Info reports the document size and modification time
func (s *BoltStore) Info() (*Info, error) {
	var size int64
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(DocumentBucket).Get(DocumentCurrent)
		if data == nil {
			return ErrNotFound
		}
		size = int64(len(data))
		return nil
	})
	if err != nil {
		return nil, err
	}

	modified, err := s.GetModified()
	if err != nil {
		return nil, err
	}

	return &Info{
		Backend:  BackendBolt,
		Path:     s.db.Path(),
		Size:     size,
		Modified: modified,
	}, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// Every save leaves free pages behind, so this is run after rewrites.
func (s *BoltStore) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, FilePermSecure, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Remove(tmpPath)
		s.db, _ = bolt.Open(srcPath, FilePermSecure, nil)
		return fmt.Errorf("failed to replace database: %w", err)
	}

	// Reopen database
	s.db, err = bolt.Open(srcPath, FilePermSecure, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
