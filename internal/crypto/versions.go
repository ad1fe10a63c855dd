package crypto

import (
	"fmt"
	"sort"
	"sync"
)

const (
	LegacyVersion  = 1 // No salt appended to field plaintexts
	CurrentVersion = 2 // SaltLength characters appended to each plaintext
)

// VersionStrategy finishes decryption of one field for a document format
// version. It receives the unpadded CBC plaintext.
type VersionStrategy interface {
	Finish(plaintext []byte, saltLength int) ([]byte, error)
}

// VersionFunc adapts a function to VersionStrategy
type VersionFunc func(plaintext []byte, saltLength int) ([]byte, error)

// Finish calls f
func (f VersionFunc) Finish(plaintext []byte, saltLength int) ([]byte, error) {
	return f(plaintext, saltLength)
}

var (
	versionsMu sync.RWMutex
	versions   = map[int]VersionStrategy{
		LegacyVersion:  VersionFunc(finishLegacy),
		CurrentVersion: VersionFunc(finishSalted),
	}
)

// RegisterVersion makes a decrypt strategy available for a format version.
// It panics if version is not positive, strategy is nil, or the version is
// already registered.
func RegisterVersion(version int, strategy VersionStrategy) {
	versionsMu.Lock()
	defer versionsMu.Unlock()

	if version <= 0 {
		panic(fmt.Sprintf("crypto: invalid format version %d", version))
	}
	if strategy == nil {
		panic("crypto: RegisterVersion strategy is nil")
	}
	if _, dup := versions[version]; dup {
		panic(fmt.Sprintf("crypto: RegisterVersion called twice for version %d", version))
	}
	versions[version] = strategy
}

// LookupVersion returns the decrypt strategy registered for version
func LookupVersion(version int) (VersionStrategy, error) {
	versionsMu.RLock()
	defer versionsMu.RUnlock()

	strategy, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return strategy, nil
}

// Versions returns the registered format versions in ascending order
func Versions() []int {
	versionsMu.RLock()
	defer versionsMu.RUnlock()

	list := make([]int, 0, len(versions))
	for v := range versions {
		list = append(list, v)
	}
	sort.Ints(list)
	return list
}

// finishLegacy returns the plaintext unmodified; format 1 appended no salt.
func finishLegacy(plaintext []byte, _ int) ([]byte, error) {
	return plaintext, nil
}

// finishSalted drops the trailing salt.
func finishSalted(plaintext []byte, saltLength int) ([]byte, error) {
	if saltLength < 0 {
		return nil, ErrInvalidSaltLength
	}
	if saltLength > len(plaintext) {
		return nil, ErrInvalidCiphertext
	}
	return plaintext[:len(plaintext)-saltLength], nil
}
