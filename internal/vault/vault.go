// Package vault holds the in-memory set of named secrets.
//
// A Vault has no persistence logic of its own; it is produced by decoding a
// document (see package codec) and re-encoded as a whole when saved.
package vault

import (
	"errors"
	"sort"
)

var ErrEmptyName = errors.New("entry name is empty")

// Vault maps entry names to plaintext secrets
type Vault struct {
	entries map[string]string
}

// New creates an empty vault
func New() *Vault {
	return &Vault{entries: make(map[string]string)}
}

// FromMap creates a vault holding a copy of m
func FromMap(m map[string]string) *Vault {
	v := &Vault{entries: make(map[string]string, len(m))}
	for name, value := range m {
		v.entries[name] = value
	}
	return v
}

// Set creates or overwrites an entry
func (v *Vault) Set(name, value string) error {
	if name == "" {
		return ErrEmptyName
	}
	v.entries[name] = value
	return nil
}

// Get returns the value of an entry
func (v *Vault) Get(name string) (string, bool) {
	value, ok := v.entries[name]
	return value, ok
}

// Has reports whether the entry exists
func (v *Vault) Has(name string) bool {
	_, ok := v.entries[name]
	return ok
}

// Delete removes an entry. Returns false if it did not exist.
func (v *Vault) Delete(name string) bool {
	if _, ok := v.entries[name]; !ok {
		return false
	}
	delete(v.entries, name)
	return true
}

// Len returns the number of entries
func (v *Vault) Len() int {
	return len(v.entries)
}

// Names returns all entry names, sorted
func (v *Vault) Names() []string {
	names := make([]string, 0, len(v.entries))
	for name := range v.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the entries
func (v *Vault) Map() map[string]string {
	m := make(map[string]string, len(v.entries))
	for name, value := range v.entries {
		m[name] = value
	}
	return m
}

// Clone returns an independent copy of the vault
func (v *Vault) Clone() *Vault {
	return FromMap(v.entries)
}

// Equal reports whether both vaults hold the same entries
func (v *Vault) Equal(other *Vault) bool {
	if other == nil || len(v.entries) != len(other.entries) {
		return false
	}
	for name, value := range v.entries {
		if ov, ok := other.entries[name]; !ok || ov != value {
			return false
		}
	}
	return true
}
