package crypto

import "crypto/sha256"

const KeySize = 32 // AES-256 key size

// KeyDeriver turns a master password into a KeySize-byte key. The keygen
// field names the deriver; changing it needs a new format version.
type KeyDeriver interface {
	DeriveKey(password []byte) []byte
	Name() string
}

// SHA256KDF is the key derivation used by document formats 1 and 2: one
// unsalted, non-iterated SHA-256 pass. It is a known weakness kept for
// format compatibility.
type SHA256KDF struct{}

// DeriveKey returns sha256(password)
func (SHA256KDF) DeriveKey(password []byte) []byte {
	sum := sha256.Sum256(password)
	return sum[:]
}

// Name returns the identifier written to the document keygen field
func (SHA256KDF) Name() string {
	return "SHA256"
}

// DeriveKey derives a key with the default SHA256KDF. Any input is accepted.
func DeriveKey(password []byte) []byte {
	return SHA256KDF{}.DeriveKey(password)
}
