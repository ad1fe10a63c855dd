// Package crypto provides cryptographic operations for passvault.
//
// Field encryption uses AES-256-CBC with:
//   - 32-byte key derived from the master password (see DeriveKey)
//   - 16-byte IV generated once per document and shared by every field
//   - a random salt of SaltLength characters appended to each plaintext,
//     so identical plaintexts encrypt differently under the shared IV
//   - PKCS#7 block padding
//
// The default key derivation is a single unsalted SHA-256 pass over the
// password. Document formats 1 and 2 depend on it and it cannot change
// without a format version bump.
//
// CBC offers no integrity protection. A wrong key is detected only when the
// padding turns out invalid (ErrInvalidPadding); otherwise decryption
// silently returns garbage.
//
// Decryption is dispatched through a version registry (RegisterVersion,
// LookupVersion), one VersionStrategy per document format version.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call FieldCipher.Destroy() when done with a document
package crypto
