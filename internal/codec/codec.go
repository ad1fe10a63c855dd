// Package codec converts vaults to and from encrypted documents.
//
// A document is a flat JSON object: one base64 ciphertext field per vault
// entry plus the reserved metadata fields iv, description, cipher, keygen,
// version and salt_length. Documents of older format versions are decoded
// through the matching crypto version strategy and reported with a Warning;
// newer versions are rejected with a VersionError before anything is
// decrypted.
package codec

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/vault"
)

// Codec encodes and decodes vaults
type Codec struct {
	saltLength int
	kdf        crypto.KeyDeriver
	logger     *slog.Logger
	debug      bool
}

// Option configures a Codec
type Option func(*Codec)

// WithSaltLength sets the salt length used when encoding. Zero is allowed but
// makes identical values encrypt identically under the shared IV.
func WithSaltLength(n int) Option {
	return func(c *Codec) {
		c.saltLength = n
	}
}

// WithLogger sets the logger used for debug diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug enables per-field diagnostics. Values are never logged.
func WithDebug(debug bool) Option {
	return func(c *Codec) {
		c.debug = debug
	}
}

// New creates a codec. Defaults: crypto.DefaultSaltLength, no diagnostics.
func New(opts ...Option) *Codec {
	c := &Codec{
		saltLength: crypto.DefaultSaltLength,
		kdf:        crypto.SHA256KDF{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SaltLength returns the salt length used when encoding
func (c *Codec) SaltLength() int {
	return c.saltLength
}

// Encode encrypts every vault entry into a new document in the current
// format. One IV is generated for the whole document.
func (c *Codec) Encode(v *vault.Vault, password []byte) (*Document, error) {
	if c.saltLength < 0 {
		return nil, crypto.ErrInvalidSaltLength
	}

	key := c.kdf.DeriveKey(password)
	defer crypto.ClearBytes(key)

	iv, err := crypto.GenerateIV()
	if err != nil {
		return nil, err
	}

	fc, err := crypto.NewFieldCipher(key, iv, c.saltLength)
	if err != nil {
		return nil, err
	}
	defer fc.Destroy()

	doc := &Document{
		Version:     crypto.CurrentVersion,
		IV:          iv,
		SaltLength:  c.saltLength,
		Cipher:      CipherName,
		KeyGen:      c.kdf.Name(),
		Description: Description,
		Fields:      make(map[string]string, v.Len()),
	}

	for _, name := range v.Names() {
		value, _ := v.Get(name)
		ciphertext, err := fc.Encrypt(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt entry %s: %w", name, err)
		}
		doc.Fields[name] = base64.StdEncoding.EncodeToString(ciphertext)

		if IsReserved(name) {
			c.diag("entry shadowed by reserved field", "entry", name)
		}
	}

	c.diag("encoded document", "version", doc.Version, "entries", len(doc.Fields), "salt_length", doc.SaltLength)
	return doc, nil
}

// Decode decrypts a document into a vault. A non-nil Warning is returned for
// documents older than crypto.CurrentVersion.
//
// Errors: *VersionError for newer documents, *ParseError for bad field
// encodings, *DecryptError when any field fails to decrypt. A wrong password
// that happens to produce valid padding is not detected.
func (c *Codec) Decode(doc *Document, password []byte) (*vault.Vault, *Warning, error) {
	if doc.Version > crypto.CurrentVersion {
		return nil, nil, &VersionError{Version: doc.Version, Supported: crypto.CurrentVersion}
	}
	if doc.Version <= 0 {
		return nil, nil, &ParseError{Field: FieldVersion, Err: fmt.Errorf("invalid version %d", doc.Version)}
	}

	var warning *Warning
	if doc.Version < crypto.CurrentVersion {
		warning = &Warning{DocumentVersion: doc.Version, CurrentVersion: crypto.CurrentVersion}
	}

	key := c.kdf.DeriveKey(password)
	defer crypto.ClearBytes(key)

	fc, err := crypto.NewFieldCipher(key, doc.IV, doc.SaltLength)
	if err != nil {
		switch {
		case errors.Is(err, crypto.ErrInvalidIVLength):
			return nil, nil, &ParseError{Field: FieldIV, Err: err}
		case errors.Is(err, crypto.ErrInvalidSaltLength):
			return nil, nil, &ParseError{Field: FieldSaltLength, Err: err}
		}
		return nil, nil, err
	}
	defer fc.Destroy()

	c.diag("decoding document", "version", doc.Version, "fields", len(doc.Fields), "salt_length", doc.SaltLength)

	v := vault.New()
	for name, encoded := range doc.Fields {
		if IsReserved(name) {
			continue
		}
		if name == "" {
			return nil, nil, &ParseError{Field: name, Err: vault.ErrEmptyName}
		}

		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, nil, &ParseError{Field: name, Err: err}
		}

		plaintext, err := fc.Decrypt(ciphertext, doc.Version)
		if err != nil {
			if errors.Is(err, crypto.ErrUnsupportedVersion) {
				return nil, nil, &VersionError{Version: doc.Version, Supported: crypto.CurrentVersion}
			}
			c.diag("field decrypt failed", "entry", name, "error", err)
			return nil, nil, &DecryptError{Err: err}
		}

		if err := v.Set(name, plaintext); err != nil {
			return nil, nil, &ParseError{Field: name, Err: err}
		}
	}

	return v, warning, nil
}

// Load parses and decodes serialized document bytes
func (c *Codec) Load(data, password []byte) (*vault.Vault, *Warning, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, nil, err
	}
	return c.Decode(doc, password)
}

// Save encodes a vault and serializes the document
func (c *Codec) Save(v *vault.Vault, password []byte) ([]byte, error) {
	doc, err := c.Encode(v, password)
	if err != nil {
		return nil, err
	}
	return doc.Marshal()
}

func (c *Codec) diag(msg string, args ...any) {
	if !c.debug {
		return
	}
	c.logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}
