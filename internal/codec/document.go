package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/illarion/passvault/internal/crypto"
)

// Reserved document field names
const (
	FieldIV          = "iv"
	FieldDescription = "description"
	FieldCipher      = "cipher"
	FieldKeyGen      = "keygen"
	FieldVersion     = "version"
	FieldSaltLength  = "salt_length"
)

const (
	CipherName  = "AES-256-CBC"
	Description = "Every other field is an entry: base64(AES-256-CBC(value + salt)) with key = SHA256(master password) " +
		"and the shared iv. salt is salt_length random characters, absent in version 1 documents."
)

var reserved = map[string]bool{
	FieldIV:          true,
	FieldDescription: true,
	FieldCipher:      true,
	FieldKeyGen:      true,
	FieldVersion:     true,
	FieldSaltLength:  true,
}

// IsReserved reports whether name is a document metadata field. A vault
// entry with such a name is shadowed by the metadata and lost on decode.
func IsReserved(name string) bool {
	return reserved[name]
}

// ReservedNames returns the reserved field names, sorted
func ReservedNames() []string {
	names := make([]string, 0, len(reserved))
	for name := range reserved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document is the encrypted, self-describing form of a vault
type Document struct {
	Version     int
	IV          []byte
	SaltLength  int
	Cipher      string
	KeyGen      string
	Description string

	// Fields maps entry names to base64 ciphertext
	Fields map[string]string
}

// Entries returns the names of the encrypted entries, sorted, without
// reserved names.
func (d *Document) Entries() []string {
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		if !IsReserved(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Marshal serializes the document as a single-line flat JSON object.
// Metadata overwrites any entry with a reserved name.
func (d *Document) Marshal() ([]byte, error) {
	obj := make(map[string]any, len(d.Fields)+6)
	for name, value := range d.Fields {
		obj[name] = value
	}

	obj[FieldIV] = base64.StdEncoding.EncodeToString(d.IV)
	obj[FieldDescription] = d.Description
	obj[FieldCipher] = d.Cipher
	obj[FieldKeyGen] = d.KeyGen
	obj[FieldVersion] = d.Version
	if d.Version > crypto.LegacyVersion {
		obj[FieldSaltLength] = d.SaltLength
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// ParseDocument parses a serialized document. It validates the metadata but
// decrypts nothing, so it needs no password. A document of a newer format
// version fails with *VersionError before any other field is looked at.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if raw == nil {
		return nil, &ParseError{Err: errors.New("document is not an object")}
	}

	doc := &Document{Fields: make(map[string]string, len(raw))}

	versionRaw, ok := raw[FieldVersion]
	if !ok {
		return nil, &ParseError{Field: FieldVersion, Err: errMissing}
	}
	if err := json.Unmarshal(versionRaw, &doc.Version); err != nil {
		return nil, &ParseError{Field: FieldVersion, Err: err}
	}
	if doc.Version <= 0 {
		return nil, &ParseError{Field: FieldVersion, Err: fmt.Errorf("invalid version %d", doc.Version)}
	}
	if doc.Version > crypto.CurrentVersion {
		return nil, &VersionError{Version: doc.Version, Supported: crypto.CurrentVersion}
	}

	ivRaw, ok := raw[FieldIV]
	if !ok {
		return nil, &ParseError{Field: FieldIV, Err: errMissing}
	}
	iv, err := decodeBase64(ivRaw)
	if err != nil {
		return nil, &ParseError{Field: FieldIV, Err: err}
	}
	if len(iv) != crypto.IVSize {
		return nil, &ParseError{Field: FieldIV, Err: fmt.Errorf("iv is %d bytes, want %d", len(iv), crypto.IVSize)}
	}
	doc.IV = iv

	if saltRaw, ok := raw[FieldSaltLength]; ok {
		if err := json.Unmarshal(saltRaw, &doc.SaltLength); err != nil {
			return nil, &ParseError{Field: FieldSaltLength, Err: err}
		}
		if doc.SaltLength < 0 {
			return nil, &ParseError{Field: FieldSaltLength, Err: fmt.Errorf("negative salt length %d", doc.SaltLength)}
		}
	} else if doc.Version > crypto.LegacyVersion {
		return nil, &ParseError{Field: FieldSaltLength, Err: errMissing}
	}

	for name, target := range map[string]*string{
		FieldCipher:      &doc.Cipher,
		FieldKeyGen:      &doc.KeyGen,
		FieldDescription: &doc.Description,
	} {
		value, ok := raw[name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			return nil, &ParseError{Field: name, Err: err}
		}
	}

	for name, value := range raw {
		if IsReserved(name) {
			continue
		}
		var encoded string
		if err := json.Unmarshal(value, &encoded); err != nil {
			return nil, &ParseError{Field: name, Err: err}
		}
		doc.Fields[name] = encoded
	}

	return doc, nil
}

func decodeBase64(raw json.RawMessage) ([]byte, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(encoded)
}
