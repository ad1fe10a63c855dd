package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
)

const (
	IVSize            = aes.BlockSize // CBC IV size
	DefaultSaltLength = 10            // Salt characters appended to each field
	SaltAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!$%&?+*#-_."
)

var (
	ErrInvalidKeyLength   = errors.New("invalid key length")
	ErrInvalidIVLength    = errors.New("invalid iv length")
	ErrInvalidSaltLength  = errors.New("invalid salt length")
	ErrInvalidCiphertext  = errors.New("invalid ciphertext")
	ErrInvalidPadding     = errors.New("invalid padding")
	ErrUnsupportedVersion = errors.New("unsupported format version")
)

// FieldCipher encrypts and decrypts the fields of one document. The key and
// IV are shared by all fields; only the appended salt differs.
type FieldCipher struct {
	key        []byte
	iv         []byte
	saltLength int
}

// NewFieldCipher creates a field cipher for the given key, IV and salt length
func NewFieldCipher(key, iv []byte, saltLength int) (*FieldCipher, error) {
	if err := checkParams(key, iv, saltLength); err != nil {
		return nil, err
	}

	return &FieldCipher{
		key:        append([]byte(nil), key...),
		iv:         append([]byte(nil), iv...),
		saltLength: saltLength,
	}, nil
}

// Encrypt encrypts one field value
func (c *FieldCipher) Encrypt(plaintext string) ([]byte, error) {
	return EncryptField(plaintext, c.key, c.iv, c.saltLength)
}

// Decrypt decrypts one field value written by the given format version
func (c *FieldCipher) Decrypt(ciphertext []byte, version int) (string, error) {
	return DecryptField(ciphertext, c.key, c.iv, version, c.saltLength)
}

// Destroy clears the cipher's key from memory
func (c *FieldCipher) Destroy() {
	ClearBytes(c.key)
}

// EncryptField appends a random salt of saltLength characters to plaintext
// and encrypts the result with AES-256-CBC.
func EncryptField(plaintext string, key, iv []byte, saltLength int) ([]byte, error) {
	if err := checkParams(key, iv, saltLength); err != nil {
		return nil, err
	}

	salt, err := GenerateSalt(saltLength)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	data := pad([]byte(plaintext+salt), aes.BlockSize)
	defer ClearBytes(data)

	ciphertext := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, data)

	return ciphertext, nil
}

// DecryptField decrypts ciphertext with AES-256-CBC and hands the unpadded
// plaintext to the strategy registered for version.
func DecryptField(ciphertext, key, iv []byte, version, saltLength int) (string, error) {
	strategy, err := LookupVersion(version)
	if err != nil {
		return "", err
	}
	if err := checkParams(key, iv, saltLength); err != nil {
		return "", err
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	data := make([]byte, len(ciphertext))
	defer ClearBytes(data)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(data, ciphertext)

	unpadded, err := unpad(data, aes.BlockSize)
	if err != nil {
		return "", err
	}

	plaintext, err := strategy.Finish(unpadded, saltLength)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// GenerateSalt returns n characters drawn uniformly from SaltAlphabet
func GenerateSalt(n int) (string, error) {
	if n < 0 {
		return "", ErrInvalidSaltLength
	}

	max := big.NewInt(int64(len(SaltAlphabet)))
	salt := make([]byte, n)
	for i := range salt {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		salt[i] = SaltAlphabet[idx.Int64()]
	}

	return string(salt), nil
}

// GenerateIV generates a random CBC initialization vector
func GenerateIV() ([]byte, error) {
	return GenerateRandom(IVSize)
}

func checkParams(key, iv []byte, saltLength int) error {
	if len(key) != KeySize {
		return ErrInvalidKeyLength
	}
	if len(iv) != IVSize {
		return ErrInvalidIVLength
	}
	if saltLength < 0 {
		return ErrInvalidSaltLength
	}
	return nil
}

// pad applies PKCS#7 padding
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding. A wrong key usually ends up here.
func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}

	return data[:len(data)-n], nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
