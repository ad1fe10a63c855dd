package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"strings"
	"testing"
)

func testKeyIV(t *testing.T) ([]byte, []byte) {
	t.Helper()
	key := DeriveKey([]byte("secret"))
	iv, err := GenerateIV()
	if err != nil {
		t.Fatalf("GenerateIV failed: %v", err)
	}
	return key, iv
}

func TestDeriveKey(t *testing.T) {
	key := DeriveKey([]byte("secret"))
	if len(key) != KeySize {
		t.Fatalf("key length = %d, want %d", len(key), KeySize)
	}

	want := sha256.Sum256([]byte("secret"))
	if !bytes.Equal(key, want[:]) {
		t.Error("DeriveKey should be a single SHA-256 pass")
	}

	if !bytes.Equal(key, DeriveKey([]byte("secret"))) {
		t.Error("DeriveKey should be deterministic")
	}
	if bytes.Equal(key, DeriveKey([]byte("Secret"))) {
		t.Error("different passwords should derive different keys")
	}

	if got := len(DeriveKey(nil)); got != KeySize {
		t.Errorf("empty password key length = %d, want %d", got, KeySize)
	}
}

func TestEncryptDecryptField(t *testing.T) {
	key, iv := testKeyIV(t)

	tests := []struct {
		name       string
		plaintext  string
		saltLength int
	}{
		{name: "simple", plaintext: "pw1", saltLength: DefaultSaltLength},
		{name: "empty value", plaintext: "", saltLength: DefaultSaltLength},
		{name: "block sized", plaintext: "0123456789abcdef", saltLength: 0},
		{name: "unicode", plaintext: "pässwörd 世界", saltLength: 4},
		{name: "long salt", plaintext: "x", saltLength: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := EncryptField(tt.plaintext, key, iv, tt.saltLength)
			if err != nil {
				t.Fatalf("EncryptField failed: %v", err)
			}
			if len(ct)%aes.BlockSize != 0 {
				t.Errorf("ciphertext length %d is not a block multiple", len(ct))
			}

			got, err := DecryptField(ct, key, iv, CurrentVersion, tt.saltLength)
			if err != nil {
				t.Fatalf("DecryptField failed: %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("DecryptField = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestEncryptFieldSaltRandomization(t *testing.T) {
	key, iv := testKeyIV(t)

	ct1, err := EncryptField("same", key, iv, DefaultSaltLength)
	if err != nil {
		t.Fatalf("EncryptField failed: %v", err)
	}
	ct2, err := EncryptField("same", key, iv, DefaultSaltLength)
	if err != nil {
		t.Fatalf("EncryptField failed: %v", err)
	}

	if bytes.Equal(ct1, ct2) {
		t.Error("identical plaintexts should produce different ciphertexts")
	}
}

func TestEncryptFieldZeroSaltIsDeterministic(t *testing.T) {
	key, iv := testKeyIV(t)

	ct1, _ := EncryptField("same", key, iv, 0)
	ct2, _ := EncryptField("same", key, iv, 0)

	// Without salt the shared IV leaks equality
	if !bytes.Equal(ct1, ct2) {
		t.Error("zero salt length should produce identical ciphertexts")
	}
}

func TestDecryptFieldLegacyVersion(t *testing.T) {
	key, iv := testKeyIV(t)

	// Format 1 wrote plain AES-CBC without a salt
	block, _ := aes.NewCipher(key)
	data := pad([]byte("legacy-password"), aes.BlockSize)
	ct := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, data)

	got, err := DecryptField(ct, key, iv, LegacyVersion, 0)
	if err != nil {
		t.Fatalf("DecryptField failed: %v", err)
	}
	if got != "legacy-password" {
		t.Errorf("DecryptField = %q, want %q", got, "legacy-password")
	}

	// The legacy path must not truncate, whatever salt length is passed
	got, err = DecryptField(ct, key, iv, LegacyVersion, DefaultSaltLength)
	if err != nil {
		t.Fatalf("DecryptField failed: %v", err)
	}
	if got != "legacy-password" {
		t.Errorf("legacy decrypt truncated value: %q", got)
	}
}

func TestDecryptFieldWrongKey(t *testing.T) {
	key, iv := testKeyIV(t)

	ct, err := EncryptField("pw1", key, iv, DefaultSaltLength)
	if err != nil {
		t.Fatalf("EncryptField failed: %v", err)
	}

	wrong := DeriveKey([]byte("wrong"))
	got, err := DecryptField(ct, wrong, iv, CurrentVersion, DefaultSaltLength)
	if err == nil {
		// Valid padding by chance: the plaintext must still be garbage
		if got == "pw1" {
			t.Fatal("wrong key decrypted to the original plaintext")
		}
		return
	}
	if !errors.Is(err, ErrInvalidPadding) && !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("expected padding error, got %v", err)
	}
}

func TestDecryptFieldErrors(t *testing.T) {
	key, iv := testKeyIV(t)
	ct, err := EncryptField("pw1", key, iv, DefaultSaltLength)
	if err != nil {
		t.Fatalf("EncryptField failed: %v", err)
	}

	tests := []struct {
		name       string
		ciphertext []byte
		key        []byte
		iv         []byte
		version    int
		saltLength int
		want       error
	}{
		{"unknown version", ct, key, iv, CurrentVersion + 1, DefaultSaltLength, ErrUnsupportedVersion},
		{"short key", ct, key[:16], iv, CurrentVersion, DefaultSaltLength, ErrInvalidKeyLength},
		{"short iv", ct, key, iv[:8], CurrentVersion, DefaultSaltLength, ErrInvalidIVLength},
		{"negative salt", ct, key, iv, CurrentVersion, -1, ErrInvalidSaltLength},
		{"empty ciphertext", nil, key, iv, CurrentVersion, DefaultSaltLength, ErrInvalidCiphertext},
		{"partial block", ct[:len(ct)-1], key, iv, CurrentVersion, DefaultSaltLength, ErrInvalidCiphertext},
		{"salt longer than plaintext", ct, key, iv, CurrentVersion, 64, ErrInvalidCiphertext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecryptField(tt.ciphertext, tt.key, tt.iv, tt.version, tt.saltLength)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecryptField error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateSalt(t *testing.T) {
	salt, err := GenerateSalt(200)
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	if len(salt) != 200 {
		t.Fatalf("salt length = %d, want 200", len(salt))
	}
	for _, r := range salt {
		if !strings.ContainsRune(SaltAlphabet, r) {
			t.Errorf("salt contains %q outside the alphabet", r)
		}
	}

	empty, err := GenerateSalt(0)
	if err != nil || empty != "" {
		t.Errorf("GenerateSalt(0) = %q, %v", empty, err)
	}

	if _, err := GenerateSalt(-1); !errors.Is(err, ErrInvalidSaltLength) {
		t.Errorf("GenerateSalt(-1) error = %v", err)
	}
}

func TestUnpad(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"zero pad byte", append(make([]byte, 15), 0x00), ErrInvalidPadding},
		{"pad byte too large", append(make([]byte, 15), 0x11), ErrInvalidPadding},
		{"inconsistent padding", append(make([]byte, 14), 0x01, 0x02), ErrInvalidPadding},
		{"full block of padding", bytes.Repeat([]byte{0x10}, 16), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := unpad(tt.data, aes.BlockSize)
			if !errors.Is(err, tt.want) {
				t.Errorf("unpad error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFieldCipher(t *testing.T) {
	key, iv := testKeyIV(t)

	c, err := NewFieldCipher(key, iv, DefaultSaltLength)
	if err != nil {
		t.Fatalf("NewFieldCipher failed: %v", err)
	}
	defer c.Destroy()

	ct, err := c.Encrypt("value")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	got, err := c.Decrypt(ct, CurrentVersion)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if got != "value" {
		t.Errorf("Decrypt = %q, want %q", got, "value")
	}

	if _, err := NewFieldCipher(key, nil, DefaultSaltLength); !errors.Is(err, ErrInvalidIVLength) {
		t.Errorf("NewFieldCipher without IV error = %v", err)
	}
}

// unregisterVersion drops a version registered by a test, so the package
// tests can run more than once in one process.
func unregisterVersion(version int) {
	versionsMu.Lock()
	defer versionsMu.Unlock()
	delete(versions, version)
}

func TestVersionRegistry(t *testing.T) {
	versions := Versions()
	if len(versions) < 2 || versions[0] != LegacyVersion || versions[1] != CurrentVersion {
		t.Fatalf("Versions() = %v, want legacy and current registered", versions)
	}

	if _, err := LookupVersion(0); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("LookupVersion(0) error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("registering an existing version should panic")
		}
	}()
	RegisterVersion(CurrentVersion, VersionFunc(finishLegacy))
}

func TestRegisterVersionExtendsDecrypt(t *testing.T) {
	const testVersion = 1000
	t.Cleanup(func() { unregisterVersion(testVersion) })

	// Reversed plaintext, to prove the registered strategy is used
	RegisterVersion(testVersion, VersionFunc(func(p []byte, _ int) ([]byte, error) {
		out := make([]byte, len(p))
		for i := range p {
			out[len(p)-1-i] = p[i]
		}
		return out, nil
	}))

	key, iv := testKeyIV(t)
	ct, err := EncryptField("abc", key, iv, 0)
	if err != nil {
		t.Fatalf("EncryptField failed: %v", err)
	}

	got, err := DecryptField(ct, key, iv, testVersion, 0)
	if err != nil {
		t.Fatalf("DecryptField failed: %v", err)
	}
	if got != "cba" {
		t.Errorf("DecryptField = %q, want %q", got, "cba")
	}
}

func TestRegisterVersionRepeatable(t *testing.T) {
	const testVersion = 1001
	identity := VersionFunc(func(p []byte, _ int) ([]byte, error) { return p, nil })

	for i := 0; i < 2; i++ {
		RegisterVersion(testVersion, identity)
		if _, err := LookupVersion(testVersion); err != nil {
			t.Fatalf("LookupVersion after register #%d: %v", i+1, err)
		}
		unregisterVersion(testVersion)
	}

	if _, err := LookupVersion(testVersion); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("LookupVersion after unregister error = %v", err)
	}
}
