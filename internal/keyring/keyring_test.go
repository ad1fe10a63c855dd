package keyring

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestPasswordLifecycle(t *testing.T) {
	keyring.MockInit()

	const vaultID = "0b7e6a4e-5c1f-4d8e-9a57-6b1f3c2d4e5f"

	if HasPassword(vaultID) {
		t.Fatal("Fresh keyring should not hold a password")
	}

	if err := SavePassword(vaultID, []byte("secret")); err != nil {
		t.Fatalf("SavePassword failed: %v", err)
	}
	if !HasPassword(vaultID) {
		t.Error("HasPassword should be true after save")
	}

	got, err := GetPassword(vaultID)
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if string(got) != "secret" {
		t.Errorf("GetPassword = %q, want %q", got, "secret")
	}

	if err := DeletePassword(vaultID); err != nil {
		t.Fatalf("DeletePassword failed: %v", err)
	}
	if _, err := GetPassword(vaultID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPassword after delete error = %v", err)
	}
	if err := DeletePassword(vaultID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePassword error = %v", err)
	}
}
