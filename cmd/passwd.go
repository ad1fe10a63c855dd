package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
)

// Passwd changes the master password
func Passwd() {
	pv := openVault()

	// Get vault ID for keyring lookup
	vaultID, _ := pv.VaultID()

	// Get current password with retry on stale keyring
	currentPassword, _, err := GetPasswordWithRetry("Enter current password: ", vaultID, pv.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(currentPassword)

	// Get new password
	newPassword, err := core.ReadPasswordConfirm()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(newPassword)

	if err := pv.ChangePassword(currentPassword, newPassword); err != nil {
		HandleError(err)
	}

	// Keep an existing keyring entry in step with the vault
	if vaultID != "" && keyring.HasPassword(vaultID) {
		if err := keyring.SavePassword(vaultID, newPassword); err == nil {
			fmt.Println("Keyring updated with new password")
		}
	}

	// Compact database after rewriting all data
	if _, err := pv.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("password changed successfully")
}
