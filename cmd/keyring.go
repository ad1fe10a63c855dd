package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
)

// KeyringSave saves the password to the OS keyring
func KeyringSave() {
	pv := openVault()

	// Prompt for password
	password, err := core.ReadPassword("Enter password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(password)

	// Verify password is correct
	if err := pv.VerifyPassword(password); err != nil {
		HandleError(err)
	}

	vaultID, err := pv.VaultID()
	if err != nil {
		HandleError(err)
	}

	// Save to keyring
	if err := keyring.SavePassword(vaultID, password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Password saved to keyring")
}

// KeyringDelete removes the password from the OS keyring
func KeyringDelete() {
	pv := openVault()

	// Get vault ID
	vaultID, err := pv.VaultID()
	if err != nil {
		fmt.Println("No password stored in keyring")
		return
	}

	// Delete from keyring
	if err := keyring.DeletePassword(vaultID); err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Error: failed to delete from keyring: %s\n", err)
			os.Exit(1)
		}
		fmt.Println("No password stored in keyring")
		return
	}

	fmt.Println("Password removed from keyring")
}

// KeyringStatus checks if a password is stored in the keyring
func KeyringStatus() {
	pv := openVault()

	// Get vault ID
	vaultID, err := pv.VaultID()
	if err != nil {
		fmt.Println("Password: not stored")
		return
	}

	if keyring.HasPassword(vaultID) {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
}
