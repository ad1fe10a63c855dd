package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/crypto"
)

// Init creates a new empty vault
func Init() {
	pv := openVault()

	if err := ensureVaultDir(pv.Path()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create vault directory: %s\n", err)
		os.Exit(1)
	}

	password, err := GetPasswordForInit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(password)

	if err := pv.Init(password); err != nil {
		HandleError(err)
	}

	fmt.Printf("initialized: %s\n", pv.Path())
}
