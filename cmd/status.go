package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/keyring"
)

// Status shows vault metadata without a password
func Status(ctx context.Context) {
	pv := openVault()

	status, err := pv.Status(ctx)
	if errors.Is(err, core.ErrNotInitialized) {
		fmt.Printf("No vault found at %s\n", pv.Path())
		fmt.Println("Run 'passvault init' to create one")
		return
	}
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Vault:       %s (%s)\n", status.Path, status.Backend)
	fmt.Printf("Size:        %s\n", formatSize(status.Size))
	if !status.Modified.IsZero() {
		fmt.Printf("Modified:    %s\n", status.Modified.Format(time.RFC3339))
	}
	fmt.Printf("Format:      version %d", status.Version)
	if status.Outdated() {
		fmt.Printf(" (outdated, current is %d)", status.CurrentVersion)
	}
	fmt.Println()
	fmt.Printf("Cipher:      %s, key %s, salt %d chars\n", status.Cipher, status.KeyGen, status.SaltLength)

	if keyring.HasPassword(status.VaultID) {
		fmt.Println("Keyring:     password stored")
	} else {
		fmt.Println("Keyring:     not stored")
	}

	if w := status.Git.Warning(status.Path); w != "" {
		fmt.Printf("Git:         warning: %s\n", w)
	}

	fmt.Printf("\nEntries (%d):\n", len(status.Entries))
	if len(status.Entries) == 0 {
		fmt.Println("  (none)")
	}
	for _, name := range status.Entries {
		fmt.Printf("  %s\n", name)
	}
}
