package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
)

// Set stores an entry. Without a value argument the value is read from the
// terminal without echo, or from stdin when fromStdin is set.
func Set(ctx context.Context, name string, value *string, fromStdin bool) {
	name, err := NormalizeName(name)
	if err != nil {
		HandleError(err)
	}

	pv := openVault()
	password, source := unlockVault(pv, "Enter password: ")
	defer crypto.ClearBytes(password)
	if err := confirmUnverifiable(ctx, pv, password, source, core.ReadPassword); err != nil {
		HandleError(err)
	}

	var v string
	switch {
	case value != nil:
		v = *value
	case fromStdin:
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			HandleError(fmt.Errorf("failed to read value: %w", err))
		}
		v = strings.TrimRight(line, "\r\n")
	default:
		b, err := core.ReadPassword(fmt.Sprintf("Value for %s: ", name))
		if err != nil {
			HandleError(err)
		}
		v = string(b)
		crypto.ClearBytes(b)
	}

	if err := pv.Set(password, name, v); err != nil {
		HandleError(err)
	}
	fmt.Printf("stored: %s\n", name)

	if source == SourcePrompt {
		OfferToSavePassword(pv, password)
	}
}

// Get prints the value of an entry
func Get(_ context.Context, name string) {
	name, err := NormalizeName(name)
	if err != nil {
		HandleError(err)
	}

	pv := openVault()
	password, _ := unlockVault(pv, "Enter password: ")
	defer crypto.ClearBytes(password)

	v, warning, err := pv.Open(password)
	if err != nil {
		HandleError(err)
	}
	printWarning(warning)

	value, ok := v.Get(name)
	if !ok {
		HandleError(fmt.Errorf("%w: %s", core.ErrEntryNotFound, name))
	}
	fmt.Println(value)
}

// Remove deletes entries from the vault
func Remove(_ context.Context, names []string) {
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: passvault rm <name> [name...]")
		os.Exit(1)
	}

	normalized := make([]string, 0, len(names))
	for _, name := range names {
		n, err := NormalizeName(name)
		if err != nil {
			HandleError(err)
		}
		normalized = append(normalized, n)
	}

	pv := openVault()
	password, _ := unlockVault(pv, "Enter password: ")
	defer crypto.ClearBytes(password)

	if err := pv.Delete(password, normalized...); err != nil {
		HandleError(err)
	}
	for _, name := range normalized {
		fmt.Printf("removed: %s\n", name)
	}

	if compacted, err := pv.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	} else if compacted {
		fmt.Println("vault compacted")
	}
}

// List prints entry names. Names are stored in clear, so no password is needed.
func List(ctx context.Context) {
	pv := openVault()

	names, err := pv.List(ctx)
	if err != nil {
		HandleError(err)
	}

	if len(names) == 0 {
		fmt.Println("(no entries)")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}
