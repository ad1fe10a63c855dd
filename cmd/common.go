package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/illarion/passvault/internal/codec"
	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/illarion/passvault/internal/storage"
	"github.com/illarion/passvault/internal/sync"
)

// PasswordSource tells where a master password came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceKeyring
	SourcePrompt
)

// loadConfig resolves the configuration or exits
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		HandleError(err)
	}
	return cfg
}

// newLogger builds the stderr logger; debug enables per-field diagnostics
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openVault creates the PassVault for the resolved configuration
func openVault() *core.PassVault {
	cfg := loadConfig()
	return core.New(cfg, newLogger(cfg))
}

// NormalizeName puts an entry name typed on the command line into NFC, so
// the same name typed on different systems maps to one entry.
func NormalizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", errors.New("entry name is empty")
	}
	return name, nil
}

// GetPassword retrieves password from environment or prompts user
// The caller is responsible for calling crypto.ClearBytes on the returned password
func GetPassword(prompt string) ([]byte, error) {
	// Try environment variable first
	password := core.GetPasswordFromEnv()
	if password != nil {
		return password, nil
	}

	// Prompt user
	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	return password, nil
}

// GetPasswordOrExit is like GetPassword but exits on error
func GetPasswordOrExit(prompt string) []byte {
	password, err := GetPassword(prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return password
}

// GetPasswordWithRetry looks the password up in the environment, then the
// keyring, then prompts. A stale keyring entry that fails verify is dropped
// and the user is prompted instead.
func GetPasswordWithRetry(prompt, vaultID string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := core.GetPasswordFromEnv(); password != nil {
		return password, SourceEnv, nil
	}

	if vaultID != "" {
		if password, err := keyring.GetPassword(vaultID); err == nil {
			err := verify(password)
			if err == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(err, core.ErrWrongPassword) {
				return nil, SourceKeyring, err
			}
			fmt.Fprintln(os.Stderr, "warning: password in keyring is outdated")
			_ = keyring.DeletePassword(vaultID)
		}
	}

	password, err := core.ReadPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	if len(password) == 0 {
		return nil, SourcePrompt, core.ErrPasswordRequired
	}
	return password, SourcePrompt, nil
}

// unlockVault gets a verified master password for pv or exits
func unlockVault(pv *core.PassVault, prompt string) ([]byte, PasswordSource) {
	vaultID, _ := pv.VaultID()

	password, source, err := GetPasswordWithRetry(prompt, vaultID, pv.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	return password, source
}

// confirmUnverifiable asks for a prompted password a second time when the
// vault has no entry that would reject a typo.
func confirmUnverifiable(ctx context.Context, pv *core.PassVault, password []byte, source PasswordSource, readPassword func(string) ([]byte, error)) error {
	if source != SourcePrompt {
		return nil
	}
	ok, err := pv.CanVerifyPassword(ctx)
	if err != nil || ok {
		return err
	}

	again, err := readPassword("Vault is empty, confirm password: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(again)

	if !crypto.ConstantTimeCompare(password, again) {
		return core.ErrPasswordMismatch
	}
	return nil
}

// GetPasswordForInit retrieves password for init command
// Checks environment variable first, then prompts with confirmation
func GetPasswordForInit() ([]byte, error) {
	// Try environment variable first
	password := core.GetPasswordFromEnv()
	if password != nil {
		return password, nil
	}

	// Fall back to confirmation prompt
	return core.ReadPasswordConfirm()
}

// OfferToSavePassword asks whether a prompted password should go to the keyring
func OfferToSavePassword(pv *core.PassVault, password []byte) {
	vaultID, err := pv.VaultID()
	if err != nil || keyring.HasPassword(vaultID) {
		return
	}

	fmt.Printf("Save password to keyring? [y/N]: ")
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		return
	}

	if err := keyring.SavePassword(vaultID, password); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save to keyring: %s\n", err)
		return
	}
	fmt.Println("Password saved to keyring")
}

// ensureVaultDir creates the directory holding the vault
func ensureVaultDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0700)
}

func printWarning(w *codec.Warning) {
	if w != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

// HandleError handles common errors consistently
func HandleError(err error) {
	var netErr *sync.NetworkError

	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: passvault not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'passvault init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: vault already exists\n")
		fmt.Fprintf(os.Stderr, "Use 'passvault status' to see current state\n")
	case errors.Is(err, core.ErrWrongPassword):
		fmt.Fprintf(os.Stderr, "Error: invalid password\n")
	case errors.Is(err, codec.ErrUnsupportedVersion):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Upgrade passvault to read this vault\n")
	case errors.Is(err, codec.ErrMalformed):
		fmt.Fprintf(os.Stderr, "Error: vault document is corrupt: %s\n", err)
	case errors.As(err, &netErr):
		fmt.Fprintf(os.Stderr, "Error: network error: %s %s: %s\n", netErr.Op, netErr.Addr, netErr.Err)
	case errors.Is(err, sync.ErrMergeAborted):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Local vault left unchanged\n")
	case errors.Is(err, storage.ErrLocked):
		fmt.Fprintf(os.Stderr, "Error: vault is in use by another passvault process\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
