package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/config"
	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/sync"
)

// SyncOptions are the flags of the sync and diff commands
type SyncOptions struct {
	Host           string
	Port           int // Zero means the configured port
	KeepLocal      bool
	UseRemote      bool
	Abort          bool
	RemotePassword bool // Prompt for a separate remote password
	ShowValues     bool // diff only
}

func (o SyncOptions) strategy() (core.MergeStrategy, error) {
	n := boolToInt(o.KeepLocal) + boolToInt(o.UseRemote) + boolToInt(o.Abort)
	if n > 1 {
		return 0, fmt.Errorf("--keep-local, --use-remote and --abort are mutually exclusive")
	}

	switch {
	case o.KeepLocal:
		return core.StrategyKeepLocal, nil
	case o.UseRemote:
		return core.StrategyUseRemote, nil
	case o.Abort:
		return core.StrategyAbort, nil
	default:
		return core.StrategyAsk, nil
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func remoteAddress(opts SyncOptions, cfg *config.Config) string {
	host := opts.Host
	if host == "" {
		host = cfg.Host
	}
	port := opts.Port
	if port == 0 {
		port = cfg.Port
	}
	if host == "" {
		fmt.Fprintln(os.Stderr, "Error: no remote host (use -host or set host in config)")
		os.Exit(1)
	}
	return sync.Address(host, port)
}

func readRemotePassword(opts SyncOptions) []byte {
	if !opts.RemotePassword {
		return nil
	}
	password, err := core.ReadPassword("Enter remote password: ")
	if err != nil {
		HandleError(err)
	}
	return password
}

// Sync merges the vault served by a peer into the local vault
func Sync(ctx context.Context, opts SyncOptions) {
	strategy, err := opts.strategy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cfg := loadConfig()
	pv := core.New(cfg, newLogger(cfg))
	addr := remoteAddress(opts, cfg)

	password, source := unlockVault(pv, "Enter password: ")
	defer crypto.ClearBytes(password)
	if err := confirmUnverifiable(ctx, pv, password, source, core.ReadPassword); err != nil {
		HandleError(err)
	}

	remotePassword := readRemotePassword(opts)
	defer crypto.ClearBytes(remotePassword)

	fmt.Printf("fetching vault from %s\n", addr)
	result, err := pv.Sync(ctx, addr, password, remotePassword, core.Resolver(strategy))
	if err != nil {
		HandleError(err)
	}
	printWarning(result.LocalWarning)
	printWarning(result.RemoteWarning)

	fmt.Printf("\n")
	for _, name := range result.Imported {
		fmt.Printf("imported: %s\n", name)
	}
	for _, name := range result.Overwritten {
		fmt.Printf("overwritten: %s\n", name)
	}
	if len(result.Kept) > 0 {
		fmt.Printf("kept local: %d entries\n", len(result.Kept))
	}
	if len(result.Unchanged) > 0 {
		fmt.Printf("unchanged: %d entries\n", len(result.Unchanged))
	}
	if !result.Saved {
		fmt.Println("vault already up to date")
	}

	if source == SourcePrompt {
		OfferToSavePassword(pv, password)
	}
}

// Diff compares the local vault with the vault served by a peer
func Diff(ctx context.Context, opts SyncOptions) {
	cfg := loadConfig()
	pv := core.New(cfg, newLogger(cfg))
	addr := remoteAddress(opts, cfg)

	password, _ := unlockVault(pv, "Enter password: ")
	defer crypto.ClearBytes(password)

	remotePassword := readRemotePassword(opts)
	defer crypto.ClearBytes(remotePassword)

	changes, err := pv.Diff(ctx, addr, password, remotePassword)
	if err != nil {
		HandleError(err)
	}

	if len(changes) == 0 {
		fmt.Println("No changes detected")
		return
	}

	for _, c := range changes {
		switch c.Kind {
		case core.ChangeAdded:
			fmt.Printf("+ %s (only remote)\n", c.Name)
		case core.ChangeRemoved:
			fmt.Printf("- %s (only local)\n", c.Name)
		case core.ChangeModified:
			fmt.Printf("~ %s\n", c.Name)
			if opts.ShowValues {
				fmt.Printf("    %s\n", c.Diff())
			}
		}
	}
}
