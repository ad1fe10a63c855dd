package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/passvault/internal/core"
	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/sync"
)

// Serve publishes the encrypted vault to sync clients until interrupted.
// A zero port means the configured one.
func Serve(ctx context.Context, host string, port int) {
	cfg := loadConfig()
	if port == 0 {
		port = cfg.Port
	}
	pv := core.New(cfg, newLogger(cfg))

	password, _ := unlockVault(pv, "Enter password: ")
	defer crypto.ClearBytes(password)

	addr := sync.Address(host, port)
	fmt.Printf("serving vault on %s (Ctrl-C to stop)\n", addr)

	if err := pv.Serve(ctx, password, addr); err != nil {
		HandleError(err)
	}
}
