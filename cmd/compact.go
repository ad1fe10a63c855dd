package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/core"
)

// Compact compacts the vault database to reclaim unused space
func Compact() {
	pv := openVault()

	// Get file size before
	info, err := os.Stat(pv.Path())
	if os.IsNotExist(err) {
		HandleError(core.ErrNotInitialized)
	}
	if err != nil {
		HandleError(err)
	}
	sizeBefore := info.Size()

	compacted, err := pv.Compact()
	if err != nil {
		HandleError(err)
	}
	if !compacted {
		fmt.Println("Nothing to compact: the file backend rewrites the whole document on every save")
		return
	}

	// Get file size after
	info, err = os.Stat(pv.Path())
	if err != nil {
		HandleError(err)
	}
	sizeAfter := info.Size()

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}
