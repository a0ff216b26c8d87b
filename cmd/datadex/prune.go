package main

import (
	"context"
	"fmt"

	"github.com/datadex/datadex/internal/config"
)

// runPrune removes rows whose directory no longer exists on disk.
func runPrune(cfg *config.Config) {
	dex := openCatalog(cfg)
	defer dex.Close()

	pruned, err := dex.Prune(context.Background())
	if err != nil {
		fail(err)
	}
	if pruned {
		fmt.Println("pruned stale entries")
	} else {
		fmt.Println("nothing to prune")
	}
}
