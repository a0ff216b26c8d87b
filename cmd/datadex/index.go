package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/datadex/datadex/internal/config"
)

// runIndex indexes a directory tree; with reset, the library is dropped
// and recreated with its current columns first.
func runIndex(args []string, cfg *config.Config, reset bool) {
	name := "index"
	if reset {
		name = "reindex"
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	truncate := fs.Bool("truncate", false, "Delete all existing rows before indexing")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: datadex %s <root>

Description:
  Walk every subdirectory under root and add each one containing a
  metadata marker file. Directories that fail to index are reported
  and skipped; partial success is still success.

`, name)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(ExitUsage)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(ExitUsage)
	}
	root := fs.Arg(0)

	dex := openCatalog(cfg)
	defer dex.Close()

	ctx := context.Background()
	var added bool
	var invalid []string
	var err error
	if reset {
		added, invalid, err = dex.Reindex(ctx, root)
	} else {
		added, invalid, err = dex.Index(ctx, root, *truncate)
	}
	if err != nil {
		fail(err)
	}

	for _, dir := range invalid {
		fmt.Fprintf(os.Stderr, "Warning: failed to index %s\n", dir)
	}
	if added {
		fmt.Println("indexed new directories")
	} else {
		fmt.Println("nothing new to index")
	}
}
