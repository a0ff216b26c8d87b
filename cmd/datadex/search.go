package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/datadex/datadex/internal/config"
)

// runSearch prints the directories matching the AND-joined conditions,
// or every indexed directory when no conditions are given.
func runSearch(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: datadex search [condition ...]

Description:
  Print the directory of every library row matching the AND-joined
  predicate conditions. Field names are upper-case in conditions.

Examples:
  datadex search
  datadex search "TEMPERATURE IS 300"
  datadex search "TEMPERATURE IS 300" "PRESSURE IS NULL"

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(ExitUsage)
	}

	dex := openCatalog(cfg)
	defer dex.Close()

	filenames, err := dex.Search(context.Background(), fs.Args()...)
	if err != nil {
		fail(err)
	}
	for _, name := range filenames {
		fmt.Println(name)
	}
}
