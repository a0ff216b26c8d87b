package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/datadex/datadex/internal/config"
)

// runDescribe prints the stored description of a schema field.
func runDescribe(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: datadex describe <field>

Description:
  Print the human-readable description of a library field. Duplicate
  header rows, if any, are all printed.

`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(ExitUsage)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(ExitUsage)
	}
	field := fs.Arg(0)

	dex := openCatalog(cfg)
	defer dex.Close()

	descs, err := dex.DescribeHeader(context.Background(), field)
	if err != nil {
		fail(err)
	}
	if len(descs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: %q is not part of the library schema\n", field)
		os.Exit(ExitNotFound)
	}
	for _, desc := range descs {
		fmt.Printf("%s: %s\n", field, desc)
	}
}
