package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/datadex/datadex/internal/config"
	"github.com/datadex/datadex/internal/params"
)

// runCreate creates the library from a schema description file.
func runCreate(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	force := fs.Bool("force", false, "Rebuild the library and re-add known directories when the schema differs")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: datadex create [schema-file] [--force]

Description:
  Create the library from a schema description file: a JSON object of
  field name to description. The filename column is appended when the
  schema omits it. With --force, a differing schema replaces the
  existing one and every known directory is re-indexed against it;
  directories that no longer fit are reported and skipped.

`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(ExitUsage)
	}

	schemaPath := cfg.SchemaFile
	if fs.NArg() > 0 {
		schemaPath = fs.Arg(0)
	}

	schema, err := params.ParseSchema(schemaPath)
	if err != nil {
		fail(err)
	}

	dex := openCatalog(cfg)
	defer dex.Close()

	invalid, err := dex.CreateLibrary(context.Background(), schema, *force)
	if err != nil {
		fail(err)
	}
	for _, dir := range invalid {
		fmt.Fprintf(os.Stderr, "Warning: %s no longer fits the schema and was skipped\n", dir)
	}
	fmt.Printf("library columns: %v\n", dex.Columns())
}
