// Package main implements the datadex command line tool: a catalog
// mapping parameter metadata to filesystem directories.
package main

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/datadex/datadex/internal/catalog"
	"github.com/datadex/datadex/internal/config"
	"github.com/datadex/datadex/internal/params"
)

// Exit codes by failure class.
const (
	ExitOK       = 0
	ExitUsage    = 1
	ExitConfig   = 2
	ExitParse    = 3
	ExitStorage  = 4
	ExitNotFound = 5
)

func main() {
	fs := flag.NewFlagSet("datadex", flag.ExitOnError)
	fs.SetInterspersed(false)

	var (
		configPath string
		dbPath     string
		markerFile string
		verbose    bool
		hashDirs   bool
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration file (YAML or JSON)")
	fs.StringVar(&dbPath, "db", "", "Path to the catalog store file")
	fs.StringVar(&markerFile, "marker", "", "Per-directory metadata filename")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Report per-directory status during indexing")
	fs.BoolVar(&hashDirs, "hash", false, "Rename indexed directories to their content digest")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: datadex [options] <command> [args]

Commands:
  create [schema-file]    Create the library from a schema description file
  index <root>            Index every marked directory under root
  reindex <root>          Reset the library and index root from scratch
  search [condition ...]  Print directories matching the AND-joined conditions
  prune                   Remove rows whose directory no longer exists
  describe <field>        Print the description of a schema field

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  datadex --db lab/dex.db create lab/headers.json
  datadex --db lab/dex.db index lab/experiments
  datadex --db lab/dex.db search "TEMPERATURE IS 300" "PRESSURE IS 101"
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(ExitUsage)
	}
	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(ExitUsage)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitConfig)
	}
	if fs.Changed("db") {
		cfg.DBPath = dbPath
	}
	if fs.Changed("marker") {
		cfg.MarkerFile = markerFile
	}
	if fs.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if fs.Changed("hash") {
		cfg.HashNaming = hashDirs
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitConfig)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "create":
		runCreate(rest, cfg)
	case "index":
		runIndex(rest, cfg, false)
	case "reindex":
		runIndex(rest, cfg, true)
	case "search":
		runSearch(rest, cfg)
	case "prune":
		runPrune(cfg)
	case "describe":
		runDescribe(rest, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", command)
		fs.Usage()
		os.Exit(ExitUsage)
	}
}

// loadConfig layers defaults, an optional config file, and environment
// overrides. Flag overrides are applied by the caller.
func loadConfig(configPath string) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// openCatalog opens the configured store, wiring verbose progress
// reporting through to stdout.
func openCatalog(cfg *config.Config) *catalog.Catalog {
	opts := catalog.Options{
		MarkerFile: cfg.MarkerFile,
		HashNaming: cfg.HashNaming,
	}
	if cfg.Verbose {
		opts.Progress = func(dir, status string) {
			fmt.Printf("* Directory %s %s\n", dir, status)
		}
	}

	dex, err := catalog.Open(cfg.DBPath, opts)
	if err != nil {
		fail(err)
	}
	return dex
}

// fail prints an error and exits with the code for its class.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	var parseErr *params.ParseError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &parseErr):
		return ExitParse
	case errors.Is(err, catalog.ErrConfiguration),
		errors.Is(err, catalog.ErrSchemaConflict):
		return ExitConfig
	case errors.Is(err, catalog.ErrFilesystem):
		return ExitNotFound
	default:
		return ExitStorage
	}
}
