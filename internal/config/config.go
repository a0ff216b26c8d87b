// Package config provides configuration for the datadex catalog and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the catalog configuration. Defaults that the original
// tool kept as module-level constants (marker and schema filenames) are
// carried here and passed explicitly into the catalog.
type Config struct {
	// DBPath is the path to the single-file catalog store.
	DBPath string `json:"db_path" yaml:"db_path"`

	// MarkerFile is the per-directory metadata filename that signals
	// a directory is indexable.
	MarkerFile string `json:"marker_file" yaml:"marker_file"`

	// SchemaFile is the default schema description filename used by
	// library creation.
	SchemaFile string `json:"schema_file" yaml:"schema_file"`

	// HashNaming enables content-addressed directory naming: indexed
	// directories are renamed to the digest of their contents.
	HashNaming bool `json:"hash_naming" yaml:"hash_naming"`

	// Verbose enables per-directory progress reporting.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DBPath:     "dex.db",
		MarkerFile: "params.json",
		SchemaFile: "headers.json",
	}
}

// LoadFromFile loads configuration from a YAML or JSON file, selected by
// extension. Fields absent from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse YAML %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse JSON %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported config format %q (want .yaml, .yml, or .json)", filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the configuration. A .env
// file in the current directory is loaded first; variables already set
// in the environment take precedence over it.
//
//	DATADEX_DB           store path
//	DATADEX_MARKER_FILE  marker filename
//	DATADEX_SCHEMA_FILE  schema filename
//	DATADEX_HASH_NAMING  content-addressed naming (true/false)
//	DATADEX_VERBOSE      progress reporting (true/false)
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("DATADEX_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("DATADEX_MARKER_FILE"); v != "" {
		c.MarkerFile = v
	}
	if v := os.Getenv("DATADEX_SCHEMA_FILE"); v != "" {
		c.SchemaFile = v
	}
	if v := os.Getenv("DATADEX_HASH_NAMING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.HashNaming = b
		}
	}
	if v := os.Getenv("DATADEX_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Verbose = b
		}
	}
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path must not be empty")
	}
	if c.MarkerFile == "" || strings.ContainsRune(c.MarkerFile, os.PathSeparator) {
		return fmt.Errorf("config: marker_file must be a bare filename, got %q", c.MarkerFile)
	}
	if c.SchemaFile == "" {
		return fmt.Errorf("config: schema_file must not be empty")
	}
	return nil
}
