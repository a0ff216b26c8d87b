package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "dex.db", cfg.DBPath)
	assert.Equal(t, "params.json", cfg.MarkerFile)
	assert.Equal(t, "headers.json", cfg.SchemaFile)
	assert.False(t, cfg.HashNaming)
	assert.False(t, cfg.Verbose)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datadex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"db_path: /data/dex.db\nhash_naming: true\nverbose: true\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/dex.db", cfg.DBPath)
	assert.True(t, cfg.HashNaming)
	assert.True(t, cfg.Verbose)
	// Absent fields keep their defaults.
	assert.Equal(t, "params.json", cfg.MarkerFile)
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datadex.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"db_path": "/data/dex.db", "marker_file": "meta.json"}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/dex.db", cfg.DBPath)
	assert.Equal(t, "meta.json", cfg.MarkerFile)
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datadex.toml")
	require.NoError(t, os.WriteFile(path, []byte("db_path = 'x'"), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DATADEX_DB", "/env/dex.db")
	t.Setenv("DATADEX_MARKER_FILE", "env-params.json")
	t.Setenv("DATADEX_HASH_NAMING", "true")
	t.Setenv("DATADEX_VERBOSE", "1")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "/env/dex.db", cfg.DBPath)
	assert.Equal(t, "env-params.json", cfg.MarkerFile)
	assert.True(t, cfg.HashNaming)
	assert.True(t, cfg.Verbose)
}

func TestApplyEnv_IgnoresUnparsableBool(t *testing.T) {
	t.Setenv("DATADEX_HASH_NAMING", "definitely")

	cfg := Default()
	cfg.ApplyEnv()
	assert.False(t, cfg.HashNaming)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DBPath = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MarkerFile = filepath.Join("nested", "params.json")
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.SchemaFile = ""
	assert.Error(t, cfg.Validate())
}
