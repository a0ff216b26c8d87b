package catalog

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/datadex/datadex/internal/params"
)

// The library table holds one row per indexed directory; its columns are
// the schema's field names, lower-cased, with filename always last. The
// headers table holds the human-readable description for each field.

// createHeadersSQL creates the headers table.
const createHeadersSQL = `
CREATE TABLE IF NOT EXISTS headers (
    header TEXT NOT NULL,
    description TEXT NOT NULL
)`

// filenameColumn is the mandatory trailing library column.
const filenameColumn = "filename"

// defaultFilenameDescription is used when a schema omits filename.
const defaultFilenameDescription = "The data directory"

// buildCreateLibrarySQL renders the library DDL for an ordered column
// list. Column names arrive lower-cased; quoting guards names that
// collide with SQL keywords.
func buildCreateLibrarySQL(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = `"` + strings.ReplaceAll(col, `"`, `""`) + `"`
	}
	return "CREATE TABLE IF NOT EXISTS library (" + strings.Join(quoted, ", ") + ")"
}

// loadColumns reads the library's column list from the store, or leaves
// it nil when no library exists yet.
func (c *Catalog) loadColumns(ctx context.Context) error {
	rows, err := c.store.query(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'library'")
	if err != nil {
		return err
	}
	exists := rows.Next()
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("catalog: %w: %v", ErrStorage, err)
	}
	if !exists {
		c.columns = nil
		return nil
	}

	rows, err = c.store.query(ctx, "SELECT * FROM library LIMIT 0")
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("catalog: %w: failed to read library columns: %v", ErrStorage, err)
	}
	for i, col := range columns {
		columns[i] = strings.ToLower(col)
	}
	c.columns = columns
	return nil
}

// Columns returns the library's ordered column list, or nil when no
// library has been created.
func (c *Catalog) Columns() []string {
	if c.columns == nil {
		return nil
	}
	columns := make([]string, len(c.columns))
	copy(columns, c.columns)
	return columns
}

// normalizeSchema lower-cases the schema's field names and moves the
// filename column to the end, appending it with the default description
// when the schema omits it. The trailing position is load-bearing: Open
// rejects a library whose last column is not filename.
func normalizeSchema(schema *params.Schema) *params.Schema {
	normalized := params.NewSchema()
	filenameDesc := defaultFilenameDescription
	for _, name := range schema.Names() {
		desc, _ := schema.Description(name)
		if strings.EqualFold(name, filenameColumn) {
			filenameDesc = desc
			continue
		}
		normalized.Append(strings.ToLower(name), desc)
	}
	normalized.Append(filenameColumn, filenameDesc)
	return normalized
}

// columnsMatch reports whether the cached columns equal the schema's
// field names in order.
func columnsMatch(columns []string, schema *params.Schema) bool {
	names := schema.Names()
	if len(columns) != len(names) {
		return false
	}
	for i, col := range columns {
		if col != names[i] {
			return false
		}
	}
	return true
}

// CreateLibrary creates the library and headers tables from a schema
// descriptor. When a library already exists with the same columns and
// force is unset this is a no-op; with differing columns and force unset
// it fails with ErrSchemaConflict. With force set the library is rebuilt
// under the new schema and every previously indexed directory is
// re-added; directories whose metadata no longer fits the new columns
// are returned as the invalid list rather than aborting the migration.
func (c *Catalog) CreateLibrary(ctx context.Context, schema *params.Schema, force bool) ([]string, error) {
	if schema == nil || schema.Len() == 0 {
		return nil, fmt.Errorf("catalog: %w: schema declares no fields", ErrConfiguration)
	}
	schema = normalizeSchema(schema)

	release, err := c.store.borrow()
	if err != nil {
		return nil, err
	}
	defer release()

	if c.columns == nil {
		if err := c.createTables(ctx, schema); err != nil {
			return nil, err
		}
		if err := c.store.commit(); err != nil {
			return nil, err
		}
		c.columns = schema.Names()
		return nil, nil
	}

	if columnsMatch(c.columns, schema) && !force {
		return nil, nil
	}
	if !force {
		return nil, fmt.Errorf("catalog: %w: library already exists with columns (%s)",
			ErrSchemaConflict, strings.Join(c.columns, ", "))
	}

	return c.recreateLibrary(ctx, schema)
}

// createTables creates the library and headers tables and populates the
// headers descriptions. Caller commits.
func (c *Catalog) createTables(ctx context.Context, schema *params.Schema) error {
	if err := c.store.exec(ctx, buildCreateLibrarySQL(schema.Names())); err != nil {
		return err
	}
	if err := c.store.exec(ctx, createHeadersSQL); err != nil {
		return err
	}
	for _, name := range schema.Names() {
		desc, _ := schema.Description(name)
		if err := c.store.exec(ctx,
			"INSERT INTO headers (header, description) VALUES (?, ?)", name, desc); err != nil {
			return err
		}
	}
	return nil
}

// recreateLibrary replaces the library wholesale: snapshot the stored
// directory paths, drop and recreate both tables under the new schema,
// then replay every snapshot directory against it. Replay failures are
// collected, not fatal.
func (c *Catalog) recreateLibrary(ctx context.Context, schema *params.Schema) ([]string, error) {
	snapshot, err := c.Search(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.exec(ctx, "DROP TABLE IF EXISTS library"); err != nil {
		return nil, err
	}
	if err := c.store.exec(ctx, "DROP TABLE IF EXISTS headers"); err != nil {
		return nil, err
	}
	if err := c.createTables(ctx, schema); err != nil {
		return nil, err
	}
	c.columns = schema.Names()

	var invalid []string
	for _, dir := range snapshot {
		if err := c.readdDirectory(ctx, dir); err != nil {
			log.Printf("[WARN] catalog: directory %s does not fit the new schema, skipping: %v", dir, err)
			invalid = append(invalid, dir)
		}
	}

	if err := c.store.commit(); err != nil {
		return invalid, err
	}
	return invalid, nil
}

// readdDirectory replays one snapshot directory against the new schema.
// Unlike ordinary indexing, which leaves omitted fields NULL, a replayed
// entry must cover every non-filename column: a marker that lacks a new
// field has no value to migrate and the directory is invalid.
func (c *Catalog) readdDirectory(ctx context.Context, dir string) error {
	entry, err := params.ParseEntry(filepath.Join(dir, c.markerFile))
	if err != nil {
		return err
	}
	for _, col := range c.columns {
		if col == filenameColumn {
			continue
		}
		if !entryHasField(entry, col) {
			return fmt.Errorf("catalog: %w: %s has no value for column %q", ErrStorage, dir, col)
		}
	}

	found, _, err := c.AddDirectory(ctx, dir)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("catalog: %w: %q has no marker file", ErrFilesystem, dir)
	}
	return nil
}

// resetLibrary drops and recreates the library table with the cached
// columns, leaving headers untouched. Caller commits.
func (c *Catalog) resetLibrary(ctx context.Context) error {
	if c.columns == nil {
		return fmt.Errorf("catalog: %w: no library has been created", ErrConfiguration)
	}
	if err := c.store.exec(ctx, "DROP TABLE IF EXISTS library"); err != nil {
		return err
	}
	return c.store.exec(ctx, buildCreateLibrarySQL(c.columns))
}

// HasHeader reports whether a field name appears in the headers table.
func (c *Catalog) HasHeader(ctx context.Context, name string) (bool, error) {
	descs, err := c.DescribeHeader(ctx, name)
	if err != nil {
		return false, err
	}
	return len(descs) > 0, nil
}

// DescribeHeader returns the descriptions stored for a field name: a
// single element for a unique field, several if duplicates exist, and
// none when the field is unknown.
func (c *Catalog) DescribeHeader(ctx context.Context, name string) ([]string, error) {
	release, err := c.store.borrow()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := c.store.query(ctx,
		"SELECT description FROM headers WHERE header IS ?", strings.ToLower(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var descs []string
	for rows.Next() {
		var desc string
		if err := rows.Scan(&desc); err != nil {
			return nil, fmt.Errorf("catalog: %w: failed to scan description: %v", ErrStorage, err)
		}
		descs = append(descs, desc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: %w: %v", ErrStorage, err)
	}
	return descs, nil
}
