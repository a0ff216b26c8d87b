// Package catalog implements the datadex catalog: a single-file SQLite
// store mapping structured metadata to filesystem directories. A
// directory carrying a marker file is indexable; its parsed fields plus
// a filename column (the normalized path, or the content digest of the
// directory when content-addressed naming is enabled) form one library
// row.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/datadex/datadex/internal/bloom"
	"github.com/datadex/datadex/internal/dirhash"
	"github.com/datadex/datadex/internal/params"
)

// ProgressFunc receives per-directory status during bulk indexing:
// "indexed", "already indexed", "skipped (no params file)", or a
// failure description. Reporting never affects control flow.
type ProgressFunc func(dir, status string)

// Options configures a catalog handle.
type Options struct {
	// MarkerFile is the per-directory metadata filename. Empty means
	// "params.json".
	MarkerFile string

	// HashNaming renames indexed directories to the digest of their
	// contents, so identical content under different paths dedupes to
	// one row.
	HashNaming bool

	// Progress, when non-nil, receives per-directory status during
	// Index.
	Progress ProgressFunc
}

// Row is one library row keyed by lower-cased column name.
type Row map[string]interface{}

// Catalog is a handle on a datadex store. It is not safe for concurrent
// use: all operations run synchronously on a single connection.
type Catalog struct {
	store      *store
	columns    []string
	markerFile string
	hashNaming bool
	progress   ProgressFunc

	// known is a filename membership filter seeded at the start of a
	// bulk Index; nil outside of one.
	known *bloom.Filter
}

// Open opens or creates the catalog store at dbPath. The path must be a
// regular file if it exists; missing parent directories are created
// best-effort. An existing library whose last column is not filename is
// rejected.
func Open(dbPath string, opts Options) (*Catalog, error) {
	if dbPath == "" {
		dbPath = "dex.db"
	}

	if info, err := os.Stat(dbPath); err == nil {
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("catalog: %w: %s is not a store file", ErrConfiguration, dbPath)
		}
	} else if dir := filepath.Dir(dbPath); dir != "." {
		// Deferred to first actual use if this fails.
		_ = os.MkdirAll(dir, 0o755)
	}

	c := &Catalog{
		store:      newStore(dbPath),
		markerFile: opts.MarkerFile,
		hashNaming: opts.HashNaming,
		progress:   opts.Progress,
	}
	if c.markerFile == "" {
		c.markerFile = "params.json"
	}

	release, err := c.store.borrow()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.loadColumns(context.Background()); err != nil {
		return nil, err
	}
	if c.columns != nil && c.columns[len(c.columns)-1] != filenameColumn {
		return nil, fmt.Errorf("catalog: %w: filename column is missing from library", ErrConfiguration)
	}
	return c, nil
}

// Close flushes any pending commit and releases the store. The handle
// is unusable afterwards.
func (c *Catalog) Close() error {
	if !c.store.connected() {
		return nil
	}
	if err := c.store.commit(); err != nil {
		c.store.close()
		return err
	}
	return c.store.close()
}

// Search returns the normalized filename of every row matching the
// AND-joined conditions, or of every row when no conditions are given.
// Conditions are raw predicate fragments and are trusted; callers
// composing predicates from untrusted values must go through Lookup.
func (c *Catalog) Search(ctx context.Context, conditions ...string) ([]string, error) {
	release, err := c.store.borrow()
	if err != nil {
		return nil, err
	}
	defer release()

	query := "SELECT FILENAME FROM library"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := c.store.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var filenames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("catalog: %w: failed to scan filename: %v", ErrStorage, err)
		}
		filenames = append(filenames, filepath.Clean(name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: %w: %v", ErrStorage, err)
	}
	return filenames, nil
}

// Select returns the named fields of every row matching the AND-joined
// conditions. A nil or empty field list selects all library columns;
// every named field must be a library column. Like Search, conditions
// are trusted raw predicate fragments.
func (c *Catalog) Select(ctx context.Context, fields []string, conditions ...string) ([]Row, error) {
	release, err := c.store.borrow()
	if err != nil {
		return nil, err
	}
	defer release()

	selected, err := c.selectFields(fields)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + selected + " FROM library"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := c.store.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// Lookup returns the rows exactly matching an entry. With
// ignoreFilename the filename field is excluded from the match; with
// enforceNull every library column the entry omits must be NULL, so an
// entry matches only rows it fully describes.
func (c *Catalog) Lookup(ctx context.Context, entry *params.Map, ignoreFilename, enforceNull bool) ([]Row, error) {
	release, err := c.store.borrow()
	if err != nil {
		return nil, err
	}
	defer release()

	query := "SELECT * FROM library"
	var args []interface{}
	if entry != nil {
		clause, clauseArgs, err := c.entryConditions(entry, ignoreFilename, enforceNull)
		if err != nil {
			return nil, err
		}
		if clause != "" {
			query += " WHERE " + clause
			args = clauseArgs
		}
	}

	rows, err := c.store.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// scanRows drains a result set into rows keyed by lower-cased column
// name.
func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w: %v", ErrStorage, err)
	}

	var results []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("catalog: %w: failed to scan row: %v", ErrStorage, err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[strings.ToLower(col)] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: %w: %v", ErrStorage, err)
	}
	return results, nil
}

// Add inserts an entry unless an exactly matching row already exists.
// It reports whether an insert occurred. The write stays pending until
// the next commit (Index and Close flush it).
func (c *Catalog) Add(ctx context.Context, entry *params.Map) (bool, error) {
	release, err := c.store.borrow()
	if err != nil {
		return false, err
	}
	defer release()

	existing, err := c.Lookup(ctx, entry, true, true)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	fields := entry.Keys()
	quoted := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	args := make([]interface{}, len(fields))
	for i, field := range fields {
		if !c.hasColumn(field) {
			return false, fmt.Errorf("catalog: %w: no column named %q in library", ErrStorage, field)
		}
		quoted[i] = quoteIdent(field)
		placeholders[i] = "?"
		args[i], _ = entry.Get(field)
	}

	query := fmt.Sprintf("INSERT INTO library (%s) VALUES (%s)",
		strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	if err := c.store.exec(ctx, query, args...); err != nil {
		return false, err
	}
	return true, nil
}

// AddDirectory indexes a single directory. The first return reports
// whether the directory carried a marker file, the second whether a row
// was inserted.
//
// Under content-addressed naming the row's filename is the sibling path
// named by the directory's content digest; if that path already exists
// on disk and is already indexed, the directory is skipped without
// re-parsing. After a successful insert (or when the canonical path is
// not yet on disk) the directory is renamed to its digest name.
func (c *Catalog) AddDirectory(ctx context.Context, dir string) (found, added bool, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return false, false, fmt.Errorf("catalog: %w: %q does not exist", ErrFilesystem, dir)
	}
	if !info.IsDir() {
		return false, false, fmt.Errorf("catalog: %w: %q is not a directory", ErrFilesystem, dir)
	}

	markerPath := filepath.Join(dir, c.markerFile)
	if info, err := os.Stat(markerPath); err != nil || !info.Mode().IsRegular() {
		return false, false, nil
	}

	release, err := c.store.borrow()
	if err != nil {
		return true, false, err
	}
	defer release()

	var name string
	if c.hashNaming {
		digest, err := dirhash.HashDir(dir)
		if err != nil {
			return true, false, fmt.Errorf("catalog: %w: %v", ErrFilesystem, err)
		}
		name = filepath.Clean(filepath.Join(filepath.Dir(dir), digest))
		if pathExists(name) {
			indexed, err := c.filenameIndexed(ctx, name)
			if err != nil {
				return true, false, err
			}
			if indexed {
				return true, false, nil
			}
		}
	} else {
		name = filepath.Clean(dir)
	}

	entry, err := params.ParseEntry(markerPath)
	if err != nil {
		return true, false, err
	}
	if entry.Len() == 0 {
		return true, false, fmt.Errorf("catalog: %w: empty params file found at %s", ErrConfiguration, markerPath)
	}
	entry.Set(filenameColumn, name)

	added, err = c.Add(ctx, entry)
	if err != nil {
		return true, false, err
	}
	if added && c.known != nil {
		c.known.Add(name)
	}

	if c.hashNaming && dir != name && (added || !pathExists(name)) {
		if err := os.Rename(dir, name); err != nil {
			return true, added, fmt.Errorf("catalog: %w: failed to rename %s: %v", ErrFilesystem, dir, err)
		}
	}
	return true, added, nil
}

// filenameIndexed reports whether a row references the filename. During
// a bulk Index the bloom filter answers definitive negatives without a
// query; positives fall through to the store.
func (c *Catalog) filenameIndexed(ctx context.Context, name string) (bool, error) {
	if c.known != nil && !c.known.MayContain(name) {
		return false, nil
	}
	probe := params.NewMap()
	probe.Set(filenameColumn, name)
	rows, err := c.Lookup(ctx, probe, false, false)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Index walks every subdirectory under root at any depth and adds each
// one carrying a marker file. With truncate, all existing rows are
// deleted first. Per-directory failures are collected and returned as
// the invalid list so one bad directory never aborts the walk; the
// boolean reports whether anything was added. A single commit runs at
// the end if it was.
func (c *Catalog) Index(ctx context.Context, root string, truncate bool) (bool, []string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return false, nil, fmt.Errorf("catalog: %w: %q is not a directory", ErrFilesystem, root)
	}

	release, err := c.store.borrow()
	if err != nil {
		return false, nil, err
	}
	defer release()

	if c.columns == nil {
		return false, nil, fmt.Errorf("catalog: %w: no library has been created", ErrConfiguration)
	}

	if truncate {
		if err := c.store.exec(ctx, "DELETE FROM library"); err != nil {
			return false, nil, err
		}
	}

	// The filter only serves the content-addressed fast path; the plain
	// duplicate check always goes through Lookup.
	if c.hashNaming {
		if err := c.seedKnown(ctx); err != nil {
			return false, nil, err
		}
		defer func() { c.known = nil }()
	}

	// Snapshot the tree before indexing: content-addressed naming
	// renames directories mid-walk, and walking a mutating tree skips
	// or double-visits entries.
	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return false, nil, fmt.Errorf("catalog: %w: failed to walk %s: %v", ErrFilesystem, root, err)
	}

	anyAdded := false
	var invalid []string
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			// Renamed away by an earlier content-addressed add.
			continue
		}

		found, added, err := c.AddDirectory(ctx, dir)
		switch {
		case err != nil:
			invalid = append(invalid, dir)
			c.report(dir, fmt.Sprintf("failed (%v)", err))
		case found && added:
			c.report(dir, "indexed")
		case found:
			c.report(dir, "already indexed")
		default:
			c.report(dir, "skipped (no params file)")
		}
		anyAdded = anyAdded || added
	}

	if anyAdded || truncate {
		if err := c.store.commit(); err != nil {
			return anyAdded, invalid, err
		}
	}
	return anyAdded, invalid, nil
}

// seedKnown loads every stored filename into the bloom filter consulted
// by AddDirectory's already-indexed fast path.
func (c *Catalog) seedKnown(ctx context.Context) error {
	names, err := c.Search(ctx)
	if err != nil {
		return err
	}
	expected := len(names)
	if expected < 1024 {
		expected = 1024
	}
	c.known = bloom.NewWithEstimates(expected, 0.01)
	for _, name := range names {
		c.known.Add(name)
	}
	return nil
}

// Reindex drops and recreates the library table with the current
// columns, then indexes root from scratch.
func (c *Catalog) Reindex(ctx context.Context, root string) (bool, []string, error) {
	release, err := c.store.borrow()
	if err != nil {
		return false, nil, err
	}
	defer release()

	if err := c.resetLibrary(ctx); err != nil {
		return false, nil, err
	}
	if err := c.store.commit(); err != nil {
		return false, nil, err
	}
	return c.Index(ctx, root, false)
}

// Prune deletes every row whose filename no longer exists on disk and
// reports whether anything was removed. A single commit runs at the end
// if it was.
func (c *Catalog) Prune(ctx context.Context) (bool, error) {
	release, err := c.store.borrow()
	if err != nil {
		return false, err
	}
	defer release()

	filenames, err := c.Search(ctx)
	if err != nil {
		return false, err
	}

	pruned := false
	for _, name := range filenames {
		if pathExists(name) {
			continue
		}
		if err := c.store.exec(ctx, "DELETE FROM library WHERE FILENAME IS ?", name); err != nil {
			return pruned, err
		}
		pruned = true
	}

	if pruned {
		if err := c.store.commit(); err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}

// report forwards a per-directory status to the progress sink, if any.
func (c *Catalog) report(dir, status string) {
	if c.progress != nil {
		c.progress(dir, status)
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
