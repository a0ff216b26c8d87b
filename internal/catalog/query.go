package catalog

import (
	"fmt"
	"strings"

	"github.com/datadex/datadex/internal/params"
)

// Query construction. This is the sole point where caller-supplied
// field names and values become part of a SQL statement. Values are
// always bound through placeholders so no value can alter the structure
// of a query; field names, which cannot be bound, are validated against
// the cached library columns before being rendered as quoted
// identifiers. Raw condition fragments passed to Search are the one
// trusted exception and are joined verbatim.

// quoteIdent renders a field name as a quoted SQL identifier, doubling
// any embedded quote characters. Predicate identifiers are rendered
// upper-case; stored column names are lower-case (schema creation
// normalizes them).
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(strings.ToUpper(name), `"`, `""`) + `"`
}

// hasColumn reports whether name matches a library column,
// case-insensitively.
func (c *Catalog) hasColumn(name string) bool {
	name = strings.ToLower(name)
	for _, col := range c.columns {
		if col == name {
			return true
		}
	}
	return false
}

// entryConditions builds the exact-match predicate for an entry: one
// `FIELD IS ?` condition per entry field, plus `FIELD IS NULL` for every
// library column the entry omits when enforceNull is set. The filename
// column is skipped on both sides when ignoreFilename is set. Conditions
// are joined with AND. An empty predicate returns an empty clause.
func (c *Catalog) entryConditions(entry *params.Map, ignoreFilename, enforceNull bool) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	for _, field := range entry.Keys() {
		if ignoreFilename && strings.EqualFold(field, "filename") {
			continue
		}
		if !c.hasColumn(field) {
			return "", nil, fmt.Errorf("catalog: %w: no column named %q in library", ErrStorage, field)
		}
		value, _ := entry.Get(field)
		clauses = append(clauses, quoteIdent(field)+" IS ?")
		args = append(args, value)
	}

	if enforceNull {
		for _, col := range c.columns {
			if col == "filename" && ignoreFilename {
				continue
			}
			if entryHasField(entry, col) {
				continue
			}
			clauses = append(clauses, quoteIdent(col)+" IS NULL")
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

// entryHasField reports whether the entry carries the field,
// case-insensitively, matching the catalog's column comparison.
func entryHasField(entry *params.Map, field string) bool {
	for _, key := range entry.Keys() {
		if strings.EqualFold(key, field) {
			return true
		}
	}
	return false
}

// selectFields normalizes an optional field list for a SELECT: nil or
// empty means all library columns. Every named field must be a library
// column.
func (c *Catalog) selectFields(fields []string) (string, error) {
	if len(fields) == 0 {
		quoted := make([]string, len(c.columns))
		for i, col := range c.columns {
			quoted[i] = quoteIdent(col)
		}
		return strings.Join(quoted, ", "), nil
	}

	quoted := make([]string, len(fields))
	for i, field := range fields {
		if !c.hasColumn(field) {
			return "", fmt.Errorf("catalog: %w: no column named %q in library", ErrStorage, field)
		}
		quoted[i] = quoteIdent(field)
	}
	return strings.Join(quoted, ", "), nil
}
