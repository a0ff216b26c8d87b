package catalog

import "errors"

// Error classes for catalog operations. Callers branch on these with
// errors.Is; the wrapped message carries the specifics.
var (
	// ErrConfiguration reports an unusable catalog: the store path is
	// not a regular file, the existing library lacks the trailing
	// filename column, the schema descriptor is empty, or a marker
	// file decoded to an empty entry.
	ErrConfiguration = errors.New("configuration error")

	// ErrSchemaConflict reports an attempt to create a library whose
	// columns differ from the existing ones without forcing migration.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrStorage reports a query the underlying store rejected.
	ErrStorage = errors.New("storage operation failed")

	// ErrFilesystem reports a missing or invalid directory, or an I/O
	// failure while hashing or walking one.
	ErrFilesystem = errors.New("filesystem error")
)
