package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// store owns the connection lifecycle to the SQLite file backing the
// catalog. Connections follow a borrow-and-release discipline: an
// operation either reuses a connection left open by its caller or opens
// one transiently and closes it again when done. Mutations run inside a
// pending transaction that commit flushes; a borrow that leaves a
// transaction pending keeps its connection open, so the write is only
// discarded by an explicit close.
type store struct {
	path string
	db   *sql.DB
	tx   *sql.Tx
}

func newStore(path string) *store {
	return &store{path: path}
}

// connected reports whether a live connection is open.
func (s *store) connected() bool { return s.db != nil }

// connect opens the SQLite database at the store path.
func (s *store) connect() error {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("catalog: %w: failed to open store %s: %v", ErrStorage, s.path, err)
	}
	// Single synchronous writer; the catalog never runs concurrent
	// statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("catalog: %w: failed to connect to store %s: %v", ErrStorage, s.path, err)
	}
	s.db = db
	return nil
}

// borrow ensures a live connection and returns a release func. If this
// borrow established the connection, release closes it again — unless a
// transaction is still pending, in which case the session stays open so
// the write survives until the next commit or close. If the caller
// already held a connection open, release is a no-op so the outer
// borrow keeps control of the lifecycle.
func (s *store) borrow() (release func(), err error) {
	if s.connected() {
		return func() {}, nil
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return func() {
		if s.tx == nil {
			s.close()
		}
	}, nil
}

// exec runs a mutating statement inside the pending transaction,
// beginning one if none is open.
func (s *store) exec(ctx context.Context, query string, args ...interface{}) error {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("catalog: %w: failed to begin transaction: %v", ErrStorage, err)
		}
		s.tx = tx
	}
	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("catalog: %w: %v", ErrStorage, err)
	}
	return nil
}

// query runs a read statement, through the pending transaction when one
// is open so reads observe uncommitted writes.
func (s *store) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	var rows *sql.Rows
	var err error
	if s.tx != nil {
		rows, err = s.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: %w: %v", ErrStorage, err)
	}
	return rows, nil
}

// commit flushes the pending transaction. It is a no-op when no
// connection or no transaction is open.
func (s *store) commit() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("catalog: %w: failed to commit: %v", ErrStorage, err)
	}
	return nil
}

// close releases the connection. A pending transaction is rolled back:
// un-committed writes do not survive a close.
func (s *store) close() error {
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("catalog: %w: failed to close store: %v", ErrStorage, err)
	}
	return nil
}
