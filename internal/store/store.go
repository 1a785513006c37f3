// Package store is the authoritative board store. It wraps the database and
// handles etag management, timestamps, position bookkeeping and event logging
// for every mutation.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lherron/wrkboard/internal/db"
	"github.com/lherron/wrkboard/internal/domain"
	"github.com/lherron/wrkboard/internal/events"
)

const nowSQL = `strftime('%Y-%m-%dT%H:%M:%SZ','now')`

// Store is the root store that provides access to domain-specific stores.
type Store struct {
	db *db.DB

	Boards  *BoardStore
	Columns *ColumnStore
	Tasks   *TaskStore
	Members *MemberStore
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	s := &Store{db: database}
	s.Boards = &BoardStore{store: s}
	s.Columns = &ColumnStore{store: s}
	s.Tasks = &TaskStore{store: s}
	s.Members = &MemberStore{store: s}
	return s
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(fn func(tx *sql.Tx, ew *events.Writer) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ew := events.NewWriter(s.db.DB)
	if err := fn(tx, ew); err != nil {
		return err
	}

	return tx.Commit()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
}

// checkETag verifies etag matches if ifMatch > 0, returns ETagMismatchError on mismatch.
func checkETag(currentETag, ifMatch int64) error {
	if ifMatch > 0 && currentETag != ifMatch {
		return &domain.ETagMismatchError{Expected: ifMatch, Actual: currentETag}
	}
	return nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// notFound maps sql.ErrNoRows to a NotFoundError and wraps anything else.
func notFound(err error, resource, key string) error {
	if err == sql.ErrNoRows {
		return domain.NotFound(resource, key)
	}
	return fmt.Errorf("failed to get %s: %w", resource, err)
}
