package logstore

import (
	"context"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriver is the embedded single-file store option (spec.md §4.G),
// backed by github.com/mattn/go-sqlite3, grounded on
// pkg/evidence/storage/sqlite.go's WAL-mode/busy-timeout/schema-version
// initialization sequence.
type SQLiteDriver struct {
	*sqlStore
}

// NewSQLiteDriver opens (and creates if absent) the embedded store at
// opts.Path.
func NewSQLiteDriver(ctx context.Context, opts *Options) (*SQLiteDriver, error) {
	s, err := openStore("sqlite3", "sqlite", opts)
	if err != nil {
		return nil, err
	}
	if err := s.initialize(ctx); err != nil {
		s.db.Close()
		return nil, err
	}
	return &SQLiteDriver{sqlStore: s}, nil
}

// Initialize is a no-op: NewSQLiteDriver already initializes the schema.
// It satisfies the Driver interface for callers that construct drivers
// generically.
func (d *SQLiteDriver) Initialize(ctx context.Context) error { return nil }
