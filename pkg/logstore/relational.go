package logstore

import (
	"context"

	_ "modernc.org/sqlite"
)

// RelationalDriver is the "relational store" option (spec.md §4.G),
// backed by modernc.org/sqlite -- a cgo-free SQLite driver, grounded on
// the alternate storage engine carried in the pack's
// pkg/limits/storage/sqlite.go. It is schema- and behaviour-identical to
// SQLiteDriver; choosing it lets the process run without cgo at the cost
// of the mattn driver's C-library performance.
type RelationalDriver struct {
	*sqlStore
}

// NewRelationalDriver opens (and creates if absent) the relational store
// at opts.Path.
func NewRelationalDriver(ctx context.Context, opts *Options) (*RelationalDriver, error) {
	s, err := openStore("sqlite", "relational", opts)
	if err != nil {
		return nil, err
	}
	if err := s.initialize(ctx); err != nil {
		s.db.Close()
		return nil, err
	}
	return &RelationalDriver{sqlStore: s}, nil
}

// Initialize is a no-op: NewRelationalDriver already initializes the
// schema.
func (d *RelationalDriver) Initialize(ctx context.Context) error { return nil }
