package logstore

import (
	"context"
	"fmt"

	"mercator-hq/ccrelay/pkg/config"
)

// Open builds the configured Driver from cfg.Logging. When logging is
// disabled it returns a NoopDriver without touching the filesystem.
func Open(ctx context.Context, cfg config.LoggingConfig) (Driver, error) {
	if !cfg.Enabled {
		return NoopDriver{}, nil
	}

	opts := &Options{
		Path:              cfg.Database,
		RetentionDays:     cfg.RetentionDays,
		RetentionSchedule: cfg.RetentionSchedule,
		MaxFileSizeBytes:  cfg.MaxFileSizeBytes,
	}

	switch cfg.Driver {
	case "", "embedded":
		return NewSQLiteDriver(ctx, opts)
	case "relational":
		return NewRelationalDriver(ctx, opts)
	default:
		return nil, fmt.Errorf("logstore: unknown driver %q", cfg.Driver)
	}
}
