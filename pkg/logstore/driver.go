package logstore

import "context"

// Driver is the pluggable request/response logger backend (spec.md §4.G).
// InsertLog, UpdateLogCompleted and UpdateLogStatus are fire-and-forget from the
// dataplane's perspective: they hand off to the driver's write queue and
// return immediately. Every other method blocks until the backing store
// has answered.
type Driver interface {
	// Initialize opens the backing store and ensures its schema exists.
	Initialize(ctx context.Context) error

	// Close flushes the write queue and releases the backing store.
	Close() error

	// Enabled reports whether this driver actually writes anything. A
	// disabled driver (logging.enabled=false in configuration) is a
	// no-op sink so callers never need a nil check.
	Enabled() bool

	// InsertLog enqueues log for batched writing. Non-blocking.
	InsertLog(log *RequestLog)

	// InsertLogPending writes log immediately with Status=pending, ahead
	// of the write queue, so a crash mid-request still leaves a visible
	// row.
	InsertLogPending(ctx context.Context, log *RequestLog) error

	// UpdateLogCompleted transitions the row identified by clientID to a
	// terminal status, recording the proxy result. Non-blocking.
	UpdateLogCompleted(clientID string, statusCode int, responseBody string, duration int64, success bool, errorMessage, originalResponseBody string)

	// UpdateLogStatus transitions the row identified by clientID to
	// status without supplying a response body (used for cancellation
	// and timeout terminal states).
	UpdateLogStatus(clientID string, status Status, statusCode int, duration int64, errorMessage string)

	// WriteBatch writes logs immediately, bypassing the write queue.
	WriteBatch(ctx context.Context, logs []*RequestLog) error

	// QueryLogs returns the page of logs matching filter, newest first.
	// Request/response bodies are omitted from QueryResult.Logs.
	QueryLogs(ctx context.Context, filter Filter) (*QueryResult, error)

	// GetLogByID returns a single log, including its bodies.
	GetLogByID(ctx context.Context, id string) (*RequestLog, error)

	// DeleteLogs removes the logs named by ids and returns how many rows
	// were removed.
	DeleteLogs(ctx context.Context, ids []string) (int, error)

	// ClearAllLogs removes every row and returns how many were removed.
	ClearAllLogs(ctx context.Context) (int, error)

	// GetStats summarizes the current table.
	GetStats(ctx context.Context) (*Stats, error)

	// CleanOldLogs deletes entries older than the configured retention
	// window and, for an embedded store past its size threshold, trims
	// to the newest 1000 entries. Returns the number of rows removed.
	CleanOldLogs(ctx context.Context) (int, error)

	// ForceFlush blocks until every queued InsertLog/UpdateLogCompleted
	// call has been written.
	ForceFlush(ctx context.Context) error
}
