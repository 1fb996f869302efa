package logstore

import "context"

// NoopDriver is selected when logging.enabled=false. Every write is
// discarded and every read returns empty results, so callers never need
// to branch on whether logging is turned on.
type NoopDriver struct{}

func (NoopDriver) Initialize(context.Context) error { return nil }
func (NoopDriver) Close() error                      { return nil }
func (NoopDriver) Enabled() bool                     { return false }
func (NoopDriver) InsertLog(*RequestLog)              {}
func (NoopDriver) InsertLogPending(context.Context, *RequestLog) error { return nil }
func (NoopDriver) UpdateLogCompleted(string, int, string, int64, bool, string, string) {}
func (NoopDriver) UpdateLogStatus(string, Status, int, int64, string)                  {}
func (NoopDriver) WriteBatch(context.Context, []*RequestLog) error                     { return nil }
func (NoopDriver) QueryLogs(context.Context, Filter) (*QueryResult, error) {
	return &QueryResult{}, nil
}
func (NoopDriver) GetLogByID(context.Context, string) (*RequestLog, error)     { return nil, nil }
func (NoopDriver) DeleteLogs(context.Context, []string) (int, error)          { return 0, nil }
func (NoopDriver) ClearAllLogs(context.Context) (int, error)                  { return 0, nil }
func (NoopDriver) GetStats(context.Context) (*Stats, error)                   { return &Stats{}, nil }
func (NoopDriver) CleanOldLogs(context.Context) (int, error)                  { return 0, nil }
func (NoopDriver) ForceFlush(context.Context) error                           { return nil }
