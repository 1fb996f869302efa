package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Options configures a sqlStore, shared by both concrete drivers.
type Options struct {
	// Path is the database file path.
	Path string

	// BusyTimeout bounds how long a writer waits for a lock.
	BusyTimeout time.Duration

	// RetentionDays bounds how long rows are kept by CleanOldLogs.
	RetentionDays int

	// RetentionSchedule is a cron expression triggering CleanOldLogs in
	// the background, in addition to the required at-initialization run
	// (spec.md §9's Open Question, resolved in favor of a schedule).
	RetentionSchedule string

	// MaxFileSizeBytes triggers a trim-to-newest-1000 pass once the
	// database file exceeds this size.
	MaxFileSizeBytes int64
}

func (o *Options) withDefaults() *Options {
	out := *o
	if out.BusyTimeout == 0 {
		out.BusyTimeout = 5 * time.Second
	}
	if out.RetentionDays == 0 {
		out.RetentionDays = 30
	}
	if out.MaxFileSizeBytes == 0 {
		out.MaxFileSizeBytes = 50 * 1024 * 1024
	}
	return &out
}

// sqlStore is the database/sql-backed implementation shared by
// SQLiteDriver and RelationalDriver; they differ only in the driver name
// passed to sql.Open and a label used in logging.
type sqlStore struct {
	db     *sql.DB
	opts   *Options
	label  string
	logger *slog.Logger

	writer *writeQueue
	cron   *cron.Cron
}

func openStore(driverName, label string, opts *Options) (*sqlStore, error) {
	opts = opts.withDefaults()
	logger := slog.Default().With("component", "logstore."+label)

	if dir := filepath.Dir(opts.Path); dir != "." && dir != "" && opts.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("logstore: create database directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("logstore: open %s: %w", label, err)
	}
	db.SetMaxOpenConns(1) // single-writer: serialises access to the backing store
	db.SetMaxIdleConns(1)

	s := &sqlStore{db: db, opts: opts, label: label, logger: logger}
	return s, nil
}

func (s *sqlStore) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("logstore: enable WAL: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d;", s.opts.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("logstore: set busy_timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("logstore: create schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("logstore: record schema version: %w", err)
	}

	s.writer = newWriteQueue(s.db, s.logger)
	s.writer.start()

	// Run once at initialization per spec.md §4.G, then on the cron
	// schedule if configured.
	go func() {
		if _, err := s.CleanOldLogs(context.Background()); err != nil {
			s.logger.Warn("initial log retention sweep failed", "error", err)
		}
	}()

	if s.opts.RetentionSchedule != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.opts.RetentionSchedule, func() {
			if _, err := s.CleanOldLogs(context.Background()); err != nil {
				s.logger.Warn("scheduled log retention sweep failed", "error", err)
			}
		}); err != nil {
			s.logger.Warn("invalid retention schedule, periodic cleanup disabled", "schedule", s.opts.RetentionSchedule, "error", err)
		} else {
			s.cron.Start()
		}
	}

	s.logger.Info("logstore initialized", "path", s.opts.Path, "driver", s.label)
	return nil
}

func (s *sqlStore) Enabled() bool { return true }

func (s *sqlStore) Close() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.writer != nil {
		s.writer.close()
	}
	return s.db.Close()
}

func (s *sqlStore) ForceFlush(ctx context.Context) error {
	if s.writer == nil {
		return nil
	}
	return s.writer.flush(ctx)
}

func (s *sqlStore) InsertLog(log *RequestLog) {
	if s.writer == nil {
		return
	}
	s.writer.enqueueInsert(log)
}

const insertLogSQL = `
INSERT INTO request_logs (
	id, timestamp, provider_id, provider_name, method, path, target_url,
	request_body, response_body, original_request_body, original_response_body,
	status_code, duration_ms, success, error_message, client_id, status, route_type, model
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(client_id) DO UPDATE SET
	provider_id=excluded.provider_id, provider_name=excluded.provider_name,
	status_code=excluded.status_code, duration_ms=excluded.duration_ms,
	success=excluded.success, error_message=excluded.error_message,
	response_body=excluded.response_body, original_response_body=excluded.original_response_body,
	status=excluded.status, route_type=excluded.route_type, model=excluded.model
`

func bindLog(stmt execer, ctx context.Context, log *RequestLog) error {
	_, err := stmt.ExecContext(ctx, insertLogSQL,
		log.ID, log.Timestamp, log.ProviderID, log.ProviderName, log.Method, log.Path, log.TargetURL,
		EncodeForStorage(log.RequestBody), EncodeForStorage(log.ResponseBody),
		EncodeForStorage(log.OriginalRequestBody), EncodeForStorage(log.OriginalResponseBody),
		log.StatusCode, log.Duration.Milliseconds(), log.Success, log.ErrorMessage,
		log.ClientID, string(log.Status), string(log.RouteType), log.Model,
	)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *sqlStore) InsertLogPending(ctx context.Context, log *RequestLog) error {
	return bindLog(s.db, ctx, log)
}

func (s *sqlStore) WriteBatch(ctx context.Context, logs []*RequestLog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, log := range logs {
		if err := bindLog(tx, ctx, log); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqlStore) UpdateLogCompleted(clientID string, statusCode int, responseBody string, durationMs int64, success bool, errorMessage, originalResponseBody string) {
	s.writer.enqueueExec(func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE request_logs SET status_code=?, response_body=?, duration_ms=?, success=?,
				error_message=?, original_response_body=?, status=? WHERE client_id=?`,
			statusCode, EncodeForStorage(responseBody), durationMs, success, errorMessage,
			EncodeForStorage(originalResponseBody), string(StatusCompleted), clientID)
		return err
	})
}

func (s *sqlStore) UpdateLogStatus(clientID string, status Status, statusCode int, durationMs int64, errorMessage string) {
	s.writer.enqueueExec(func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE request_logs SET status=?, status_code=?, duration_ms=?, error_message=? WHERE client_id=?`,
			string(status), statusCode, durationMs, errorMessage, clientID)
		return err
	})
}

func (s *sqlStore) QueryLogs(ctx context.Context, filter Filter) (*QueryResult, error) {
	where, args := buildWhere(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	listSQL := "SELECT id, timestamp, provider_id, provider_name, method, path, target_url, " +
		"request_body, status_code, duration_ms, success, error_message, client_id, status, route_type, model " +
		"FROM request_logs"
	countSQL := "SELECT COUNT(*) FROM request_logs"
	if where != "" {
		listSQL += " WHERE " + where
		countSQL += " WHERE " + where
	}
	listSQL += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d OFFSET %d", limit, filter.Offset)

	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("logstore: count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("logstore: query: %w", err)
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		log := &RequestLog{}
		var requestBody string
		if err := rows.Scan(&log.ID, &log.Timestamp, &log.ProviderID, &log.ProviderName, &log.Method,
			&log.Path, &log.TargetURL, &requestBody, &log.StatusCode, &log.Duration, &log.Success,
			&log.ErrorMessage, &log.ClientID, &log.Status, &log.RouteType, &log.Model); err != nil {
			return nil, fmt.Errorf("logstore: scan: %w", err)
		}
		log.Duration = log.Duration * time.Millisecond
		log.Model = deriveModel(log.Model, DecodeFromStorage(requestBody), log.Path)
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryResult{Logs: logs, Total: total}, nil
}

// deriveModel implements spec.md §4.G's list-view model derivation:
// $.model || $.data.model from the request body, or the path segment
// after "/models/".
func deriveModel(stored, requestBody, path string) string {
	if stored != "" {
		return stored
	}
	if m := modelFromBody(requestBody); m != "" {
		return m
	}
	if idx := strings.Index(path, "/models/"); idx >= 0 {
		rest := path[idx+len("/models/"):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		return rest
	}
	return ""
}

func (s *sqlStore) GetLogByID(ctx context.Context, id string) (*RequestLog, error) {
	log := &RequestLog{}
	var requestBody, responseBody, origReq, origResp string
	err := s.db.QueryRowContext(ctx, `SELECT id, timestamp, provider_id, provider_name, method, path, target_url,
			request_body, response_body, original_request_body, original_response_body,
			status_code, duration_ms, success, error_message, client_id, status, route_type, model
		FROM request_logs WHERE id=?`, id).Scan(
		&log.ID, &log.Timestamp, &log.ProviderID, &log.ProviderName, &log.Method, &log.Path, &log.TargetURL,
		&requestBody, &responseBody, &origReq, &origResp,
		&log.StatusCode, &log.Duration, &log.Success, &log.ErrorMessage, &log.ClientID, &log.Status, &log.RouteType, &log.Model)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logstore: get by id: %w", err)
	}
	log.Duration = log.Duration * time.Millisecond
	log.RequestBody = DecodeFromStorage(requestBody)
	log.ResponseBody = DecodeFromStorage(responseBody)
	log.OriginalRequestBody = DecodeFromStorage(origReq)
	log.OriginalResponseBody = DecodeFromStorage(origResp)
	return log, nil
}

func (s *sqlStore) DeleteLogs(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM request_logs WHERE id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *sqlStore) ClearAllLogs(ctx context.Context) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM request_logs").Scan(&total); err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM request_logs"); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *sqlStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var avgMs sql.NullFloat64
	var oldest, newest sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
			SUM(CASE WHEN success THEN 1 ELSE 0 END),
			SUM(CASE WHEN success THEN 0 ELSE 1 END),
			AVG(duration_ms), MIN(timestamp), MAX(timestamp)
		FROM request_logs`).Scan(&stats.TotalLogs, &stats.SuccessCount, &stats.ErrorCount, &avgMs, &oldest, &newest)
	if err != nil {
		return nil, err
	}
	if avgMs.Valid {
		stats.AvgDuration = time.Duration(avgMs.Float64) * time.Millisecond
	}
	if oldest.Valid {
		stats.OldestLog = oldest.Time
	}
	if newest.Valid {
		stats.NewestLog = newest.Time
	}
	if fi, err := os.Stat(s.opts.Path); err == nil {
		stats.DatabaseSizeBytes = fi.Size()
	}
	return stats, nil
}

func (s *sqlStore) CleanOldLogs(ctx context.Context) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -s.opts.RetentionDays)
	res, err := s.db.ExecContext(ctx, "DELETE FROM request_logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	removed := int(n)

	if fi, err := os.Stat(s.opts.Path); s.label == "sqlite" && err == nil && fi.Size() > s.opts.MaxFileSizeBytes {
		trimRes, err := s.db.ExecContext(ctx, `
			DELETE FROM request_logs WHERE id NOT IN (
				SELECT id FROM request_logs ORDER BY timestamp DESC LIMIT 1000
			)`)
		if err != nil {
			return removed, err
		}
		trimmed, _ := trimRes.RowsAffected()
		removed += int(trimmed)
		s.logger.Info("trimmed log store past size threshold", "bytes", fi.Size(), "trimmed", trimmed)
	}
	return removed, nil
}

func buildWhere(f Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.ProviderID != "" {
		conds = append(conds, "provider_id = ?")
		args = append(args, f.ProviderID)
	}
	if f.Method != "" {
		conds = append(conds, "method = ?")
		args = append(args, f.Method)
	}
	if f.PathPattern != "" {
		conds = append(conds, "path LIKE ?")
		args = append(args, "%"+f.PathPattern+"%")
	}
	if f.MinDuration > 0 {
		conds = append(conds, "duration_ms >= ?")
		args = append(args, f.MinDuration.Milliseconds())
	}
	if f.MaxDuration > 0 {
		conds = append(conds, "duration_ms <= ?")
		args = append(args, f.MaxDuration.Milliseconds())
	}
	if f.HasError != nil {
		if *f.HasError {
			conds = append(conds, "error_message IS NOT NULL AND error_message != ''")
		} else {
			conds = append(conds, "(error_message IS NULL OR error_message = '')")
		}
	}
	if f.StartTime != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, *f.StartTime)
	}
	if f.EndTime != nil {
		conds = append(conds, "timestamp <= ?")
		args = append(args, *f.EndTime)
	}

	return strings.Join(conds, " AND "), args
}

// modelFromBody extracts $.model or $.data.model from a JSON request body,
// returning "" on any parse failure or absence.
func modelFromBody(body string) string {
	if body == "" {
		return ""
	}
	var doc struct {
		Model string `json:"model"`
		Data  struct {
			Model string `json:"model"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ""
	}
	if doc.Model != "" {
		return doc.Model
	}
	return doc.Data.Model
}
