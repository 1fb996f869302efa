package logstore

// SchemaVersion is bumped whenever Schema changes shape.
const SchemaVersion = 1

// Schema creates the request_logs table and its indexes. It is applied
// identically by both the mattn/go-sqlite3 and modernc.org/sqlite
// backends, since both speak the same SQL dialect.
const Schema = `
CREATE TABLE IF NOT EXISTS request_logs (
	id                     TEXT PRIMARY KEY,
	timestamp              DATETIME NOT NULL,
	provider_id            TEXT,
	provider_name          TEXT,
	method                 TEXT,
	path                   TEXT,
	target_url             TEXT,
	request_body           TEXT,
	response_body          TEXT,
	original_request_body  TEXT,
	original_response_body TEXT,
	status_code            INTEGER,
	duration_ms            INTEGER,
	success                INTEGER,
	error_message          TEXT,
	client_id              TEXT UNIQUE NOT NULL,
	status                 TEXT NOT NULL,
	route_type             TEXT,
	model                  TEXT
);
CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_request_logs_client_id ON request_logs(client_id);
CREATE INDEX IF NOT EXISTS idx_request_logs_provider ON request_logs(provider_id);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the current schema version, matching the
// teacher's evidence store pattern of a queryable version row.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion returns the highest recorded schema version.
const GetSchemaVersion = `SELECT COALESCE(MAX(version), 0) FROM schema_version`
