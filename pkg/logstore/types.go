package logstore

import "time"

// Status is the lifecycle state of a RequestLog row.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusTimeout   Status = "timeout"
)

// RouteType classifies how a request reached the dataplane for logging
// purposes.
type RouteType string

const (
	RouteBlock       RouteType = "block"
	RoutePassthrough RouteType = "passthrough"
	RouteRouter      RouteType = "router"
)

// RequestLog is the stored shape of one proxied request, from pending
// insert through terminal update. Large text fields may carry a "B64:"
// prefix (see EncodeForStorage/DecodeFromStorage) to avoid quoting/encoding
// surprises.
type RequestLog struct {
	ID                  string
	Timestamp           time.Time
	ProviderID          string
	ProviderName        string
	Method              string
	Path                string
	TargetURL           string
	RequestBody         string
	ResponseBody        string
	OriginalRequestBody string
	OriginalResponseBody string
	StatusCode          int
	Duration            time.Duration
	Success             bool
	ErrorMessage        string
	ClientID            string
	Status              Status
	RouteType           RouteType
	Model               string
}

// Filter is the conjunctive filter set accepted by QueryLogs.
type Filter struct {
	ProviderID  string
	Method      string
	PathPattern string
	MinDuration time.Duration
	MaxDuration time.Duration
	HasError    *bool
	StartTime   *time.Time
	EndTime     *time.Time
	Limit       int
	Offset      int
}

// QueryResult is the paginated response to QueryLogs. Logs in this list
// omit RequestBody/ResponseBody; Model is derived separately.
type QueryResult struct {
	Logs  []*RequestLog
	Total int
}

// Stats summarizes the logger's current table, independent of any single
// queue's Stats (pkg/concurrency.Stats covers worker-pool state).
type Stats struct {
	TotalLogs      int64
	SuccessCount   int64
	ErrorCount     int64
	AvgDuration    time.Duration
	OldestLog      time.Time
	NewestLog      time.Time
	DatabaseSizeBytes int64
}
