// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// This package implements middleware functions that handle common functionality
// across all HTTP requests including request ID generation, logging,
// panic recovery, and timeout enforcement. CORS is handled separately by
// pkg/server, which applies spec.md §6's fixed header policy directly
// rather than through a configurable middleware (see that package's
// corsMiddleware).
//
// # Middleware Chain
//
// Middleware functions are chained in a specific order for optimal functionality:
//
//	handler = Recovery(RequestID(Logging(Timeout(handler))))
//
// Order (innermost to outermost):
//  1. Timeout: Enforce per-request timeout
//  2. Logging: Log request/response details
//  3. RequestID: Generate and propagate request ID
//  4. Recovery: Recover from panics
//
// RequestID sits outside Logging so the logged request_id is populated.
//
// # Middleware Types
//
// Request tracking:
//   - RequestIDMiddleware: Generate unique request ID, add to context and response headers
//   - LoggingMiddleware: Log request/response with method, path, status, latency
//
// Security and resilience:
//   - RecoveryMiddleware: Recover from panics, return 500 error
//   - TimeoutMiddleware: Enforce the per-request timeout passed to it
//
// # Request ID
//
// RequestIDMiddleware generates a unique ID for each request from 16
// crypto/rand bytes, hex-encoded:
//
//	X-Request-ID: 550e8400e29b41d4a716446655440000
//
// The request ID is:
//   - Added to context for handler access
//   - Included in response headers
//   - Logged by LoggingMiddleware when it runs inside RequestIDMiddleware
//   - Not added to provider requests; a client-supplied X-Request-ID is
//     forwarded with the other inbound headers
//
// # Logging
//
// LoggingMiddleware uses structured logging (log/slog) to record request details:
//
//	{
//	  "time": "2025-11-16T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/chat/completions",
//	  "status": 200,
//	  "latency_ms": 1250,
//	  "request_id": "550e8400e29b41d4a716446655440000",
//	  "user_agent": "openai-python/1.0.0"
//	}
//
// # Recovery
//
// RecoveryMiddleware catches panics in handlers and converts them to HTTP 500 errors:
//
//	{
//	  "error": {
//	    "message": "An internal error occurred. Please try again later.",
//	    "type": "server_error",
//	    "code": "internal_error"
//	  }
//	}
//
// The panic stack trace is logged but not exposed to clients for security.
//
// # Timeout
//
// TimeoutMiddleware enforces per-request timeout using context.WithTimeout:
//
//	ctx, cancel := context.WithTimeout(r.Context(), timeout)
//	defer cancel()
//
// If the timeout is exceeded:
//   - Request context is cancelled
//   - Handler receives context.DeadlineExceeded
//   - Client receives 504 Gateway Timeout
//
// # Context Values
//
// Middleware stores values in context for handler access:
//
//	type contextKey string
//
//	const (
//	    RequestIDKey contextKey = "request_id"
//	    StartTimeKey contextKey = "start_time"
//	)
//
// Handlers can retrieve values:
//
//	requestID := r.Context().Value(middleware.RequestIDKey).(string)
//
// # Performance
//
// Middleware overhead is minimal:
//
//   - <1ms total middleware execution time
//   - Request ID generation: <10µs (16 bytes from crypto/rand)
//   - Logging: <100µs (structured JSON)
//   - Recovery: No overhead when no panic occurs
//   - Timeout: <10µs (context creation)
//
// # Thread Safety
//
// All middleware functions are thread-safe and can be called concurrently
// from multiple goroutines.
package middleware
