// Package server wires ccrelay's leaf packages into one running process: a
// single HTTP listener multiplexing the dataplane proxy
// (pkg/proxy.Pipeline), the management API (pkg/proxy/handlers), and the
// WebSocket fan-out channel (pkg/wsfanout), all under the control of
// multi-process leader election (pkg/election) so only one instance ever
// binds the port while every instance keeps a consistent view of the
// active provider.
//
// # Routing
//
//	/ccrelay/api/metrics -> pkg/metrics Prometheus handler
//	/ccrelay/api/*       -> management API (spec.md §6)
//	/ccrelay/ws          -> WebSocket fan-out
//	everything else      -> dataplane proxy (spec.md §4.C, §4.K)
//
// Only the elected leader binds cfg.Host:cfg.Port; followers run the same
// process otherwise idle, keeping a WebSocket client connected to the
// leader so their local Router stays in sync.
//
// Server also owns two background loops for the lifetime of Run: a
// pkg/config.Watcher reloading the router on every config file change, and
// a periodic sampler copying queue depth into the metrics collector.
//
// # Middleware chain
//
// Outermost to innermost: Recovery, RequestID, Logging, CORS, mux.
// TimeoutMiddleware wraps only the management API and metrics mounts inside
// the mux, not the dataplane -- streamed chat completions can legitimately
// run long, and queue-wait/upstream timeouts are already enforced inside
// pkg/proxy and pkg/concurrency.
//
// # Graceful shutdown
//
// Run blocks until its context is cancelled, then follows spec.md §5:
// election stops first (releasing the IPC lock and, if this instance was
// leader, broadcasting server_stopping over the WebSocket hub before the
// HTTP listener closes), then the logger driver is flushed and closed,
// bounded by a watchdog.
package server
