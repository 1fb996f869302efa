// Package ipc implements the server lock described in spec.md §4.H: a
// first-to-bind domain-socket server that arbitrates which process in a
// multi-instance deployment holds the HTTP listener, with heartbeat-based
// staleness detection and stale-socket recovery for crashed holders.
package ipc
