// Package types defines the OpenAI-compatible error envelope shared by the
// proxy's own error responses (pre-upstream failures: routing, queueing,
// timeouts, panics) so they look the same shape as whatever the selected
// provider would have returned.
package types
