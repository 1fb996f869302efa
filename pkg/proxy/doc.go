// Package proxy implements the dataplane request pipeline: routing a
// proxied request through the current provider, translating its body when
// the provider speaks OpenAI's wire format, submitting it to a bounded
// worker queue, and forwarding it upstream.
//
// The pipeline (Pipeline.ServeHTTP) implements the router/body-processing/
// queueing steps; the executor (executeUpstream) implements the HTTP
// round trip itself, including SSE passthrough and retry-on-connect-error
// behaviour.
package proxy
