// Package convert translates chat-completion request and non-streaming
// response bodies between the Anthropic Messages wire format and the
// OpenAI Chat Completions wire format. It operates on raw JSON bytes
// rather than provider SDK objects, since the dataplane proxies request
// and response bodies directly rather than constructing typed client
// calls.
//
// Streaming responses (content-type text/event-stream) are never passed
// through ConvertResponse; the caller pipes them unchanged.
package convert
