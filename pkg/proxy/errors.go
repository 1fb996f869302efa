package proxy

import (
	"errors"
	"fmt"

	"mercator-hq/ccrelay/pkg/concurrency"
	"mercator-hq/ccrelay/pkg/proxy/types"
)

// RequestError represents a client-facing request validation failure that
// HandleError maps to a 400. The pipeline does not construct one: it
// writes its oversized-body response directly.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to an OpenAI-compatible error
// response.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}

// UpstreamTimeoutError marks a round trip that failed because the
// configured upstream deadline was exceeded, rather than a connection-level
// failure. executor.go distinguishes the two by checking the request
// context's error after doWithRetry returns.
type UpstreamTimeoutError struct {
	Err error
}

func (e *UpstreamTimeoutError) Error() string { return fmt.Sprintf("Proxy timeout: %v", e.Err) }
func (e *UpstreamTimeoutError) Unwrap() error { return e.Err }

// UpstreamConnectionError marks a round trip that exhausted doWithRetry's
// retries against a connection-level failure (refused, reset, DNS).
type UpstreamConnectionError struct {
	Err error
}

func (e *UpstreamConnectionError) Error() string { return e.Err.Error() }
func (e *UpstreamConnectionError) Unwrap() error { return e.Err }

// HandleError maps pipeline and queue errors to the OpenAI-compatible
// error envelope written back to the client.
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var queueFull *concurrency.QueueFullError
	if errors.As(err, &queueFull) {
		return types.NewQueueUnavailableError("Request queue is full, try again shortly")
	}

	var queueTimeout *concurrency.QueueTimeoutError
	if errors.As(err, &queueTimeout) {
		return types.NewQueueUnavailableError("Request timed out waiting in queue")
	}

	if errors.Is(err, concurrency.ErrClientDisconnected) {
		return types.NewServiceUnavailableError("Client disconnected")
	}
	if errors.Is(err, concurrency.ErrClosed) {
		return types.NewServiceUnavailableError("Server is shutting down")
	}

	var upstreamTimeout *UpstreamTimeoutError
	if errors.As(err, &upstreamTimeout) {
		return types.NewGatewayTimeoutError("Proxy timeout")
	}

	var upstreamConn *UpstreamConnectionError
	if errors.As(err, &upstreamConn) {
		return types.NewBadGatewayError(fmt.Sprintf("Proxy error: %s", upstreamConn.Err.Error()))
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
