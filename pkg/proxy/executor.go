package proxy

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"mercator-hq/ccrelay/pkg/concurrency"
	"mercator-hq/ccrelay/pkg/convert"
	"mercator-hq/ccrelay/pkg/proxy/types"
)

// excludedResponseHeaders are never copied from the upstream response; the
// proxy's own transport decides framing and connection handling.
var excludedResponseHeaders = map[string]bool{
	"content-encoding":  true,
	"content-length":    true,
	"transfer-encoding": true,
	"connection":        true,
	"keep-alive":        true,
}

// upstreamRequest carries everything executeUpstream needs to perform one
// (possibly retried) round trip to the target provider.
type upstreamRequest struct {
	method           string
	targetURL        string
	header           http.Header
	body             []byte
	isOpenAIProvider bool
	writer           http.ResponseWriter
	timeout          time.Duration
	client           *http.Client
}

// executeUpstream implements spec.md §4.L. It is the Executor passed to
// the concurrency manager.
func executeUpstream(ctx context.Context, task *concurrency.Task, u *upstreamRequest) (*result, error) {
	if task.Cancelled() {
		body, _ := json.Marshal(types.NewServiceUnavailableError("Client disconnected"))
		return &result{StatusCode: 499, Body: body, ErrorMessage: "Client disconnected"}, nil
	}

	timeout := u.timeout
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := doWithRetry(reqCtx, u)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, &UpstreamTimeoutError{Err: err}
		}
		return nil, &UpstreamConnectionError{Err: err}
	}
	defer resp.Body.Close()

	header := filterResponseHeader(resp.Header)
	contentType := resp.Header.Get("Content-Type")

	switch {
	case u.isOpenAIProvider && resp.StatusCode == http.StatusOK && strings.HasPrefix(contentType, "application/json"):
		return translateJSONResponse(resp, header)

	case strings.HasPrefix(contentType, "text/event-stream") && u.writer != nil:
		return streamSSE(ctx, resp, header, u.writer)

	default:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("proxy: read upstream response: %w", err)
		}
		raw = maybeGunzip(raw)
		success := resp.StatusCode >= 200 && resp.StatusCode < 300
		return &result{StatusCode: resp.StatusCode, Header: header, Body: raw, Success: success}, nil
	}
}

// doWithRetry performs the outbound request, retrying up to once more on a
// connection-level error (refused, reset, DNS failure, or a dial timeout),
// waiting attempt*1s between attempts. The request body is re-read from
// u.body on every attempt since http.Request consumes its body reader.
func doWithRetry(ctx context.Context, u *upstreamRequest) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, u.method, u.targetURL, bytes.NewReader(u.body))
		if err != nil {
			return nil, fmt.Errorf("proxy: build upstream request: %w", err)
		}
		req.Header = u.header.Clone()
		// Keep the capture buffer in plain text regardless of what the
		// client asked for.
		req.Header.Set("Accept-Encoding", "identity")

		resp, err := u.client.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < 2 && isRetryableConnError(err) {
			if werr := pace(ctx, time.Duration(attempt)*time.Second); werr != nil {
				return nil, werr
			}
			continue
		}
		break
	}
	return nil, lastErr
}

// pace waits out d before the next retry attempt, using a single-token
// rate.Limiter as the delay primitive instead of a bare timer so the wait
// honors ctx cancellation (client disconnect, queue-wait timeout) the same
// way the rest of the request lifecycle does.
func pace(ctx context.Context, d time.Duration) error {
	limiter := rate.NewLimiter(rate.Every(d), 1)
	limiter.Allow() // drain the initial burst token so Wait actually waits
	return limiter.Wait(ctx)
}

// isRetryableConnError reports whether err is a transient connection
// failure worth one retry: refused, reset, unresolved host, or timed out
// dialing (the Go equivalents of ECONNREFUSED/ECONNRESET/ENOTFOUND/
// ETIMEDOUT).
func isRetryableConnError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// translateJSONResponse buffers an OpenAI-shaped 200 response and converts
// it to Anthropic's wire format. On translation failure it responds 502
// with Anthropic's error shape, per spec.md §4.L.
func translateJSONResponse(resp *http.Response, header http.Header) (*result, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("proxy: read upstream response: %w", err)
	}
	raw = maybeGunzip(raw)

	converted, cerr := convert.ConvertResponse(raw)
	if cerr != nil {
		body, _ := json.Marshal(convert.NewAnthropicError("failed to translate provider response"))
		return &result{
			StatusCode:           http.StatusBadGateway,
			Header:               header,
			Body:                 body,
			Success:              false,
			ErrorMessage:         cerr.Error(),
			OriginalResponseBody: string(raw),
		}, nil
	}

	return &result{
		StatusCode:           resp.StatusCode,
		Header:               header,
		Body:                 converted,
		Success:              true,
		OriginalResponseBody: string(raw),
	}, nil
}

// streamSSE writes headers immediately and pipes the upstream body to w
// chunk by chunk, flushing after each write, stopping early if ctx is
// cancelled (the client disconnected).
func streamSSE(ctx context.Context, resp *http.Response, header http.Header, w http.ResponseWriter) (*result, error) {
	for k, vs := range header {
		w.Header()[k] = vs
	}
	w.WriteHeader(resp.StatusCode)
	flusher, _ := w.(http.Flusher)

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return &result{StatusCode: resp.StatusCode, Streamed: true, ErrorMessage: "client disconnected"}, nil
		default:
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return &result{StatusCode: resp.StatusCode, Streamed: true, ErrorMessage: werr.Error()}, nil
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err == io.EOF {
				success := resp.StatusCode >= 200 && resp.StatusCode < 300
				return &result{StatusCode: resp.StatusCode, Streamed: true, Success: success}, nil
			}
			return &result{StatusCode: resp.StatusCode, Streamed: true, ErrorMessage: err.Error()}, nil
		}
	}
}

// maybeGunzip decompresses body when it begins with the gzip magic bytes,
// which an upstream can still send despite the forced identity
// accept-encoding. On decompression failure it returns body unchanged.
func maybeGunzip(body []byte) []byte {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body
	}
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return out
}

func filterResponseHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if excludedResponseHeaders[strings.ToLower(k)] {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
