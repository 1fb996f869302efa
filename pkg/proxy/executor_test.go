package proxy

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"mercator-hq/ccrelay/pkg/concurrency"
)

// closedPortURL returns a URL pointing at a TCP port nothing is listening
// on, guaranteeing ECONNREFUSED.
func closedPortURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return "http://" + addr
}

func TestDoWithRetryRetriesOnConnectionRefused(t *testing.T) {
	task, release := concurrency.NewTask(context.Background(), "t1")
	defer release()

	start := time.Now()
	_, err := executeUpstream(task.Context(), task, &upstreamRequest{
		method:    http.MethodGet,
		targetURL: closedPortURL(t),
		header:    http.Header{},
		client:    &http.Client{},
		timeout:   5 * time.Second,
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected an error dialing a closed port")
	}
	// One retry after 1s should have happened before giving up.
	if elapsed < 1*time.Second {
		t.Fatalf("expected at least one 1s retry backoff, took %s", elapsed)
	}
}

func TestFilterResponseHeaderExcludesHopByHop(t *testing.T) {
	h := http.Header{
		"Content-Type":      {"application/json"},
		"Content-Encoding":  {"gzip"},
		"Content-Length":    {"10"},
		"Transfer-Encoding": {"chunked"},
		"Connection":        {"keep-alive"},
		"X-Custom":          {"value"},
	}
	out := filterResponseHeader(h)
	if out.Get("Content-Encoding") != "" || out.Get("Content-Length") != "" || out.Get("Transfer-Encoding") != "" || out.Get("Connection") != "" {
		t.Fatalf("expected hop-by-hop headers stripped, got: %v", out)
	}
	if out.Get("Content-Type") != "application/json" || out.Get("X-Custom") != "value" {
		t.Fatalf("expected other headers preserved, got: %v", out)
	}
}
