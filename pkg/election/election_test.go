package election

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestSingleInstanceBecomesLeaderActive(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ccrelay-lock.sock")

	mux := http.NewServeMux()
	mux.HandleFunc("/ccrelay/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	host, portStr := splitHostPort(t, srv.URL)
	port, _ := strconv.Atoi(portStr)

	hooks := Hooks{
		StartListening: func() error { return nil },
		StopListening:  func(ctx context.Context) error { return nil },
	}

	var states []State
	el := New("instance-a", socketPath, host, port, hooks, nil, WithOnStateChange(func(s State) {
		states = append(states, s)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go el.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for el.State() != StateLeaderActive && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if el.State() != StateLeaderActive {
		t.Fatalf("expected leader_active, got %s (history: %v)", el.State(), states)
	}
}

func TestSecondInstanceBecomesFollower(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "ccrelay-lock.sock")

	mux := http.NewServeMux()
	mux.HandleFunc("/ccrelay/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	host, portStr := splitHostPort(t, srv.URL)
	port, _ := strconv.Atoi(portStr)

	hooksA := Hooks{StartListening: func() error { return nil }, StopListening: func(ctx context.Context) error { return nil }}
	elA := New("instance-a", socketPath, host, port, hooksA, nil)
	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	go elA.Run(ctxA)

	deadline := time.Now().Add(2 * time.Second)
	for elA.State() != StateLeaderActive && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if elA.State() != StateLeaderActive {
		t.Fatalf("instance-a failed to become leader_active: %s", elA.State())
	}

	hooksB := Hooks{StartListening: func() error { return nil }, StopListening: func(ctx context.Context) error { return nil }}
	elB := New("instance-b", socketPath, host, port, hooksB, nil)
	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()
	go elB.Run(ctxB)

	deadline = time.Now().Add(2 * time.Second)
	for elB.State() != StateFollower && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if elB.State() != StateFollower {
		t.Fatalf("expected instance-b to become follower, got %s", elB.State())
	}
}

func splitHostPort(t *testing.T, url string) (string, string) {
	t.Helper()
	rest := strings.TrimPrefix(url, "http://")
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		t.Fatalf("unexpected test server URL: %s", url)
	}
	return parts[0], parts[1]
}
