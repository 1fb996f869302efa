package ipc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireHeartbeatRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccrelay-lock.sock")
	srv, cli, err := EnsureServer(path, nil)
	if err != nil {
		t.Fatalf("ensure server: %v", err)
	}
	if srv == nil {
		t.Fatal("expected to become the server in an empty temp dir")
	}
	defer srv.Close()

	client := NewClient(path)
	ctx := context.Background()

	info := &LockInfo{InstanceID: "a", PID: 1, Port: 8787, Host: "127.0.0.1", StartTime: time.Now(), LastHeartbeat: time.Now()}
	got, err := client.Acquire(ctx, info)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got.InstanceID != "a" {
		t.Fatalf("expected instance a to hold the lock, got %+v", got)
	}

	// A second instance should not win while "a"'s heartbeat is fresh.
	other := &LockInfo{InstanceID: "b", PID: 2, Port: 8788, Host: "127.0.0.1", StartTime: time.Now(), LastHeartbeat: time.Now()}
	got, err = client.Acquire(ctx, other)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got.InstanceID != "a" {
		t.Fatalf("expected a to remain holder, got %+v", got)
	}

	if err := client.Heartbeat(ctx, "a", time.Now()); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if err := client.Heartbeat(ctx, "b", time.Now()); err == nil {
		t.Fatal("expected heartbeat from non-holder to fail")
	}

	if err := client.Release(ctx, "a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	lock, err := client.Query(ctx)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if lock != nil {
		t.Fatalf("expected no holder after release, got %+v", lock)
	}

	_ = cli // unused on the server path; exercised by TestSecondProcessBecomesClient
}

func TestSecondProcessBecomesClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccrelay-lock.sock")
	srv, cli, err := EnsureServer(path, nil)
	if err != nil {
		t.Fatalf("ensure server: %v", err)
	}
	if srv == nil || cli != nil {
		t.Fatalf("expected first caller to become the server")
	}
	defer srv.Close()

	srv2, cli2, err := EnsureServer(path, nil)
	if err != nil {
		t.Fatalf("ensure server (second): %v", err)
	}
	if srv2 != nil || cli2 == nil {
		t.Fatalf("expected second caller to become a client")
	}

	lock, err := cli2.Query(context.Background())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if lock != nil {
		t.Fatalf("expected no holder yet, got %+v", lock)
	}
}

func TestStaleSocketRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccrelay-lock.sock")
	srv, _, err := EnsureServer(path, nil)
	if err != nil {
		t.Fatalf("ensure server: %v", err)
	}
	// Simulate a crash: close the listener without removing the socket file.
	srv.listener.(*net.UnixListener).SetUnlinkOnClose(false)
	srv.listener.Close()

	srv2, cli2, err := EnsureServer(path, nil)
	if err != nil {
		t.Fatalf("ensure server after crash: %v", err)
	}
	if srv2 == nil || cli2 != nil {
		t.Fatalf("expected this process to recover the stale socket and become server")
	}
	srv2.Close()
}
