package ipc

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// probeTimeout bounds how long EnsureServer waits to decide a socket file
// is stale (no server answering) versus live.
const probeTimeout = 500 * time.Millisecond

// EnsureServer implements spec.md §4.H's first-to-bind rule. It tries to
// become the lock server; if the socket is already held by a live process
// it returns a Client instead. If the socket file exists but nothing
// answers, it is treated as stale: removed, and the bind is retried, this
// process becoming the server.
func EnsureServer(path string, logger *slog.Logger) (server *Server, client *Client, err error) {
	s := NewServer(path, logger)
	if err := s.Listen(); err == nil {
		return s, nil, nil
	}

	if Probe(path, probeTimeout) {
		return nil, NewClient(path), nil
	}

	if logger != nil {
		logger.Warn("removing stale lock socket", "path", path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("ipc: remove stale socket: %w", err)
	}

	s = NewServer(path, logger)
	if err := s.Listen(); err != nil {
		return nil, nil, fmt.Errorf("ipc: bind after stale socket removal: %w", err)
	}
	return s, nil, nil
}
