package ipc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mercator-hq/ccrelay/pkg/config"
)

// Server is the lock server living at the well-known socket path. The
// first process to successfully bind becomes the server; every other
// process in the deployment talks to it as a Client.
type Server struct {
	path     string
	logger   *slog.Logger
	listener net.Listener

	mu      sync.Mutex
	current *LockInfo
}

// NewServer constructs a Server bound to path. Call Listen to start
// accepting connections.
func NewServer(path string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{path: path, logger: logger.With("component", "ipc.server")}
}

// Listen binds the Unix domain socket at s.path with 0o600 permissions and
// starts the accept loop in the background. It fails if another process
// already holds the socket.
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ipc: create socket directory: %w", err)
	}

	l, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		l.Close()
		return fmt.Errorf("ipc: chmod socket: %w", err)
	}

	s.listener = l
	go s.acceptLoop()
	s.logger.Info("lock server listening", "path", s.path)
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			return
		}
		if err := enc.Encode(s.handle(msg)); err != nil {
			return
		}
	}
}

func (s *Server) handle(msg Message) Message {
	switch msg.Type {
	case MsgQuery:
		s.mu.Lock()
		defer s.mu.Unlock()
		return Message{Type: MsgResponse, Lock: s.current}

	case MsgAcquire:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current == nil || time.Since(s.current.LastHeartbeat) > config.HeartbeatTimeout {
			s.current = msg.Lock
		}
		return Message{Type: MsgResponse, Lock: s.current}

	case MsgHeartbeat:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current == nil || s.current.InstanceID != msg.InstanceID {
			return Message{Type: MsgError, Error: "not the current leader"}
		}
		s.current.LastHeartbeat = msg.LastHeartbeat
		return Message{Type: MsgResponse, Lock: s.current}

	case MsgRelease:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.current != nil && s.current.InstanceID == msg.InstanceID {
			s.current = nil
		}
		return Message{Type: MsgResponse}

	default:
		return Message{Type: MsgError, Error: "unknown message type"}
	}
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	if s.listener != nil {
		s.listener.Close()
	}
	return os.Remove(s.path)
}
