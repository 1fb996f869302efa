package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ccrelay/pkg/config"
	"mercator-hq/ccrelay/pkg/election"
	"mercator-hq/ccrelay/pkg/logstore"
	"mercator-hq/ccrelay/pkg/metrics"
	"mercator-hq/ccrelay/pkg/proxy"
	"mercator-hq/ccrelay/pkg/proxy/handlers"
	"mercator-hq/ccrelay/pkg/proxy/middleware"
	"mercator-hq/ccrelay/pkg/router"
	"mercator-hq/ccrelay/pkg/wsfanout"
)

// wsPath is where the fan-out Hub is mounted, reserved per spec.md §6
// ("attached to the same host:port, path reserved for the fan-out
// channel").
const wsPath = "/ccrelay/ws"

// shutdownWatchdog bounds the entire graceful-shutdown sequence from
// spec.md §5.
const shutdownWatchdog = 5 * time.Second

// apiTimeout bounds management API requests. It is never applied to the
// dataplane mount, where a streamed chat completion can legitimately run
// for the whole upstream timeout.
const apiTimeout = 30 * time.Second

// queueSampleInterval is how often queue depth is copied into the metrics
// collector's gauges.
const queueSampleInterval = 5 * time.Second

// Server is one ccrelay process: a single HTTP listener shared by the
// dataplane proxy, the management API, and the WebSocket fan-out, bound
// only while this instance holds leadership.
type Server struct {
	cfgPath string

	router     *router.Router
	pipeline   *proxy.Pipeline
	logstore   logstore.Driver
	hub        *wsfanout.Hub
	election   *election.Election
	fanout     *fanoutSupervisor
	metrics    *metrics.Collector
	cfgWatcher *config.Watcher

	httpServer *http.Server
	log        *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New builds a Server from the configuration file at cfgPath. version and
// buildDate are surfaced verbatim by GET /ccrelay/api/version.
func New(cfgPath, version, buildDate string, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "server")

	if err := config.Initialize(cfgPath); err != nil {
		return nil, fmt.Errorf("server: load configuration: %w", err)
	}
	cfg := config.GetConfig()

	priorProviderID, err := config.LoadState()
	if err != nil {
		log.Warn("failed to load persisted provider state, using configured default", "error", err)
	}

	r := router.New(cfg, priorProviderID, config.SaveState)

	store, err := logstore.Open(context.Background(), cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("server: open log store: %w", err)
	}

	pipeline := proxy.NewFromConfig(r, cfg.Concurrency, cfg.RouteQueues, store, log)
	hub := wsfanout.NewHub(r, log)

	collector := metrics.New()
	pipeline.SetMetrics(collector)

	homeDir, err := config.HomeDir()
	if err != nil {
		return nil, fmt.Errorf("server: resolve state directory: %w", err)
	}
	socketPath := filepath.Join(homeDir, "ccrelay-lock.sock")

	s := &Server{
		cfgPath:  cfgPath,
		router:   r,
		pipeline: pipeline,
		logstore: store,
		hub:      hub,
		fanout:   newFanoutSupervisor(r, log),
		metrics:  collector,
		log:      log,
	}

	watcher, err := config.NewWatcher(cfgPath, func(newCfg *config.Config) {
		s.router.Reload(newCfg)
	}, log)
	if err != nil {
		log.Warn("config hot-reload disabled", "error", err)
	} else {
		s.cfgWatcher = watcher
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: s.buildHandler(cfg, version, buildDate),
	}

	hooks := election.Hooks{
		StartListening: s.startListening,
		StopListening:  s.stopListening,
	}
	s.election = election.New(
		uuid.NewString(), socketPath, cfg.Host, cfg.Port, hooks, log,
		election.WithOnStateChange(s.onElectionStateChange),
	)

	return s, nil
}

// buildHandler assembles the full route table and middleware chain.
func (s *Server) buildHandler(cfg *config.Config, version, buildDate string) http.Handler {
	apiHandler := handlers.NewMux(&handlers.Deps{
		Router:     s.router,
		Pipeline:   s.pipeline,
		Logger:     s.logstore,
		Switcher:   s.fanout,
		Election:   s.election,
		ConfigPath: s.cfgPath,
		Port:       cfg.Port,
		Version:    version,
		BuildDate:  buildDate,
	})

	mux := http.NewServeMux()
	mux.Handle("/ccrelay/api/", middleware.TimeoutMiddleware(apiTimeout)(apiHandler))
	mux.Handle("/ccrelay/api/metrics", middleware.TimeoutMiddleware(apiTimeout)(s.metrics.Handler()))
	mux.Handle(wsPath, s.hub)
	mux.Handle("/", s.pipeline)

	var handler http.Handler = mux
	handler = corsMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)
	return handler
}

// corsMiddleware applies spec.md §6's fixed CORS header set: the literal
// value "*" on every response and a 200 with an empty body for OPTIONS.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// startListening is the election.Hooks callback invoked once this
// instance wins leadership. It binds the listener synchronously so a bind
// failure (port held by an uncooperative process) is reported to the
// election's bounded-failure accounting, then serves in the background.
func (s *Server) startListening() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server exited unexpectedly", "error", err)
		}
	}()

	s.log.Info("listening", "address", s.httpServer.Addr)
	return nil
}

// stopListening is the election.Hooks callback invoked when this instance
// steps down or shuts down. It broadcasts server_stopping to every
// connected WebSocket client before closing the HTTP server, per
// spec.md §5's shutdown order.
func (s *Server) stopListening(ctx context.Context) error {
	s.hub.Stop()
	return s.httpServer.Shutdown(ctx)
}

// onElectionStateChange keeps the local fan-out connection pointed at
// whoever is currently reachable: this instance's own loopback endpoint
// while leading, the known leader while following, and nothing otherwise.
func (s *Server) onElectionStateChange(st election.State) {
	s.metrics.SetRole(string(st))

	switch st {
	case election.StateLeaderActive:
		s.fanout.point(fmt.Sprintf("ws://%s%s", s.httpServer.Addr, wsPath))
	case election.StateFollower:
		if leader := s.election.Leader(); leader != nil {
			s.fanout.point(fmt.Sprintf("ws://%s:%d%s", leader.Host, leader.Port, wsPath))
		} else {
			s.fanout.stop()
		}
	default:
		s.fanout.stop()
	}
}

// sampleQueueDepth copies the pipeline's per-queue waiting counts into the
// metrics gauges every queueSampleInterval, until ctx is cancelled.
func (s *Server) sampleQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(queueSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, stats := range s.pipeline.QueueStats() {
				s.metrics.SetQueueDepth(name, stats.QueueLength)
			}
		}
	}
}

// Run drives leader election until ctx is cancelled, then performs
// spec.md §5's graceful shutdown: election (and, if leading, the HTTP
// listener) stops first, followed by the fan-out client and the log
// store, all bounded by shutdownWatchdog.
func (s *Server) Run(ctx context.Context) error {
	if s.cfgWatcher != nil {
		go s.cfgWatcher.Run()
	}

	sampleCtx, stopSampling := context.WithCancel(ctx)
	go s.sampleQueueDepth(sampleCtx)

	electionDone := make(chan struct{})
	go func() {
		defer close(electionDone)
		s.election.Run(ctx)
	}()

	<-ctx.Done()
	s.log.Info("shutdown requested")
	stopSampling()
	if s.cfgWatcher != nil {
		s.cfgWatcher.Stop()
	}

	select {
	case <-electionDone:
	case <-time.After(shutdownWatchdog):
		s.log.Warn("election shutdown watchdog fired")
	}

	s.fanout.stop()

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownWatchdog)
	defer cancel()
	if err := s.logstore.ForceFlush(flushCtx); err != nil {
		s.log.Warn("flush log store failed", "error", err)
	}
	if err := s.logstore.Close(); err != nil {
		s.log.Warn("close log store failed", "error", err)
	}

	return nil
}

// fanoutSupervisor owns the one active wsfanout.Client this instance
// maintains at a time -- the loopback client while leading, or a client
// pointed at the current leader while following -- and is itself the
// handlers.Switcher every /switch request is submitted through.
type fanoutSupervisor struct {
	router *router.Router
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	url    string
	client *wsfanout.Client
}

func newFanoutSupervisor(r *router.Router, logger *slog.Logger) *fanoutSupervisor {
	return &fanoutSupervisor{router: r, logger: logger}
}

// point (re)connects to url, a no-op if already connected there.
func (f *fanoutSupervisor) point(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.url == url && f.client != nil {
		return
	}
	if f.cancel != nil {
		f.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := wsfanout.NewClient(url, f.router, f.logger)
	f.url, f.cancel, f.client = url, cancel, client
	go client.Run(ctx)
}

// stop disconnects, if connected.
func (f *fanoutSupervisor) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
	f.cancel, f.url, f.client = nil, "", nil
}

// SwitchProvider implements handlers.Switcher by delegating to whichever
// client is currently connected.
func (f *fanoutSupervisor) SwitchProvider(ctx context.Context, providerID string) error {
	f.mu.Lock()
	c := f.client
	f.mu.Unlock()

	if c == nil {
		return wsfanout.ErrNotConnected
	}
	return c.SwitchProvider(ctx, providerID)
}
