package election

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mercator-hq/ccrelay/pkg/config"
	"mercator-hq/ccrelay/pkg/ipc"
)

// maxConsecutiveBindFailures implements spec.md §4.I's bounded-failure
// rule: after this many failed attempts to start the HTTP server as
// leader, the election gives up on leadership for good.
const maxConsecutiveBindFailures = 3

// electionAttemptTimeout caps a single electing attempt.
const electionAttemptTimeout = 10 * time.Second

// probeTimeout bounds a single status-endpoint HTTP probe.
const probeTimeout = 2 * time.Second

// Hooks are the caller-supplied callbacks Election uses to actually bind
// and release the HTTP listener. StartListening must return once the
// listener is bound and serving (or an error if the bind failed, e.g. the
// port is held by an uncooperative process). StopListening must close the
// listener and wait for in-flight connections to finish or ctx to expire.
type Hooks struct {
	StartListening func() error
	StopListening  func(ctx context.Context) error
}

// Election runs spec.md §4.I's state machine for one process.
type Election struct {
	instanceID string
	host       string
	port       int
	socketPath string
	statusURL  func(host string, port int) string

	hooks  Hooks
	client *http.Client
	logger *slog.Logger

	mu         sync.RWMutex
	state      State
	leaderInfo *ipc.LockInfo

	onStateChange func(State)

	ipcServer *ipc.Server
}

// Option configures an Election at construction time.
type Option func(*Election)

// WithOnStateChange registers a callback invoked synchronously on every
// state transition, from the goroutine running Run.
func WithOnStateChange(fn func(State)) Option {
	return func(e *Election) { e.onStateChange = fn }
}

// New builds an Election for this process. socketPath is the lock
// socket's filesystem path; host/port are what this process would listen
// on if it becomes leader.
func New(instanceID, socketPath, host string, port int, hooks Hooks, logger *slog.Logger, opts ...Option) *Election {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Election{
		instanceID: instanceID,
		host:       host,
		port:       port,
		socketPath: socketPath,
		statusURL: func(host string, port int) string {
			return fmt.Sprintf("http://%s:%d/ccrelay/api/status", host, port)
		},
		hooks:  hooks,
		client: &http.Client{Timeout: probeTimeout},
		logger: logger.With("component", "election"),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current state.
func (e *Election) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Leader returns the last known leader lock info, or nil.
func (e *Election) Leader() *ipc.LockInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.leaderInfo
}

func (e *Election) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	if e.onStateChange != nil {
		e.onStateChange(s)
	}
}

func (e *Election) setLeader(l *ipc.LockInfo) {
	e.mu.Lock()
	e.leaderInfo = l
	e.mu.Unlock()
}

// Run drives the state machine until ctx is cancelled. It blocks.
func (e *Election) Run(ctx context.Context) {
	srv, _, err := ipc.EnsureServer(e.socketPath, e.logger)
	if err != nil {
		e.logger.Error("cannot reach lock socket, staying in waiting state", "error", err)
		e.setState(StateWaiting)
		<-ctx.Done()
		return
	}
	e.ipcServer = srv
	cli := ipc.NewClient(e.socketPath)

	consecutiveBindFailures := 0
	probeBo := newProbeBackoff()

	for {
		if ctx.Err() != nil {
			e.cleanup()
			return
		}

		switch e.State() {
		case StateIdle, StateElecting:
			won, leader := e.attemptElection(ctx, cli, &consecutiveBindFailures)
			if won {
				e.runLeader(ctx, cli)
				// runLeader returns on ctx cancellation (the loop then
				// exits) or after a rejected heartbeat, which leaves the
				// state at follower.
				continue
			}
			if leader != nil {
				e.setLeader(leader)
				e.setState(StateFollower)
			} else {
				e.setState(StateWaiting)
			}

		case StateFollower, StateWaiting:
			if consecutiveBindFailures >= maxConsecutiveBindFailures {
				// Permanent follower/waiter: keep watching the lock but
				// never attempt to bind again.
				e.followOrWait(ctx, cli, probeBo, false)
				continue
			}
			e.followOrWait(ctx, cli, probeBo, true)
		}
	}
}

func (e *Election) cleanup() {
	if e.ipcServer != nil {
		e.ipcServer.Close()
	}
}

// attemptElection runs one electing attempt, capped at
// electionAttemptTimeout. It returns (true, nil) if this instance becomes
// leader, or (false, leaderInfo) naming who holds the lock (nil if
// unknown/absent).
func (e *Election) attemptElection(ctx context.Context, cli *ipc.Client, consecutiveBindFailures *int) (bool, *ipc.LockInfo) {
	e.setState(StateElecting)

	attemptCtx, cancel := context.WithTimeout(ctx, electionAttemptTimeout)
	defer cancel()

	now := time.Now()
	candidate := &ipc.LockInfo{
		InstanceID:    e.instanceID,
		PID:           pid(),
		Port:          e.port,
		Host:          e.host,
		StartTime:     now,
		LastHeartbeat: now,
	}

	holder, err := cli.Acquire(attemptCtx, candidate)
	if err != nil {
		e.logger.Warn("acquire failed", "error", err)
		return false, nil
	}

	if holder == nil || holder.InstanceID != e.instanceID {
		return false, holder
	}

	// We are the designated holder; try to actually bind the HTTP port.
	e.setState(StateLeader)
	if err := e.hooks.StartListening(); err != nil {
		*consecutiveBindFailures++
		e.logger.Warn("failed to start listening as leader", "error", err, "attempt", *consecutiveBindFailures)
		_ = cli.Release(attemptCtx, e.instanceID)
		if *consecutiveBindFailures >= maxConsecutiveBindFailures {
			e.logger.Error("repeated port conflict, giving up on leadership for this instance")
		}
		return false, nil
	}

	*consecutiveBindFailures = 0
	return true, nil
}

// runLeader keeps the heartbeat flowing every config.HeartbeatInterval
// until ctx is cancelled or a heartbeat is rejected (meaning another
// instance displaced us, which should not happen under correct use but is
// handled defensively).
func (e *Election) runLeader(ctx context.Context, cli *ipc.Client) {
	e.setState(StateLeaderActive)
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		_ = cli.Release(releaseCtx, e.instanceID)
		if e.hooks.StopListening != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			_ = e.hooks.StopListening(stopCtx)
		}
	}()

	ticker := time.NewTicker(config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hbCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := cli.Heartbeat(hbCtx, e.instanceID, time.Now())
			cancel()
			if err != nil {
				e.logger.Warn("heartbeat rejected, stepping down", "error", err)
				e.setState(StateFollower)
				return
			}
		}
	}
}

// followOrWait probes the known (or last-known) leader on probeBo's
// schedule. allowReElection controls whether a disappeared leader sends
// this instance back to electing (false keeps it a permanent
// follower/waiter after a bind-failure lockout).
func (e *Election) followOrWait(ctx context.Context, cli *ipc.Client, probeBo *probeBackoff, allowReElection bool) {
	leader := e.Leader()

	if leader == nil {
		queryCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		l, _ := cli.Query(queryCtx)
		cancel()
		leader = l
		e.setLeader(leader)
	}

	wait := probeBo.next()
	select {
	case <-ctx.Done():
		return
	case <-time.After(wait):
	}

	if leader == nil {
		if allowReElection {
			e.setState(StateElecting)
		}
		return
	}

	ok, fresh := e.probeLeader(ctx, leader)
	if ok && fresh {
		probeBo.reset()
		return
	}
	if ok && !fresh {
		// Port still answers but the lock's heartbeat looks stale: wait
		// 1s and retry once before treating it as an unknown-good leader.
		time.Sleep(1 * time.Second)
		ok2, fresh2 := e.probeLeader(ctx, leader)
		if ok2 {
			if fresh2 {
				probeBo.reset()
			}
			return
		}
	}

	// Probe failed outright. Confirm the lock is really gone before
	// re-electing -- a transient network blip shouldn't trigger a storm of
	// acquire attempts.
	queryCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	current, _ := cli.Query(queryCtx)
	cancel()
	e.setLeader(current)

	if current == nil && allowReElection {
		e.setState(StateElecting)
	}
}

// probeLeader GETs the leader's status endpoint. ok reports whether the
// endpoint answered 200; fresh reports whether its lock heartbeat is still
// within config.HeartbeatTimeout.
func (e *Election) probeLeader(ctx context.Context, leader *ipc.LockInfo) (ok bool, fresh bool) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, e.statusURL(leader.Host, leader.Port), nil)
	if err != nil {
		return false, false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()

	ok = resp.StatusCode == http.StatusOK
	fresh = time.Since(leader.LastHeartbeat) <= config.HeartbeatTimeout
	return ok, fresh
}
