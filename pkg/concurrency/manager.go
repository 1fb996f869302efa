package concurrency

import (
	"time"

	"mercator-hq/ccrelay/pkg/match"
)

// RouteQueueSpec describes one additional queue matched against the
// request path before the default queue is considered.
type RouteQueueSpec struct {
	Name           string
	Pattern        string
	MaxWorkers     int
	MaxQueueSize   int
	RequestTimeout time.Duration
}

// DefaultQueueSpec configures the fallback queue used when no route queue
// matches. A nil spec (via NewManager with enabled=false) disables bounded
// concurrency: Manager.Submit then runs exec directly.
type DefaultQueueSpec struct {
	Enabled        bool
	MaxWorkers     int
	MaxQueueSize   int
	RequestTimeout time.Duration
}

type routeQueue[T any] struct {
	matcher *match.Regex
	queue   *Queue[T]
}

// Manager owns the default queue plus any route queues and selects between
// them per submission, matching RouteQueueConfig patterns in order before
// falling back to the default queue.
type Manager[T any] struct {
	enabled      bool
	defaultQueue *Queue[T]
	routeQueues  []*routeQueue[T]
}

// NewManager builds a Manager from the default queue spec and an ordered
// list of route queue specs.
func NewManager[T any](def DefaultQueueSpec, routes []RouteQueueSpec) *Manager[T] {
	m := &Manager[T]{enabled: def.Enabled}
	if def.Enabled {
		m.defaultQueue = NewQueue[T]("default", def.MaxWorkers, def.MaxQueueSize, def.RequestTimeout)
	}
	for _, r := range routes {
		m.routeQueues = append(m.routeQueues, &routeQueue[T]{
			matcher: match.CompileRegex(r.Pattern),
			queue:   NewQueue[T](r.Name, r.MaxWorkers, r.MaxQueueSize, r.RequestTimeout),
		})
	}
	return m
}

// queueFor returns the queue that should handle path, walking route queues
// in configuration order before the default queue. It returns nil when
// bounded concurrency is disabled and no route queue matches either.
func (m *Manager[T]) queueFor(path string) *Queue[T] {
	for _, rq := range m.routeQueues {
		if rq.matcher.Match(path) {
			return rq.queue
		}
	}
	if m.enabled {
		return m.defaultQueue
	}
	return nil
}

// Submit routes task to the queue matching path and runs exec through it.
// When no queue applies (bounded concurrency disabled and no route queue
// matched), exec runs directly with no queueing.
func (m *Manager[T]) Submit(path string, task *Task, exec Executor[T]) (T, error) {
	q := m.queueFor(path)
	if q == nil {
		task.MarkStarted()
		return exec(task.Context(), task)
	}
	return q.Submit(task, exec)
}

// CancelTask cancels a task by id across every queue the manager owns; it
// is a no-op for an id none of them recognize.
func (m *Manager[T]) CancelTask(id, reason string) {
	if m.defaultQueue != nil {
		m.defaultQueue.CancelTask(id, reason)
	}
	for _, rq := range m.routeQueues {
		rq.queue.CancelTask(id, reason)
	}
}

// ClearQueue cancels every waiting task across every queue and returns the
// total removed.
func (m *Manager[T]) ClearQueue() int {
	total := 0
	if m.defaultQueue != nil {
		total += m.defaultQueue.ClearQueue()
	}
	for _, rq := range m.routeQueues {
		total += rq.queue.ClearQueue()
	}
	return total
}

// GetStats aggregates stats across the default queue and all route queues.
// Per-queue detail is available via GetQueueStats.
func (m *Manager[T]) GetStats() Stats {
	var agg Stats
	queues := m.allQueues()
	var waitTotal, processTotal time.Duration
	var waitN, processN int
	for _, q := range queues {
		s := q.GetStats()
		agg.QueueLength += s.QueueLength
		agg.ActiveWorkers += s.ActiveWorkers
		agg.MaxWorkers += s.MaxWorkers
		agg.TotalProcessed += s.TotalProcessed
		agg.TotalFailed += s.TotalFailed
		if s.AvgWaitTime > 0 {
			waitTotal += s.AvgWaitTime
			waitN++
		}
		if s.AvgProcessTime > 0 {
			processTotal += s.AvgProcessTime
			processN++
		}
	}
	if waitN > 0 {
		agg.AvgWaitTime = waitTotal / time.Duration(waitN)
	}
	if processN > 0 {
		agg.AvgProcessTime = processTotal / time.Duration(processN)
	}
	return agg
}

// GetQueueStats reports stats keyed by queue name; the default queue, when
// enabled, is under "default".
func (m *Manager[T]) GetQueueStats() map[string]Stats {
	out := make(map[string]Stats)
	if m.defaultQueue != nil {
		out["default"] = m.defaultQueue.GetStats()
	}
	for _, rq := range m.routeQueues {
		out[rq.queue.Name] = rq.queue.GetStats()
	}
	return out
}

// Close closes every queue the manager owns.
func (m *Manager[T]) Close() {
	if m.defaultQueue != nil {
		m.defaultQueue.Close()
	}
	for _, rq := range m.routeQueues {
		rq.queue.Close()
	}
}

func (m *Manager[T]) allQueues() []*Queue[T] {
	var qs []*Queue[T]
	if m.defaultQueue != nil {
		qs = append(qs, m.defaultQueue)
	}
	for _, rq := range m.routeQueues {
		qs = append(qs, rq.queue)
	}
	return qs
}
