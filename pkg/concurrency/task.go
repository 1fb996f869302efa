package concurrency

import (
	"context"
	"sync"
	"time"
)

// Task is the unit of work submitted to a Queue. It owns its own
// cancellation: a client disconnect, an explicit CancelTask call, and a
// queue-wait timeout all resolve to the same context being done, so a
// running executor observes cancellation the same way regardless of its
// cause.
type Task struct {
	ID        string
	CreatedAt time.Time
	Priority  int
	Attempt   int

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	startedAt    time.Time
	cancelReason string
}

// NewTask creates a task derived from parent. Cancelling parent cancels the
// task; the returned release func must eventually be called to free
// resources associated with the task's internal context.
func NewTask(parent context.Context, id string) (*Task, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	t := &Task{
		ID:        id,
		CreatedAt: time.Now(),
		Attempt:   1,
		ctx:       ctx,
		cancel:    cancel,
	}
	return t, cancel
}

// Context returns the task's cancellation context. An executor should
// treat ctx.Done() as "abort the upstream call".
func (t *Task) Context() context.Context {
	return t.ctx
}

// Cancel marks the task cancelled with reason, idempotently. The first
// reason recorded wins.
func (t *Task) Cancel(reason string) {
	t.mu.Lock()
	if t.cancelReason == "" {
		t.cancelReason = reason
	}
	t.mu.Unlock()
	t.cancel()
}

// Cancelled reports whether the task has been cancelled for any reason
// (client disconnect, explicit CancelTask, or queue-wait timeout).
func (t *Task) Cancelled() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// CancelReason returns the reason passed to the first Cancel call, or the
// empty string if the task was never cancelled.
func (t *Task) CancelReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelReason
}

// MarkStarted records the moment the task acquired its permit and began
// executing. It is idempotent.
func (t *Task) MarkStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startedAt.IsZero() {
		t.startedAt = time.Now()
	}
}

// StartedAt returns the time the task began executing, or the zero Time if
// it has not started yet.
func (t *Task) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}

// WaitDuration returns how long the task waited in queue before starting.
// It returns 0 if the task has not started.
func (t *Task) WaitDuration() time.Duration {
	started := t.StartedAt()
	if started.IsZero() {
		return 0
	}
	return started.Sub(t.CreatedAt)
}
