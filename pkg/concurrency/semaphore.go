package concurrency

import (
	"container/list"
	"context"
	"sync"
)

// Semaphore is a counted permit with a FIFO waiter queue. Unlike a plain
// buffered-channel semaphore, waiter order is explicit: the first goroutine
// to call Acquire is the first woken when a permit frees up.
type Semaphore struct {
	mu      sync.Mutex
	limit   int
	held    int
	waiters *list.List // of *waiter
}

type waiter struct {
	grant chan struct{}
}

// NewSemaphore creates a semaphore with limit concurrent permits. limit
// must be >= 1.
func NewSemaphore(limit int) *Semaphore {
	if limit < 1 {
		limit = 1
	}
	return &Semaphore{limit: limit, waiters: list.New()}
}

// TryAcquire grants a permit immediately without queuing, reporting whether
// one was available.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held < s.limit {
		s.held++
		return true
	}
	return false
}

// Acquire blocks until a permit is granted or ctx is done (callers use a
// ctx deadline for queue-wait timeouts and ctx cancellation for caller
// cancellation). It returns nil on success, or ctx.Err() when the wait was
// abandoned.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.held < s.limit {
		s.held++
		s.mu.Unlock()
		return nil
	}

	w := &waiter{grant: make(chan struct{})}
	elem := s.waiters.PushBack(w)
	s.mu.Unlock()

	select {
	case <-w.grant:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		// If the waiter was already granted a permit in the race
		// between ctx firing and Release, honor the grant to avoid
		// leaking a permit; otherwise remove ourselves from the
		// queue before returning.
		select {
		case <-w.grant:
			s.mu.Unlock()
			return nil
		default:
		}
		s.waiters.Remove(elem)
		s.mu.Unlock()
		return ctx.Err()
	}
}

// Release returns a permit, granting it directly to the longest-waiting
// queued caller if one exists.
func (s *Semaphore) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	front := s.waiters.Front()
	if front == nil {
		if s.held > 0 {
			s.held--
		}
		return
	}
	s.waiters.Remove(front)
	w := front.Value.(*waiter)
	close(w.grant)
	// held stays the same: the permit is handed directly to the waiter.
}

// Len reports the number of goroutines currently queued waiting for a
// permit.
func (s *Semaphore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

// InUse reports the number of permits currently held.
func (s *Semaphore) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held
}

// Limit reports the configured permit count.
func (s *Semaphore) Limit() int {
	return s.limit
}
