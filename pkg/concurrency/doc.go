// Package concurrency implements the bounded work queues that sit between
// the request pipeline and the HTTP proxy executor: a counted Semaphore
// with a FIFO waiter queue, and a Manager that owns one default queue plus
// any number of route-matched queues, each with its own worker bound,
// queue-size bound, and queue-wait timeout.
package concurrency
