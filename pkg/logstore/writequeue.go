package logstore

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ccrelay/pkg/config"
)

// writeOp is either a batched insert or an immediate single-row exec
// (an update), both funneled through the same single-writer goroutine so
// the SQLite connection is never touched concurrently.
type writeOp struct {
	log  *RequestLog        // non-nil for an insert
	exec func(context.Context) error // non-nil for an update
}

// writeQueue batches InsertLog calls up to config.WriteQueueBatchSize
// entries or config.WriteQueueFlushInterval, flushing on Close or
// ForceFlush, per spec.md §4.G. It is the "dedicated writer thread" that
// keeps the dataplane from ever blocking on disk I/O.
type writeQueue struct {
	db     *sql.DB
	logger *slog.Logger

	ops      chan writeOp
	flushReq chan chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

func newWriteQueue(db *sql.DB, logger *slog.Logger) *writeQueue {
	return &writeQueue{
		db:       db,
		logger:   logger,
		ops:      make(chan writeOp, 1024),
		flushReq: make(chan chan struct{}),
		done:     make(chan struct{}),
	}
}

func (q *writeQueue) start() {
	q.wg.Add(1)
	go q.run()
}

func (q *writeQueue) run() {
	defer q.wg.Done()

	ticker := time.NewTicker(time.Duration(config.WriteQueueFlushInterval * float64(time.Second)))
	defer ticker.Stop()

	var batch []*RequestLog

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := q.writeBatch(ctx, batch); err != nil {
			q.logger.Warn("batched log write failed", "error", err, "count", len(batch))
		}
		cancel()
		batch = nil
	}

	drain := func() {
		for len(q.ops) > 0 {
			if op := <-q.ops; op.log != nil {
				batch = append(batch, op.log)
			} else if op.exec != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := op.exec(ctx); err != nil {
					q.logger.Warn("log update failed", "error", err)
				}
				cancel()
			}
		}
	}

	for {
		select {
		case op := <-q.ops:
			if op.log != nil {
				batch = append(batch, op.log)
				if len(batch) >= config.WriteQueueBatchSize {
					flush()
				}
			} else if op.exec != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				if err := op.exec(ctx); err != nil {
					q.logger.Warn("log update failed", "error", err)
				}
				cancel()
			}
		case <-ticker.C:
			flush()
		case reply := <-q.flushReq:
			drain()
			flush()
			close(reply)
		case <-q.done:
			drain()
			flush()
			return
		}
	}
}

func (q *writeQueue) writeBatch(ctx context.Context, batch []*RequestLog) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, log := range batch {
		if err := bindLog(tx, ctx, log); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (q *writeQueue) enqueueInsert(log *RequestLog) {
	select {
	case q.ops <- writeOp{log: log}:
	case <-q.done:
	}
}

func (q *writeQueue) enqueueExec(exec func(context.Context) error) {
	select {
	case q.ops <- writeOp{exec: exec}:
	case <-q.done:
	}
}

func (q *writeQueue) flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case q.flushReq <- reply:
	case <-q.done:
		return nil
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *writeQueue) close() {
	close(q.done)
	q.wg.Wait()
}
