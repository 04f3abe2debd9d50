package journal

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"sync/atomic"
)

// queueSize is how many writes may wait behind the one in progress.
const queueSize = 256

// ErrBacklog is returned by Record when the write queue is full. The
// activity is dropped.
var ErrBacklog = errors.New("journal write queue full")

type txFn func(ctx context.Context, tx *sql.Tx) error

// job is one queued transaction. A nil ch means nobody waits for the
// result and failures are only logged.
type job struct {
	fn txFn
	ch chan error
}

// worker runs every transaction on one goroutine, in the order they were
// queued. Transactions use the worker's context, not the caller's: once a
// job is dequeued it runs to completion even if its caller stopped waiting.
type worker struct {
	db   *sql.DB
	ctx  context.Context
	stop context.CancelFunc

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func newWorker(db *sql.DB, size int) *worker {
	ctx, stop := context.WithCancel(context.Background())
	w := &worker{
		db:   db,
		ctx:  ctx,
		stop: stop,
		jobs: make(chan job, size),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// close runs the queued jobs and stops the worker.
func (w *worker) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
	w.stop()
}

// enqueue queues fn without waiting for it. A full queue drops fn.
func (w *worker) enqueue(fn txFn) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.jobs <- job{fn: fn}:
		return nil
	default:
		n := w.dropped.Add(1)
		log.Printf("journal: queue full, dropped write (%d dropped)", n)
		return ErrBacklog
	}
}

// do queues fn behind every earlier job and waits for its result. If ctx
// expires first do returns ctx.Err(); a job already queued still runs and
// its result is discarded.
func (w *worker) do(ctx context.Context, fn txFn) error {
	ch := make(chan error, 1)
	if err := w.send(ctx, job{fn: fn, ch: ch}); err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) send(ctx context.Context, j job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) loop() {
	defer close(w.done)
	for j := range w.jobs {
		err := w.run(j.fn)
		if j.ch != nil {
			j.ch <- err
			continue
		}
		if err != nil {
			w.failed.Add(1)
			log.Printf("journal: write failed: %v", err)
		}
	}
}

func (w *worker) run(fn txFn) error {
	tx, err := w.db.BeginTx(w.ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(w.ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
