package db

import (
	"context"
	"database/sql"
)

// TxFn runs inside a transaction owned by the Worker.  Returning an error
// rolls the transaction back.
type TxFn func(ctx context.Context, tx *sql.Tx) error

type job struct {
	ctx context.Context
	fn  TxFn
	ch  chan error
}

// Worker serializes all database mutations through a single goroutine, one
// transaction per job.  Scan events, rule approvals and tag
// auto-registrations from concurrent handlers all funnel through here, so
// there is never more than one writer and duplicate-insert races cannot
// interleave mid-transaction.
type Worker struct {
	conn *sql.DB
	jobs chan job
	done chan struct{}
}

func NewWorker(conn *sql.DB) *Worker {
	w := &Worker{
		conn: conn,
		jobs: make(chan job, 256),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

// Close drains outstanding jobs and stops the loop.
func (w *Worker) Close() {
	close(w.jobs)
	<-w.done
}

// Do runs fn in a transaction on the worker goroutine and returns its
// result.  If the caller's context expires while the job is queued or
// running, Do returns early; the job itself still completes and its result
// lands in the buffered channel to be discarded.
func (w *Worker) Do(ctx context.Context, fn TxFn) error {
	ch := make(chan error, 1)

	select {
	case w.jobs <- job{ctx: ctx, fn: fn, ch: ch}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer close(w.done)

	for j := range w.jobs {
		tx, err := w.conn.BeginTx(j.ctx, nil)
		if err != nil {
			j.ch <- err
			continue
		}

		if err := j.fn(j.ctx, tx); err != nil {
			_ = tx.Rollback()
			j.ch <- err
			continue
		}

		j.ch <- tx.Commit()
	}
}
