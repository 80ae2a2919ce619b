package order

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// write is one queued remote call. A nil run is a barrier.
type write struct {
	op       string
	run      func(ctx context.Context) error
	detached bool
	done     chan error
}

// writer executes remote calls one at a time in enqueue order, so the
// remote store sees mutations in the order they were applied locally.
type writer struct {
	queue   chan write
	timeout time.Duration
	log     zerolog.Logger
	pending atomic.Int64

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func newWriter(timeout time.Duration, log zerolog.Logger) *writer {
	w := &writer{
		queue:   make(chan write, 256),
		timeout: timeout,
		log:     log,
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// enqueue schedules run. Detached writes have nobody waiting on them, so
// their failures are logged here.
func (w *writer) enqueue(op string, run func(ctx context.Context) error, detached bool) <-chan error {
	done := make(chan error, 1)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		done <- ErrClosed
		return done
	}
	w.pending.Add(1)
	w.queue <- write{op: op, run: run, detached: detached, done: done}
	return done
}

func (w *writer) loop() {
	defer w.wg.Done()
	for wr := range w.queue {
		var err error
		if wr.run != nil {
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			err = wr.run(ctx)
			cancel()
		}
		if err != nil && wr.detached {
			w.log.Error().Err(err).Str("op", wr.op).Msg("background persist failed; local state kept")
		}
		w.pending.Add(-1)
		wr.done <- err
	}
}

// close drains the queue and stops the worker.
func (w *writer) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	w.wg.Wait()
}

// await blocks until a queued write has finished. A queued write always
// runs, so its result is reported even when the caller's context ends.
func await(done <-chan error) error {
	return <-done
}

func wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
