// Package host serializes calls from concurrent callers onto the engine.
//
// It plays the part of the execution environment: callers submit signed
// calls from any goroutine, and a single writer goroutine executes them
// one at a time, in submission order, each to completion. Cross-caller
// ordering is whatever order submissions reach the queue.
package host

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/remit/internal/engine"
	"github.com/roach88/remit/internal/queue"
)

// ErrStopped is returned by Submit once the host has stopped.
var ErrStopped = errors.New("host stopped")

// Executor runs one call to completion. *engine.Engine implements it.
type Executor interface {
	Exec(ctx context.Context, c engine.Call) engine.Receipt
}

type submission struct {
	ctx   context.Context
	call  engine.Call
	reply chan engine.Receipt
}

// Host is the single-writer submission loop.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Host struct {
	exec   Executor
	queue  *queue.Queue[submission]
	logger *slog.Logger
	done   chan struct{}
}

// New creates a host over an executor. logger may be nil.
func New(exec Executor, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		exec:   exec,
		queue:  queue.New[submission](),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Run executes submitted calls until ctx is cancelled or Stop is called.
// Calls still queued when Stop is called are executed before Run returns;
// calls queued when ctx is cancelled are answered with ErrStopped.
func (h *Host) Run(ctx context.Context) error {
	defer close(h.done)
	h.logger.Info("host starting")

	for {
		if sub, ok := h.queue.TryDequeue(); ok {
			h.execute(sub)
			continue
		}

		select {
		case <-ctx.Done():
			h.logger.Info("host stopping: context cancelled")
			h.queue.Close()
			h.drain()
			return ctx.Err()

		case <-h.queue.Wait():
			// The signal channel closes when the queue is closed.
			if h.queue.Closed() && h.queue.Len() == 0 {
				h.logger.Info("host stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns after finishing queued calls.
func (h *Host) Stop() {
	h.queue.Close()
}

// Done is closed when Run returns.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Submit queues a call and waits for its receipt.
//
// If ctx ends before the call starts executing, the call is skipped and
// ctx.Err() is returned. Once execution has started it runs to completion
// (there is no intra-operation suspension) and Submit still returns its
// receipt.
func (h *Host) Submit(ctx context.Context, c engine.Call) (engine.Receipt, error) {
	sub := submission{ctx: ctx, call: c, reply: make(chan engine.Receipt, 1)}
	if !h.queue.Enqueue(sub) {
		return engine.Receipt{}, ErrStopped
	}

	select {
	case r := <-sub.reply:
		if errors.Is(r.Err, ErrStopped) {
			return r, ErrStopped
		}
		return r, nil
	case <-ctx.Done():
		return engine.Receipt{}, ctx.Err()
	}
}

func (h *Host) execute(sub submission) {
	if err := sub.ctx.Err(); err != nil {
		h.logger.Debug("skipping abandoned call", "op", sub.call.Op, "error", err)
		sub.reply <- engine.Receipt{Op: sub.call.Op, Caller: sub.call.Caller, Err: err}
		return
	}
	// The call runs detached from the submitter's cancellation so it is
	// never interrupted part way.
	sub.reply <- h.exec.Exec(context.WithoutCancel(sub.ctx), sub.call)
}

// drain answers calls left in a closed queue.
func (h *Host) drain() {
	for {
		sub, ok := h.queue.TryDequeue()
		if !ok {
			return
		}
		sub.reply <- engine.Receipt{Op: sub.call.Op, Caller: sub.call.Caller, Err: ErrStopped}
	}
}
