package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/queue"
	"github.com/roach88/remit/internal/store"
)

// ErrClosed is returned by Subscription.Next after Close.
var ErrClosed = errors.New("subscription closed")

// Filter selects the events a subscription receives. A nil Filter accepts all.
type Filter func(escrow.Event) bool

// ForRemittance accepts events concerning one remittance.
func ForRemittance(id uint64) Filter {
	return func(ev escrow.Event) bool { return ev.RemittanceID == id }
}

// OfType accepts events of the given types.
func OfType(types ...escrow.EventType) Filter {
	return func(ev escrow.Event) bool { return slices.Contains(types, ev.Type) }
}

// Emitter records events in the ledger's log and fans committed events out
// to live subscribers.
//
// Recording happens inside the operation's transaction, so an aborted
// operation leaves no event behind. Publishing happens after commit, so
// subscribers only ever see durable events, in log order.
type Emitter struct {
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
}

// NewEmitter creates an emitter. logger may be nil.
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Emitter{
		logger: logger,
		subs:   make(map[int]*Subscription),
	}
}

// Record assigns ev its content-addressed id and appends it to the log
// inside tx. The returned event carries the assigned ID and Seq.
func (e *Emitter) Record(tx *store.Tx, ev escrow.Event) (escrow.Event, error) {
	id, err := escrow.EventID(ev)
	if err != nil {
		return ev, fmt.Errorf("record %s: %w", ev.Type, err)
	}
	ev.ID = id
	if err := tx.AppendEvent(&ev); err != nil {
		return ev, fmt.Errorf("record %s: %w", ev.Type, err)
	}
	return ev, nil
}

// Publish delivers committed events to every matching subscriber.
// Never blocks. Callers publish in commit order; the engine holds its
// commit lock across the transaction and this call.
func (e *Emitter) Publish(evs ...escrow.Event) {
	if len(evs) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ev := range evs {
		e.logger.Debug("event published",
			"seq", ev.Seq,
			"type", ev.Type,
			"remittance_id", ev.RemittanceID,
			"tx_id", ev.TxID)
		for _, sub := range e.subs {
			if sub.filter == nil || sub.filter(ev) {
				sub.q.Enqueue(ev)
			}
		}
	}
}

// Subscribe registers a live subscriber. Only events published after the
// call are delivered; use store.ReadEvents to catch up on history.
func (e *Emitter) Subscribe(filter Filter) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	sub := &Subscription{
		id:      e.nextID,
		filter:  filter,
		q:       queue.New[escrow.Event](),
		emitter: e,
	}
	e.subs[sub.id] = sub
	return sub
}

// Subscribers returns the number of open subscriptions.
func (e *Emitter) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *Emitter) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, id)
}

// Subscription is a live, ordered feed of committed events.
type Subscription struct {
	id      int
	filter  Filter
	q       *queue.Queue[escrow.Event]
	emitter *Emitter
}

// Next blocks until an event is available, the context is done, or the
// subscription is closed.
func (s *Subscription) Next(ctx context.Context) (escrow.Event, error) {
	for {
		if ev, ok := s.q.TryDequeue(); ok {
			return ev, nil
		}
		if s.q.Closed() {
			// Close may have raced with a final Publish.
			if ev, ok := s.q.TryDequeue(); ok {
				return ev, nil
			}
			return escrow.Event{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return escrow.Event{}, ctx.Err()
		case <-s.q.Wait():
		}
	}
}

// Pending returns the number of delivered but unread events.
func (s *Subscription) Pending() int {
	return s.q.Len()
}

// Close unregisters the subscription. Events already queued can still be read.
func (s *Subscription) Close() {
	s.emitter.remove(s.id)
	s.q.Close()
}
