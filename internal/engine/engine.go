package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/events"
	"github.com/roach88/remit/internal/store"
)

// DefaultMaxFeeBps caps the platform fee at 5%.
const DefaultMaxFeeBps = 500

// Engine is the escrow state machine.
//
// Each operation is a fresh read-modify-write cycle against the ledger,
// run inside a single store transaction. The engine keeps no state of its
// own between calls. An operation either commits all of its writes and
// exactly one event, or fails and leaves the ledger untouched.
//
// Calls are serialized by commitMu, which is held from the start of the
// store transaction until its events are published, so subscribers see
// events in log order even when the engine is called from many
// goroutines. internal/host adds FIFO submission on top.
type Engine struct {
	commitMu sync.Mutex

	store     *store.Store
	emitter   *events.Emitter
	clock     Clock
	txIDs     TxIDGenerator
	logger    *slog.Logger
	gasBudget int
	maxFeeBps uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the timestamp source. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTxIDGenerator sets the call correlation id source. Default: UUIDv7Generator.
func WithTxIDGenerator(g TxIDGenerator) Option {
	return func(e *Engine) { e.txIDs = g }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithGasBudget sets the per-operation access budget.
//
// Default: 32 (DefaultGasBudget)
// Use a small budget in tests to exercise GAS_EXHAUSTED.
func WithGasBudget(budget int) Option {
	return func(e *Engine) { e.gasBudget = budget }
}

// WithMaxFeeBps sets the ceiling accepted by set_platform_fee.
// Default: 500 (DefaultMaxFeeBps). Values above 10000 are clamped.
func WithMaxFeeBps(bps uint64) Option {
	return func(e *Engine) { e.maxFeeBps = min(bps, escrow.BasisPointsDenominator) }
}

// New creates an Engine over an initialized store.
// emitter may be nil, in which case events are logged but not published.
func New(s *store.Store, emitter *events.Emitter, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		emitter:   emitter,
		clock:     SystemClock{},
		txIDs:     UUIDv7Generator{},
		logger:    slog.Default(),
		gasBudget: DefaultGasBudget,
		maxFeeBps: DefaultMaxFeeBps,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.emitter == nil {
		e.emitter = events.NewEmitter(e.logger)
	}
	return e
}

// Emitter returns the emitter events are published through.
func (e *Engine) Emitter() *events.Emitter {
	return e.emitter
}

// Store returns the ledger the engine operates on.
func (e *Engine) Store() *store.Store {
	return e.store
}

// MaxFeeBps returns the platform fee ceiling.
func (e *Engine) MaxFeeBps() uint64 {
	return e.maxFeeBps
}

// opContext is the per-call state of one mutating operation.
type opContext struct {
	op     Op
	tx     *store.Tx
	txID   string
	now    int64
	caller escrow.Identity

	// remittanceID is the remittance the call concerns (or created).
	remittanceID uint64

	emitter *events.Emitter
	events  []escrow.Event
}

// fail builds an error attributed to the current operation.
func (o *opContext) fail(code escrow.ErrorCode, format string, args ...any) error {
	return escrow.NewError(code, string(o.op), o.remittanceID, format, args...)
}

// emit records ev in the log within the operation's transaction.
func (o *opContext) emit(ev escrow.Event) error {
	ev.TxID = o.txID
	recorded, err := o.emitter.Record(o.tx, ev)
	if err != nil {
		return err
	}
	o.events = append(o.events, recorded)
	return nil
}

// requireActive fails unless the contract is unpaused.
func (o *opContext) requireActive() error {
	paused, err := o.tx.Paused()
	if err != nil {
		return err
	}
	if paused {
		return o.fail(escrow.CodeContractPaused, "contract is paused")
	}
	return nil
}

// requireOwner fails unless the caller is the administrative identity.
func (o *opContext) requireOwner() error {
	owner, err := o.tx.Owner()
	if err != nil {
		return err
	}
	if o.caller != owner {
		return o.fail(escrow.CodeUnauthorized, "caller %s is not the owner", o.caller.Short())
	}
	return nil
}

// apply runs fn as one atomic operation and returns its receipt.
//
// On error the transaction is rolled back, the receipt carries no events
// and nothing is published. On success the recorded events are published
// after commit.
func (e *Engine) apply(ctx context.Context, op Op, caller escrow.Identity, remittanceID uint64, fn func(*opContext) error) Receipt {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	oc := &opContext{
		op:           op,
		txID:         e.txIDs.Generate(),
		now:          e.clock.Now(),
		caller:       caller,
		remittanceID: remittanceID,
		emitter:      e.emitter,
	}
	meter := NewGasMeter(string(op), e.gasBudget)

	err := e.store.Update(ctx, meter, func(tx *store.Tx) error {
		oc.tx = tx
		if !caller.Valid() {
			return oc.fail(escrow.CodeInvalidIdentity, "caller %q is not a well-formed identity", string(caller))
		}
		return fn(oc)
	})

	receipt := Receipt{
		TxID:         oc.txID,
		Op:           op,
		Caller:       caller,
		RemittanceID: oc.remittanceID,
		GasUsed:      meter.Used(),
		Timestamp:    oc.now,
	}

	if err != nil {
		receipt.Err = err
		e.logFailure(receipt)
		return receipt
	}

	receipt.Events = oc.events
	e.emitter.Publish(oc.events...)
	e.logger.Info("operation applied",
		"op", op,
		"tx_id", receipt.TxID,
		"caller", caller.Short(),
		"remittance_id", receipt.RemittanceID,
		"gas", receipt.GasUsed,
	)
	return receipt
}

// logFailure logs rejected calls at Info and infrastructure failures at Error.
func (e *Engine) logFailure(r Receipt) {
	attrs := []any{
		"op", r.Op,
		"tx_id", r.TxID,
		"caller", r.Caller.Short(),
		"remittance_id", r.RemittanceID,
		"gas", r.GasUsed,
		"error", r.Err,
	}
	var escrowErr *escrow.Error
	if errors.As(r.Err, &escrowErr) {
		e.logger.Info("operation rejected", append(attrs, "code", escrowErr.Code)...)
		return
	}
	e.logger.Error("operation failed", attrs...)
}
