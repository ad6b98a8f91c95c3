package host

import (
	"io"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/engine"
	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
	"github.com/roach88/remit/internal/testutil"
)

var (
	owner     = testutil.Account("owner")
	creator   = testutil.Account("creator")
	recipient = testutil.Account("recipient")
)

func startHost(t *testing.T) (*Host, *engine.Engine) {
	t.Helper()
	s := testutil.OpenLedger(t, store.Genesis{Owner: owner, FeeBps: 500})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := engine.New(s, nil,
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithTxIDGenerator(testutil.NewSequentialTxIDs("")),
		engine.WithLogger(logger))

	h := New(e, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, e
}

func submit(t *testing.T, h *Host, c engine.Call) engine.Receipt {
	t.Helper()
	r, err := h.Submit(context.Background(), c)
	require.NoError(t, err)
	return r
}

func TestHost_ExecutesCalls(t *testing.T) {
	h, e := startHost(t)

	r := submit(t, h, engine.Call{Op: engine.OpCreateRemittance, Caller: creator, Recipient: recipient, Amount: 100, Purpose: "rent"})
	require.NoError(t, r.Err)
	assert.Equal(t, uint64(1), r.RemittanceID)

	rem, err := e.GetRemittance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "rent", rem.Purpose)

	r = submit(t, h, engine.Call{Op: engine.OpReleaseFunds, Caller: creator, RemittanceID: 1})
	assert.Equal(t, escrow.CodeUnauthorized, r.Code())
}

func TestHost_ConcurrentContributorsSerialized(t *testing.T) {
	h, e := startHost(t)
	ctx := context.Background()

	r := submit(t, h, engine.Call{Op: engine.OpCreateRemittance, Caller: creator, Recipient: recipient, Amount: 1_000, Purpose: "roof"})
	require.NoError(t, r.Err)
	id := r.RemittanceID

	const contributors = 20
	accounts := make([]escrow.Identity, contributors)
	for i := range accounts {
		accounts[i] = testutil.Account(fmt.Sprintf("c%d", i))
		require.NoError(t, submit(t, h, engine.Call{Op: engine.OpFund, Caller: owner, Account: accounts[i], Amount: 100}).Err)
	}

	var wg sync.WaitGroup
	for _, acct := range accounts {
		wg.Add(1)
		go func(acct escrow.Identity) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				r, err := h.Submit(ctx, engine.Call{Op: engine.OpContribute, Caller: acct, RemittanceID: id, Amount: 3})
				assert.NoError(t, err)
				assert.NoError(t, r.Err)
			}
		}(acct)
	}
	wg.Wait()

	rem, err := e.GetRemittance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, escrow.Amount(contributors*5*3), rem.CurrentAmount)

	for _, acct := range accounts {
		amt, err := e.GetContribution(ctx, id, acct)
		require.NoError(t, err)
		assert.Equal(t, escrow.Amount(15), amt)
	}
}

func TestHost_StopFinishesQueuedCalls(t *testing.T) {
	s := testutil.OpenLedger(t, store.Genesis{Owner: owner})
	e := engine.New(s, nil, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h := New(e, slog.New(slog.NewTextHandler(io.Discard, nil)))

	results := make(chan engine.Receipt, 3)
	for i := 0; i < 3; i++ {
		go func() {
			r, _ := h.Submit(context.Background(), engine.Call{Op: engine.OpPause, Caller: owner})
			results <- r
		}()
	}
	require.Eventually(t, func() bool { return h.queue.Len() == 3 }, time.Second, time.Millisecond)

	h.Stop()
	require.NoError(t, h.Run(context.Background()))

	for i := 0; i < 3; i++ {
		r := <-results
		assert.NoError(t, r.Err)
	}

	_, err := h.Submit(context.Background(), engine.Call{Op: engine.OpPause, Caller: owner})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestHost_CancelledSubmitSkipped(t *testing.T) {
	s := testutil.OpenLedger(t, store.Genesis{Owner: owner})
	e := engine.New(s, nil, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h := New(e, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := h.Submit(ctx, engine.Call{Op: engine.OpPause, Caller: owner})
		errs <- err
	}()
	require.Eventually(t, func() bool { return h.queue.Len() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)

	h.Stop()
	require.NoError(t, h.Run(context.Background()))

	settings, err := e.Settings(context.Background())
	require.NoError(t, err)
	assert.False(t, settings.Paused, "abandoned call must not execute")
}

func TestHost_ContextCancelDrainsQueue(t *testing.T) {
	s := testutil.OpenLedger(t, store.Genesis{Owner: owner})
	e := engine.New(s, nil, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h := New(e, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Run(ctx), context.Canceled)

	_, err := h.Submit(context.Background(), engine.Call{Op: engine.OpPause, Caller: owner})
	assert.ErrorIs(t, err, ErrStopped)
}
