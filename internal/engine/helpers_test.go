package engine

import (
	"io"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
	"github.com/roach88/remit/internal/testutil"
)

var (
	owner     = testutil.Account("owner")
	collector = testutil.Account("collector")
	creator   = testutil.Account("creator")
	recipient = testutil.Account("recipient")
	alice     = testutil.Account("alice")
	bob       = testutil.Account("bob")
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *store.Store
	engine *Engine
}

// newFixture opens a fresh ledger with a 500 bps fee, a separate fee
// collector, and funded purses for the common test accounts.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := testutil.OpenLedger(t, store.Genesis{Owner: owner, FeeCollector: collector, FeeBps: 500})

	base := []Option{
		WithClock(testutil.NewDeterministicClock()),
		WithTxIDGenerator(testutil.NewSequentialTxIDs("")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  s,
		engine: New(s, nil, append(base, opts...)...),
	}
	for _, acct := range []escrow.Identity{creator, alice, bob} {
		require.NoError(t, f.engine.Fund(f.ctx, owner, acct, 1_000))
	}
	return f
}

func (f *fixture) create(target escrow.Amount) uint64 {
	f.t.Helper()
	id, err := f.engine.CreateRemittance(f.ctx, creator, recipient, target, "School fees")
	require.NoError(f.t, err)
	return id
}

func (f *fixture) contribute(who escrow.Identity, id uint64, amount escrow.Amount) {
	f.t.Helper()
	require.NoError(f.t, f.engine.Contribute(f.ctx, who, id, amount))
}

func (f *fixture) balance(who escrow.Identity) escrow.Amount {
	f.t.Helper()
	bal, err := f.engine.Balance(f.ctx, who)
	require.NoError(f.t, err)
	return bal
}

func (f *fixture) remittance(id uint64) escrow.Remittance {
	f.t.Helper()
	r, err := f.engine.GetRemittance(f.ctx, id)
	require.NoError(f.t, err)
	return r
}

func (f *fixture) eventCount() int {
	f.t.Helper()
	evs, err := f.store.ReadEvents(f.ctx, 0, 0)
	require.NoError(f.t, err)
	return len(evs)
}

// snapshot captures the whole ledger for unchanged-state assertions.
func (f *fixture) snapshot() store.LedgerState {
	f.t.Helper()
	state, err := f.store.Snapshot(f.ctx)
	require.NoError(f.t, err)
	return state
}
