package replay

import (
	"io"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/engine"
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

// busyLedger runs a released pool, a cancelled pool with one refund
// claimed, and a few admin changes.
func busyLedger(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s := testutil.OpenLedger(t, store.Genesis{Owner: owner, FeeCollector: collector, FeeBps: 500})
	e := engine.New(s, nil,
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithTxIDGenerator(testutil.NewSequentialTxIDs("")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	for _, acct := range []escrow.Identity{alice, bob} {
		require.NoError(t, e.Fund(ctx, owner, acct, 1_000))
	}

	released, err := e.CreateRemittance(ctx, creator, recipient, 100, "School fees")
	require.NoError(t, err)
	require.NoError(t, e.Contribute(ctx, alice, released, 60))
	require.NoError(t, e.Contribute(ctx, bob, released, 45))
	require.NoError(t, e.Contribute(ctx, alice, released, 5))
	require.NoError(t, e.ReleaseFunds(ctx, recipient, released))

	require.NoError(t, e.SetPlatformFee(ctx, owner, 250))
	require.NoError(t, e.Pause(ctx, owner))
	require.NoError(t, e.Unpause(ctx, owner))

	cancelled, err := e.CreateRemittance(ctx, creator, recipient, 500, "Medical bills")
	require.NoError(t, err)
	require.NoError(t, e.Contribute(ctx, alice, cancelled, 70))
	require.NoError(t, e.Contribute(ctx, bob, cancelled, 30))
	require.NoError(t, e.CancelRemittance(ctx, creator, cancelled))
	require.NoError(t, e.ClaimRefund(ctx, alice, cancelled))

	_, err = e.CreateRemittance(ctx, creator, recipient, 50, "Rent")
	require.NoError(t, err)
	return s
}

func TestVerify_CleanLedger(t *testing.T) {
	s := busyLedger(t)

	report, err := Verify(context.Background(), s)
	require.NoError(t, err)

	assert.True(t, report.Clean(), "violations: %v", report.Violations)
	assert.Equal(t, 3, report.Remittances)
	assert.Greater(t, report.Events, 0)
	assert.Equal(t, int64(report.Events), report.LastSeq)
}

func TestVerify_PurposeSurvivesEventLog(t *testing.T) {
	ctx := context.Background()
	s := testutil.OpenLedger(t, store.Genesis{})
	e := engine.New(s, nil, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := e.CreateRemittance(ctx, creator, recipient, 50, "rent \xff\xfe")
	require.ErrorIs(t, err, escrow.ErrInvalidPurpose)

	id, err := e.CreateRemittance(ctx, creator, recipient, 50, "Caf\u00e9 rent")
	require.NoError(t, err)

	evs, err := s.ReadRemittanceEvents(ctx, id)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	r, err := e.GetRemittance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, r.Purpose, evs[0].Data[escrow.DataPurpose])

	report, err := Verify(ctx, s)
	require.NoError(t, err)
	assert.True(t, report.Clean(), "violations: %v", report.Violations)
}

func TestVerify_EmptyLedger(t *testing.T) {
	s := testutil.OpenLedger(t, store.Genesis{})

	report, err := Verify(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Zero(t, report.Events)
}

func TestProject_RebuildsFromEventsOnly(t *testing.T) {
	s := busyLedger(t)
	ctx := context.Background()

	evs, err := s.ReadEvents(ctx, 0, 0)
	require.NoError(t, err)

	state, violations := Project(evs)
	require.Empty(t, violations)

	first := state.Remittances[1]
	require.NotNil(t, first)
	assert.True(t, first.IsReleased)
	assert.Equal(t, escrow.Amount(110), first.CurrentAmount)
	assert.Equal(t, escrow.Amount(65), first.Contributions[alice])
	assert.Equal(t, escrow.Amount(45), first.Contributions[bob])
	assert.Equal(t, escrow.Amount(105), first.Payout)
	assert.Equal(t, escrow.Amount(5), first.Fee)

	second := state.Remittances[2]
	require.NotNil(t, second)
	assert.True(t, second.IsCancelled)
	assert.Equal(t, escrow.Amount(70), second.Refunds[alice])
	_, bobClaimed := second.Refunds[bob]
	assert.False(t, bobClaimed)

	assert.Equal(t, escrow.Amount(105), state.Balances[recipient])
	assert.Equal(t, escrow.Amount(5), state.Balances[collector])
	assert.Equal(t, escrow.Amount(1_000-65-70+70), state.Balances[alice])
	assert.Equal(t, escrow.Amount(30), state.Balances[store.EscrowPurse])

	require.NotNil(t, state.FeeBps)
	assert.Equal(t, uint64(250), *state.FeeBps)
	assert.False(t, state.Paused)
}

func TestVerify_DetectsTamperedContribution(t *testing.T) {
	s := busyLedger(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx,
		`UPDATE contributions SET amount = '999' WHERE remittance_id = 2 AND contributor = ?`, string(bob))
	require.NoError(t, err)

	report, err := Verify(ctx, s)
	require.NoError(t, err)
	require.False(t, report.Clean())
	assert.Equal(t, RuleStoreMismatch, report.Violations[0].Rule)
	assert.Equal(t, uint64(2), report.Violations[0].RemittanceID)
}

func TestVerify_DetectsTamperedBalance(t *testing.T) {
	s := busyLedger(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx, `UPDATE balances SET amount = '1' WHERE account = ?`, string(store.EscrowPurse))
	require.NoError(t, err)

	report, err := Verify(ctx, s)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Contains(t, report.Violations[0].Detail, "balance of escrow")
}

func TestVerify_DetectsRewrittenEvent(t *testing.T) {
	s := busyLedger(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx, `UPDATE events SET timestamp = timestamp + 1 WHERE seq = 1`)
	require.NoError(t, err)

	report, err := Verify(ctx, s)
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, RuleEventID, report.Violations[0].Rule)
	assert.Equal(t, int64(1), report.Violations[0].Seq)
}

// logBuilder assembles a hand-made event log with valid ids.
type logBuilder struct {
	t   *testing.T
	evs []escrow.Event
}

func (b *logBuilder) add(ev escrow.Event) *logBuilder {
	b.t.Helper()
	ev.Seq = int64(len(b.evs) + 1)
	ev.TxID = "tx"
	id, err := escrow.EventID(ev)
	require.NoError(b.t, err)
	ev.ID = id
	b.evs = append(b.evs, ev)
	return b
}

func rules(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Rule
	}
	return out
}

func TestProject_WrongFee(t *testing.T) {
	r := escrow.NewRemittance(1, creator, recipient, 100, "Rent", 1)
	b := &logBuilder{t: t}
	b.add(escrow.NewAccountFunded(owner, alice, 200, 1))
	b.add(escrow.NewRemittanceCreated(r))
	r.CurrentAmount = 100
	b.add(escrow.NewContributionMade(r, alice, 100, 100, 2))
	r.IsReleased = true
	// 500 bps of 100 is 5, not 7.
	b.add(escrow.NewFundsReleased(r, 93, 7, 500, collector, 3))

	_, violations := Project(b.evs)
	assert.Equal(t, []string{RuleReleaseFee}, rules(violations))
}

func TestProject_DoubleRefund(t *testing.T) {
	r := escrow.NewRemittance(1, creator, recipient, 100, "Rent", 1)
	b := &logBuilder{t: t}
	b.add(escrow.NewAccountFunded(owner, alice, 200, 1))
	b.add(escrow.NewRemittanceCreated(r))
	r.CurrentAmount = 40
	b.add(escrow.NewContributionMade(r, alice, 40, 40, 2))
	r.IsCancelled = true
	b.add(escrow.NewRemittanceCancelled(r, 3))
	b.add(escrow.NewRefundClaimed(r, alice, 40, 4))
	b.add(escrow.NewRefundClaimed(r, alice, 40, 5))

	state, violations := Project(b.evs)
	assert.Equal(t, []string{RuleRefundOnce}, rules(violations))
	assert.Equal(t, escrow.Amount(200), state.Balances[alice])
}

func TestProject_ContributionAfterRelease(t *testing.T) {
	r := escrow.NewRemittance(1, creator, recipient, 10, "Rent", 1)
	b := &logBuilder{t: t}
	b.add(escrow.NewAccountFunded(owner, alice, 200, 1))
	b.add(escrow.NewRemittanceCreated(r))
	r.CurrentAmount = 10
	b.add(escrow.NewContributionMade(r, alice, 10, 10, 2))
	r.IsReleased = true
	b.add(escrow.NewFundsReleased(r, 10, 0, 0, collector, 3))
	r.CurrentAmount = 15
	b.add(escrow.NewContributionMade(r, alice, 5, 15, 4))

	_, violations := Project(b.evs)
	require.Len(t, violations, 1)
	assert.Equal(t, RuleClosedRemittance, violations[0].Rule)
	assert.Equal(t, int64(5), violations[0].Seq)
}

func TestProject_UnknownRemittance(t *testing.T) {
	r := escrow.NewRemittance(9, creator, recipient, 10, "Rent", 1)
	r.IsCancelled = true
	b := &logBuilder{t: t}
	b.add(escrow.NewRemittanceCancelled(r, 1))

	_, violations := Project(b.evs)
	assert.Equal(t, []string{RuleUnknownRemittance}, rules(violations))
}

func TestProject_SequenceGap(t *testing.T) {
	b := &logBuilder{t: t}
	b.add(escrow.NewAccountFunded(owner, alice, 1, 1))
	b.add(escrow.NewAccountFunded(owner, bob, 1, 2))
	b.evs[0], b.evs[1] = b.evs[1], b.evs[0]

	_, violations := Project(b.evs)
	assert.Equal(t, []string{RuleSequence}, rules(violations))
}
