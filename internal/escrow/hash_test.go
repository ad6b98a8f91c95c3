package escrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventIDDeterministic(t *testing.T) {
	r := NewRemittance(1, testCreator, testRecipient, 100, "School fees", 1000)
	ev := NewRemittanceCreated(r)
	ev.TxID = "tx-1"

	id1, err := EventID(ev)
	require.NoError(t, err)
	id2, err := EventID(ev)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestEventIDIgnoresSeqAndID(t *testing.T) {
	ev := NewPauseChanged(testCreator, true, 5)
	ev.TxID = "tx-9"
	base, err := EventID(ev)
	require.NoError(t, err)

	ev.Seq = 42
	ev.ID = "anything"
	moved, err := EventID(ev)
	require.NoError(t, err)
	assert.Equal(t, base, moved)
}

func TestEventIDSensitiveToContent(t *testing.T) {
	r := NewRemittance(1, testCreator, testRecipient, 100, "rent", 0)
	r.CurrentAmount = 30
	a := NewContributionMade(r, testCreator, 30, 30, 10)
	b := NewContributionMade(r, testCreator, 31, 30, 10)
	c := a
	c.TxID = "other"

	idA, err := EventID(a)
	require.NoError(t, err)
	idB, err := EventID(b)
	require.NoError(t, err)
	idC, err := EventID(c)
	require.NoError(t, err)

	assert.NotEqual(t, idA, idB)
	assert.NotEqual(t, idA, idC)
}

func TestEventConstructors(t *testing.T) {
	r := NewRemittance(4, testCreator, testRecipient, 100, "rent", 0)
	r.CurrentAmount = 110
	r.IsReleased = true

	ev := NewFundsReleased(r, 105, 5, 500, testCreator, 20)
	assert.Equal(t, EventFundsReleased, ev.Type)
	assert.Equal(t, testRecipient, ev.Actor)
	assert.Equal(t, Amount(105), ev.Amount(AmountPayout))
	assert.Equal(t, Amount(5), ev.Amount(AmountFee))
	assert.Equal(t, Amount(110), ev.Amount(AmountTotal))
	bps, ok := ev.FeeBps(DataFeeBps)
	require.True(t, ok)
	assert.Equal(t, uint64(500), bps)
	assert.True(t, ev.Flags.IsReleased)

	_, ok = ev.FeeBps(DataOldFeeBps)
	assert.False(t, ok)

	assert.Equal(t, EventContractUnpaused, NewPauseChanged(testCreator, false, 0).Type)
}
