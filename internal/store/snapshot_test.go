package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/escrow"
)

func TestSnapshot(t *testing.T) {
	s := createTestStore(t)
	r := escrow.NewRemittance(1, alice, recipient, 100, "rent", 0)
	r.CurrentAmount = 30
	r.IsCancelled = true

	mustUpdate(t, s, func(tx *Tx) error {
		if _, err := tx.NextRemittanceID(); err != nil {
			return err
		}
		require.NoError(t, tx.PutRemittance(r))
		require.NoError(t, tx.PutContribution(1, bob, 30))
		require.NoError(t, tx.MarkRefundClaimed(1, bob, 5))
		require.NoError(t, tx.Credit(bob, 30))
		return tx.AppendEvent(withID(t, escrow.NewRemittanceCancelled(r, 4), "tx"))
	})

	state, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	key := escrow.ContributionKey{RemittanceID: 1, Contributor: bob}
	assert.Equal(t, owner, state.Owner)
	assert.Equal(t, uint64(1), state.RemittanceCounter)
	assert.Equal(t, r, state.Remittances[1])
	assert.Equal(t, escrow.Amount(30), state.Contributions[key])
	assert.True(t, state.RefundClaims[key])
	assert.Equal(t, escrow.Amount(30), state.Balances[bob])
	assert.Equal(t, int64(1), state.LastSeq)
}
