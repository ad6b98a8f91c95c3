package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/escrow"
)

func TestViews_DefaultsForUnknownKeys(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.GetRemittance(f.ctx, 1)
	assert.ErrorIs(t, err, escrow.ErrRemittanceNotFound)

	amount, err := f.engine.GetContribution(f.ctx, 1, alice)
	require.NoError(t, err)
	assert.Equal(t, escrow.Amount(0), amount)

	claimed, err := f.engine.IsRefundClaimed(f.ctx, 1, alice)
	require.NoError(t, err)
	assert.False(t, claimed)

	bps, err := f.engine.PlatformFee(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), bps)
}

func TestViews_HaveNoSideEffects(t *testing.T) {
	f := newFixture(t)
	id := f.create(100)
	f.contribute(alice, id, 10)
	before := f.snapshot()

	for i := 0; i < 3; i++ {
		_, _ = f.engine.GetRemittance(f.ctx, id)
		_, _ = f.engine.GetContribution(f.ctx, id, alice)
		_, _ = f.engine.IsRefundClaimed(f.ctx, id, alice)
		_, _ = f.engine.PlatformFee(f.ctx)
		_, _ = f.engine.Settings(f.ctx)
	}
	assert.Equal(t, before, f.snapshot())
}

func TestSettings(t *testing.T) {
	f := newFixture(t)
	s, err := f.engine.Settings(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, Settings{
		Owner:        owner,
		FeeCollector: collector,
		FeeBps:       500,
		MaxFeeBps:    DefaultMaxFeeBps,
		Paused:       false,
	}, s)
}
