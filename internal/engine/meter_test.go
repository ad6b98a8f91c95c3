package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/escrow"
)

func TestGasMeter_WithinBudget(t *testing.T) {
	m := NewGasMeter("contribute", 3)
	for i := 0; i < 3; i++ {
		assert.NoError(t, m.Charge("get_remittance"))
	}
	assert.Equal(t, 3, m.Used())
	assert.Equal(t, 3, m.Budget())
}

func TestGasMeter_Exhausted(t *testing.T) {
	m := NewGasMeter("contribute", 1)
	require.NoError(t, m.Charge("get_paused"))

	err := m.Charge("get_remittance")
	assert.ErrorIs(t, err, escrow.ErrGasExhausted)
	assert.Contains(t, err.Error(), "get_remittance")
}

// gasOf runs a call and returns the accesses it was charged.
func gasOf(t *testing.T, f *fixture, c Call) int {
	t.Helper()
	rcpt := f.engine.Exec(f.ctx, c)
	require.NoError(t, rcpt.Err, "%s", c.Op)
	return rcpt.GasUsed
}

// The charge of an operation must not depend on how many contributors a
// remittance has.
func TestGas_IndependentOfContributorCount(t *testing.T) {
	measure := func(t *testing.T, contributors int) map[Op]int {
		f := newFixture(t)
		id := f.create(1)
		for i := 0; i < contributors; i++ {
			who := escrowIdentity(fmt.Sprintf("contributor-%d", i))
			require.NoError(t, f.engine.Fund(f.ctx, owner, who, 10))
			f.contribute(who, id, 1)
		}
		require.NoError(t, f.engine.Fund(f.ctx, owner, alice, 10))

		gas := map[Op]int{}
		gas[OpContribute] = gasOf(t, f, Call{Op: OpContribute, Caller: alice, RemittanceID: id, Amount: 5})
		gas[OpCancelRemittance] = gasOf(t, f, Call{Op: OpCancelRemittance, Caller: creator, RemittanceID: id})
		gas[OpClaimRefund] = gasOf(t, f, Call{Op: OpClaimRefund, Caller: alice, RemittanceID: id})

		released := f.create(1)
		f.contribute(bob, released, 1)
		gas[OpReleaseFunds] = gasOf(t, f, Call{Op: OpReleaseFunds, Caller: recipient, RemittanceID: released})
		return gas
	}

	one := measure(t, 1)
	hundred := measure(t, 100)
	assert.Equal(t, one, hundred)

	for op, used := range one {
		assert.LessOrEqual(t, used, DefaultGasBudget, "%s", op)
	}
}

func TestGas_BudgetExhaustionRollsBack(t *testing.T) {
	f := newFixture(t, WithGasBudget(4))
	id := f.create(100)
	before := f.snapshot()

	err := f.engine.Contribute(f.ctx, alice, id, 10)
	assert.ErrorIs(t, err, escrow.ErrGasExhausted)
	assert.Equal(t, before, f.snapshot())
}
