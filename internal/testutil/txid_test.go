package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialTxIDs(t *testing.T) {
	g := NewSequentialTxIDs("")
	assert.Equal(t, "tx-0001", g.Generate())
	assert.Equal(t, "tx-0002", g.Generate())
	assert.Equal(t, 2, g.Count())

	custom := NewSequentialTxIDs("scenario")
	assert.Equal(t, "scenario-0001", custom.Generate())
}

func TestFixedTxIDs(t *testing.T) {
	g := FixedTxIDs("tx-fixed")
	assert.Equal(t, "tx-fixed", g.Generate())
	assert.Equal(t, "tx-fixed", g.Generate())
}

func TestAccountIsStable(t *testing.T) {
	assert.Equal(t, Account("alice"), Account("alice"))
	assert.NotEqual(t, Account("alice"), Account("bob"))
	assert.True(t, Account("alice").Valid())
}
