package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
)

// Account derives a stable test identity from a human-readable name.
func Account(name string) escrow.Identity {
	return escrow.DeriveIdentity(escrow.AlgorithmEd25519, []byte(name))
}

// OpenLedger opens an initialized SQLite ledger in a temp dir. The owner
// is Account("owner") unless g names one.
func OpenLedger(t testing.TB, g store.Genesis) *store.Store {
	t.Helper()

	s, err := store.Open(t.TempDir() + "/ledger.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	if g.Owner == "" {
		g.Owner = Account("owner")
	}
	_, err = s.Initialize(context.Background(), g)
	require.NoError(t, err)
	return s
}
