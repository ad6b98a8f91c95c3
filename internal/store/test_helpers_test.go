package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/escrow"
)

var (
	owner     = escrow.DeriveIdentity(escrow.AlgorithmEd25519, []byte("owner"))
	alice     = escrow.DeriveIdentity(escrow.AlgorithmEd25519, []byte("alice"))
	bob       = escrow.DeriveIdentity(escrow.AlgorithmEd25519, []byte("bob"))
	recipient = escrow.DeriveIdentity(escrow.AlgorithmEd25519, []byte("recipient"))
)

// createTestStore creates a new initialized store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	created, err := s.Initialize(context.Background(), Genesis{Owner: owner, FeeBps: 50})
	require.NoError(t, err)
	require.True(t, created)
	return s
}

// countingMeter records every charged access and fails past a limit.
type countingMeter struct {
	limit    int
	accesses []string
}

func (m *countingMeter) Charge(access string) error {
	m.accesses = append(m.accesses, access)
	if m.limit > 0 && len(m.accesses) > m.limit {
		return escrow.ErrGasExhausted
	}
	return nil
}

func mustUpdate(t *testing.T, s *Store, fn func(*Tx) error) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), nil, fn))
}
