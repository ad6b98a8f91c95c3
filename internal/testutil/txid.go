package testutil

import (
	"fmt"
	"sync"
)

// SequentialTxIDs generates "tx-0001", "tx-0002", ... for deterministic
// tests and golden traces.
//
// Unlike engine.UUIDv7Generator it never depends on time or randomness,
// so the same scenario always produces the same event ids.
type SequentialTxIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTxIDs creates a generator. An empty prefix means "tx".
func NewSequentialTxIDs(prefix string) *SequentialTxIDs {
	if prefix == "" {
		prefix = "tx"
	}
	return &SequentialTxIDs{prefix: prefix}
}

// Generate returns the next id. Implements engine.TxIDGenerator.
func (g *SequentialTxIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Count returns how many ids have been generated.
func (g *SequentialTxIDs) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// FixedTxIDs returns the same id every time.
type FixedTxIDs string

// Generate returns the fixed id.
func (f FixedTxIDs) Generate() string {
	return string(f)
}
