package engine

import (
	"github.com/roach88/remit/internal/escrow"
)

// DefaultGasBudget is the number of ledger accesses one operation may make.
// The heaviest operation, release_funds, uses 7.
const DefaultGasBudget = 32

// GasMeter counts the ledger accesses of one operation and aborts it once
// the budget is spent.
//
// Each operation gets a fresh meter. Because every engine operation is a
// fixed sequence of point accesses, the charge of an operation is a
// constant: it cannot grow with the number of remittances or contributors.
// The budget exists to keep it that way.
type GasMeter struct {
	op     string
	budget int
	used   int
}

// NewGasMeter creates a meter for op with the given budget.
func NewGasMeter(op string, budget int) *GasMeter {
	return &GasMeter{op: op, budget: budget}
}

// Charge records one access. Returns a GAS_EXHAUSTED error once the budget
// is exceeded; the access is not performed.
func (m *GasMeter) Charge(access string) error {
	m.used++
	if m.used > m.budget {
		return escrow.NewError(escrow.CodeGasExhausted, m.op, 0,
			"access %d (%s) exceeds budget of %d", m.used, access, m.budget)
	}
	return nil
}

// Used returns the number of accesses charged so far.
func (m *GasMeter) Used() int {
	return m.used
}

// Budget returns the access limit.
func (m *GasMeter) Budget() int {
	return m.budget
}
