package engine

import (
	"github.com/google/uuid"
)

// TxIDGenerator produces the correlation id of each call.
// Implemented by UUIDv7Generator (production) and testutil.FixedTxIDs (tests).
type TxIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 transaction ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// submission time when the log is inspected by hand.
//
// Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
