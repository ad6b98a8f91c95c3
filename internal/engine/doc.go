// Package engine implements the escrow state machine.
//
// A remittance moves Active -> Released, or Active -> Cancelled after which
// each contributor independently moves Unclaimed -> Claimed. Release and
// cancel are mutually exclusive and neither can happen twice.
//
// # Operations
//
// Mutating: create_remittance, contribute, release_funds,
// cancel_remittance, claim_refund. Administrative: set_platform_fee,
// set_fee_collector, pause, unpause, fund. Views: GetRemittance,
// GetContribution, IsRefundClaimed, PlatformFee, Balance, Settings.
//
// # Atomicity
//
// Every mutating operation runs in one store transaction: its checks, the
// value transfers through the purses, the bookkeeping writes and the
// event. Any failure rolls all of it back. Precondition failures are
// returned as *escrow.Error; nothing is retried.
//
// # Bounded Cost
//
// Operations touch only the keys of one remittance and, for contribute and
// claim_refund, one (remittance, contributor) pair. Refunds are pulled by
// each contributor rather than pushed by cancel, so no call walks a
// contributor list. A GasMeter charges every ledger access against a fixed
// budget to keep it so.
package engine
