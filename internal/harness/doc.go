// Package harness runs scripted escrow scenarios against a real engine.
//
// # Scenario Format
//
// Scenarios are YAML files. Accounts are plain names; each name resolves
// to a stable identity, so traces stay readable:
//
//	name: pooled_release
//	description: "Two contributors fund a remittance and the recipient releases"
//	genesis:
//	  fee_collector: collector
//	  fee_bps: 500
//	setup:
//	  - op: fund
//	    caller: owner
//	    args: { account: alice, amount: 100 }
//	flow:
//	  - op: create_remittance
//	    caller: creator
//	    args: { recipient: recipient, amount: 100, purpose: "School fees" }
//	    expect: { id: 1 }
//	  - op: release_funds
//	    caller: alice
//	    args: { remittance_id: 1 }
//	    expect: { code: UNAUTHORIZED }
//	assertions:
//	  - type: balance
//	    account: recipient
//	    amount: 105
//	  - type: audit_clean
//
// A flow step without expect must succeed. Setup steps must always succeed.
//
// # Assertion Types
//
//   - balance: purse balance of an account
//   - remittance: subset match on a remittance's fields
//   - contribution: one contributor's cumulative amount
//   - refund_claimed: the per-contributor refund flag
//   - event_count: occurrences of an event type, optionally for one remittance
//   - event_order: event types appear in this relative order
//   - audit_clean: replaying the log reproduces the stored ledger
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory ledger, testutil.DeterministicClock and
// sequential transaction ids, so the same scenario always yields the same
// trace. Traces are compared against golden files with goldie.
package harness
