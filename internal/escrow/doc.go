// Package escrow defines the data model of the remittance escrow.
//
// A Remittance pools value from many contributors toward one recipient and
// resolves to exactly one outcome:
//
//	Active -> Released                          (payout minus platform fee)
//	Active -> Cancelled -> per contributor: Unclaimed -> Claimed
//
// This package holds the types shared by the ledger store, the engine and
// external observers:
//   - Remittance: the escrow record and its derived views
//   - Identity: account hashes of callers, recipients and collectors
//   - Amount: overflow-checked value arithmetic and basis-point fees
//   - Event: the append-only fact emitted per successful state transition
//   - Error: the error taxonomy returned by every operation
//
// # Canonical Encoding
//
// Event identities are content-addressed: SHA-256 over canonical JSON
// (sorted keys, NFC strings, no floats) with a domain prefix. The same
// event always hashes to the same ID regardless of map iteration order.
package escrow
