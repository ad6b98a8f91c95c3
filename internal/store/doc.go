// Package store provides SQLite-backed durable storage for the escrow ledger.
//
// The ledger holds:
//   - Remittances: keyed by id, never deleted
//   - Contributions: cumulative amount per (remittance, contributor)
//   - Refund claims: permanent per (remittance, contributor)
//   - Balances: value held by each account purse and the escrow purse
//   - Settings: owner, fee collector, fee rate, pause flag, id counter
//   - Events: the append-only log of successful transitions
//
// # Access Pattern
//
// Engine operations run inside Store.Update and touch the ledger only
// through Tx point accesses. Each access charges the transaction's Meter,
// which lets the engine bound the work of one operation. Nothing an
// operation does scans a table.
//
// A failed Update rolls back every write, including appended events.
//
// # Audit Reads
//
// Tx offers no enumeration. The one exception is Store.Snapshot, which
// reads every table for the offline audit in internal/replay. It runs in
// its own read transaction, outside any metered operation, and the engine
// never calls it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
