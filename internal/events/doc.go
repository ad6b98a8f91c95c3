// Package events records escrow events and delivers them to observers.
//
// Every successful mutating operation produces exactly one event. The
// Emitter appends it to the ledger's log in the same transaction as the
// state change, then publishes it to live subscribers once the
// transaction commits. Failed operations emit nothing.
//
// Observers that need history read the log from the store; observers
// that need a live feed call Subscribe.
package events
