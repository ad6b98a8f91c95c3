// Package replay rebuilds ledger state from the event log and audits it.
//
// An observer that sees only events can reconstruct every remittance, each
// contributor's total, refund claims and purse balances. Verify checks that
// reconstruction against the stored ledger and reports any broken rule:
// contributions that do not sum to the pooled amount, a release whose
// payout and fee do not add up, double refunds, or state the log cannot
// explain.
package replay
