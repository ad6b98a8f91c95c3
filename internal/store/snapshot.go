package store

import (
	"context"
	"fmt"

	"github.com/roach88/remit/internal/escrow"
)

// LedgerState is a full copy of the ledger, used for audits.
// Engine operations never need it; they use point accesses through Tx.
type LedgerState struct {
	Owner             escrow.Identity
	FeeCollector      escrow.Identity
	FeeBps            uint64
	Paused            bool
	RemittanceCounter uint64

	Remittances   map[uint64]escrow.Remittance
	Contributions map[escrow.ContributionKey]escrow.Amount
	RefundClaims  map[escrow.ContributionKey]bool
	Balances      map[escrow.Identity]escrow.Amount

	// LastSeq is the newest event seq at the time of the snapshot.
	LastSeq int64
}

// Snapshot reads the whole ledger in one consistent transaction.
//
// It is the store's only full-table read and exists for the audit; engine
// operations must not call it.
func (s *Store) Snapshot(ctx context.Context) (LedgerState, error) {
	state := LedgerState{
		Remittances:   make(map[uint64]escrow.Remittance),
		Contributions: make(map[escrow.ContributionKey]escrow.Amount),
		RefundClaims:  make(map[escrow.ContributionKey]bool),
		Balances:      make(map[escrow.Identity]escrow.Amount),
	}

	err := s.View(ctx, func(tx *Tx) error {
		var err error
		if state.Owner, err = tx.Owner(); err != nil {
			return err
		}
		if state.FeeCollector, err = tx.FeeCollector(); err != nil {
			return err
		}
		if state.FeeBps, err = tx.FeeBps(); err != nil {
			return err
		}
		if state.Paused, err = tx.Paused(); err != nil {
			return err
		}
		if state.RemittanceCounter, err = tx.RemittanceCounter(); err != nil {
			return err
		}
		if err := tx.scanRemittances(state.Remittances); err != nil {
			return err
		}
		if err := tx.scanContributions(state.Contributions); err != nil {
			return err
		}
		if err := tx.scanRefundClaims(state.RefundClaims); err != nil {
			return err
		}
		if err := tx.scanBalances(state.Balances); err != nil {
			return err
		}
		return tx.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&state.LastSeq)
	})
	if err != nil {
		return state, fmt.Errorf("snapshot: %w", err)
	}
	return state, nil
}

func (t *Tx) scanRemittances(into map[uint64]escrow.Remittance) error {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT id, creator, recipient, target_amount, current_amount, purpose, created_at, is_released, is_cancelled
		FROM remittances
		ORDER BY id ASC
	`)
	if err != nil {
		return fmt.Errorf("query remittances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRemittance(rows)
		if err != nil {
			return err
		}
		into[r.ID] = r
	}
	return rows.Err()
}

func (t *Tx) scanContributions(into map[escrow.ContributionKey]escrow.Amount) error {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT remittance_id, contributor, amount FROM contributions
		ORDER BY remittance_id ASC, contributor COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("query contributions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          int64
			contributor string
			text        string
		)
		if err := rows.Scan(&id, &contributor, &text); err != nil {
			return fmt.Errorf("scan contribution: %w", err)
		}
		amount, err := escrow.ParseAmount(text)
		if err != nil {
			return err
		}
		into[escrow.ContributionKey{RemittanceID: uint64(id), Contributor: escrow.Identity(contributor)}] = amount
	}
	return rows.Err()
}

func (t *Tx) scanRefundClaims(into map[escrow.ContributionKey]bool) error {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT remittance_id, contributor FROM refund_claims`)
	if err != nil {
		return fmt.Errorf("query refund claims: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          int64
			contributor string
		)
		if err := rows.Scan(&id, &contributor); err != nil {
			return fmt.Errorf("scan refund claim: %w", err)
		}
		into[escrow.ContributionKey{RemittanceID: uint64(id), Contributor: escrow.Identity(contributor)}] = true
	}
	return rows.Err()
}

func (t *Tx) scanBalances(into map[escrow.Identity]escrow.Amount) error {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT account, amount FROM balances`)
	if err != nil {
		return fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var account, text string
		if err := rows.Scan(&account, &text); err != nil {
			return fmt.Errorf("scan balance: %w", err)
		}
		amount, err := escrow.ParseAmount(text)
		if err != nil {
			return err
		}
		into[escrow.Identity(account)] = amount
	}
	return rows.Err()
}
