package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/remit/internal/escrow"
)

// Meter is charged once per ledger access made through a Tx.
// A non-nil error from Charge aborts the access and is returned to the caller.
type Meter interface {
	Charge(access string) error
}

// Tx is a ledger transaction. Every access is a point read or write keyed
// by remittance id or (remittance id, contributor); there are no scans, so
// the cost of an operation does not grow with the number of remittances or
// contributors.
type Tx struct {
	ctx   context.Context
	tx    *sql.Tx
	meter Meter
}

func (t *Tx) charge(access string) error {
	if t.meter == nil {
		return nil
	}
	return t.meter.Charge(access)
}

// NextRemittanceID increments the remittance counter and returns the new id.
func (t *Tx) NextRemittanceID() (uint64, error) {
	if err := t.charge("next_remittance_id"); err != nil {
		return 0, err
	}
	last, err := t.uintSetting(keyCounter)
	if err != nil {
		return 0, err
	}
	next := last + 1
	if next == 0 || next > maxSQLiteID {
		return 0, escrow.NewError(escrow.CodeArithmeticOverflow, "next_remittance_id", 0, "remittance counter exhausted")
	}
	if err := t.putSetting(keyCounter, fmt.Sprint(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// RemittanceCounter returns how many remittance ids have been issued since genesis.
func (t *Tx) RemittanceCounter() (uint64, error) {
	if err := t.charge("remittance_counter"); err != nil {
		return 0, err
	}
	return t.uintSetting(keyCounter)
}

// GetRemittance loads a remittance by id.
// Returns ErrRemittanceNotFound if the id was never issued.
func (t *Tx) GetRemittance(id uint64) (escrow.Remittance, error) {
	if err := t.charge("get_remittance"); err != nil {
		return escrow.Remittance{}, err
	}
	if id == 0 || id > maxSQLiteID {
		return escrow.Remittance{}, escrow.NewError(escrow.CodeRemittanceNotFound, "get_remittance", id, "no remittance with id %d", id)
	}

	row := t.tx.QueryRowContext(t.ctx, `
		SELECT id, creator, recipient, target_amount, current_amount, purpose, created_at, is_released, is_cancelled
		FROM remittances
		WHERE id = ?
	`, int64(id))

	r, err := scanRemittance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return escrow.Remittance{}, escrow.NewError(escrow.CodeRemittanceNotFound, "get_remittance", id, "no remittance with id %d", id)
	}
	if err != nil {
		return escrow.Remittance{}, fmt.Errorf("get remittance %d: %w", id, err)
	}
	return r, nil
}

// PutRemittance inserts or replaces a remittance record.
func (t *Tx) PutRemittance(r escrow.Remittance) error {
	if err := t.charge("put_remittance"); err != nil {
		return err
	}
	if r.ID == 0 || r.ID > maxSQLiteID {
		return fmt.Errorf("put remittance: id %d out of range", r.ID)
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO remittances
		(id, creator, recipient, target_amount, current_amount, purpose, created_at, is_released, is_cancelled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			current_amount = excluded.current_amount,
			is_released    = excluded.is_released,
			is_cancelled   = excluded.is_cancelled
	`,
		int64(r.ID),
		string(r.Creator),
		string(r.Recipient),
		r.TargetAmount.String(),
		r.CurrentAmount.String(),
		r.Purpose,
		r.CreatedAt,
		r.IsReleased,
		r.IsCancelled,
	)
	if err != nil {
		return fmt.Errorf("put remittance %d: %w", r.ID, err)
	}
	return nil
}

// Contribution returns the cumulative amount a contributor has put into a
// remittance, or 0 if they never contributed.
func (t *Tx) Contribution(id uint64, contributor escrow.Identity) (escrow.Amount, error) {
	if err := t.charge("get_contribution"); err != nil {
		return 0, err
	}
	if id == 0 || id > maxSQLiteID {
		return 0, nil
	}
	var text string
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT amount FROM contributions WHERE remittance_id = ? AND contributor = ?
	`, int64(id), string(contributor)).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get contribution %d/%s: %w", id, contributor.Short(), err)
	}
	return escrow.ParseAmount(text)
}

// PutContribution sets the cumulative contribution of contributor.
func (t *Tx) PutContribution(id uint64, contributor escrow.Identity, amount escrow.Amount) error {
	if err := t.charge("put_contribution"); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO contributions (remittance_id, contributor, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(remittance_id, contributor) DO UPDATE SET amount = excluded.amount
	`, int64(id), string(contributor), amount.String())
	if err != nil {
		return fmt.Errorf("put contribution %d/%s: %w", id, contributor.Short(), err)
	}
	return nil
}

// RefundClaimed reports whether contributor has claimed their refund.
func (t *Tx) RefundClaimed(id uint64, contributor escrow.Identity) (bool, error) {
	if err := t.charge("get_refund_claim"); err != nil {
		return false, err
	}
	if id == 0 || id > maxSQLiteID {
		return false, nil
	}
	var one int
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT 1 FROM refund_claims WHERE remittance_id = ? AND contributor = ?
	`, int64(id), string(contributor)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get refund claim %d/%s: %w", id, contributor.Short(), err)
	}
	return true, nil
}

// MarkRefundClaimed records a refund claim. A claim is permanent; marking
// the same pair twice is an error.
func (t *Tx) MarkRefundClaimed(id uint64, contributor escrow.Identity, at int64) error {
	if err := t.charge("put_refund_claim"); err != nil {
		return err
	}
	res, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO refund_claims (remittance_id, contributor, claimed_at)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, int64(id), string(contributor), at)
	if err != nil {
		return fmt.Errorf("put refund claim %d/%s: %w", id, contributor.Short(), err)
	}
	return claimInserted(res, id, contributor)
}

// claimInserted reports a claim that hit an existing row as
// RefundAlreadyClaimed.
func claimInserted(res sql.Result, id uint64, contributor escrow.Identity) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put refund claim %d/%s: rows affected: %w", id, contributor.Short(), err)
	}
	if n == 0 {
		return escrow.NewError(escrow.CodeRefundAlreadyClaimed, "put_refund_claim", id, "refund already claimed by %s", contributor.Short())
	}
	return nil
}

// maxSQLiteID is the largest id an INTEGER PRIMARY KEY can hold.
const maxSQLiteID = 1<<63 - 1

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRemittance(row rowScanner) (escrow.Remittance, error) {
	var (
		r                     escrow.Remittance
		id                    int64
		creator, recipient    string
		targetText, curText   string
		isReleased, cancelled bool
	)
	if err := row.Scan(&id, &creator, &recipient, &targetText, &curText, &r.Purpose, &r.CreatedAt, &isReleased, &cancelled); err != nil {
		return r, err
	}
	target, err := escrow.ParseAmount(targetText)
	if err != nil {
		return r, fmt.Errorf("scan remittance %d: %w", id, err)
	}
	current, err := escrow.ParseAmount(curText)
	if err != nil {
		return r, fmt.Errorf("scan remittance %d: %w", id, err)
	}
	r.ID = uint64(id)
	r.Creator = escrow.Identity(creator)
	r.Recipient = escrow.Identity(recipient)
	r.TargetAmount = target
	r.CurrentAmount = current
	r.IsReleased = isReleased
	r.IsCancelled = cancelled
	return r, nil
}
