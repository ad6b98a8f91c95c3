package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/remit/internal/escrow"
)

// EscrowPurse is the account holding all value contributed to open
// remittances. It is not a valid account hash, so no caller can act as it.
const EscrowPurse escrow.Identity = "escrow"

// Balance returns the purse balance of account (0 if never credited).
func (t *Tx) Balance(account escrow.Identity) (escrow.Amount, error) {
	if err := t.charge("get_balance"); err != nil {
		return 0, err
	}
	return t.balance(account)
}

// Credit adds amount to account from outside the ledger.
func (t *Tx) Credit(account escrow.Identity, amount escrow.Amount) error {
	if err := t.charge("credit"); err != nil {
		return err
	}
	bal, err := t.balance(account)
	if err != nil {
		return err
	}
	next, err := bal.Add(amount)
	if err != nil {
		return escrow.NewError(escrow.CodeArithmeticOverflow, "credit", 0, "balance of %s would overflow", account.Short())
	}
	return t.putBalance(account, next)
}

// Transfer moves amount from one purse to another.
// Fails with ErrTransferFailed if from holds less than amount or to would
// overflow. A zero transfer is a no-op.
func (t *Tx) Transfer(from, to escrow.Identity, amount escrow.Amount) error {
	if err := t.charge("transfer"); err != nil {
		return err
	}
	if amount.IsZero() || from == to {
		return nil
	}

	fromBal, err := t.balance(from)
	if err != nil {
		return err
	}
	remaining, err := fromBal.Sub(amount)
	if err != nil {
		return escrow.NewError(escrow.CodeTransferFailed, "transfer", 0,
			"%s holds %s, needs %s", from.Short(), fromBal, amount)
	}

	toBal, err := t.balance(to)
	if err != nil {
		return err
	}
	credited, err := toBal.Add(amount)
	if err != nil {
		return escrow.NewError(escrow.CodeTransferFailed, "transfer", 0,
			"balance of %s would overflow", to.Short())
	}

	if err := t.putBalance(from, remaining); err != nil {
		return err
	}
	return t.putBalance(to, credited)
}

func (t *Tx) balance(account escrow.Identity) (escrow.Amount, error) {
	var text string
	err := t.tx.QueryRowContext(t.ctx, `SELECT amount FROM balances WHERE account = ?`, string(account)).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance %s: %w", account.Short(), err)
	}
	return escrow.ParseAmount(text)
}

func (t *Tx) putBalance(account escrow.Identity, amount escrow.Amount) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO balances (account, amount) VALUES (?, ?)
		ON CONFLICT(account) DO UPDATE SET amount = excluded.amount
	`, string(account), amount.String())
	if err != nil {
		return fmt.Errorf("put balance %s: %w", account.Short(), err)
	}
	return nil
}
