package engine

import (
	"context"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
)

// GetRemittance fetches a remittance by id.
func (e *Engine) GetRemittance(ctx context.Context, id uint64) (escrow.Remittance, error) {
	var r escrow.Remittance
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		r, err = tx.GetRemittance(id)
		return err
	})
	return r, err
}

// GetContribution fetches one contributor's cumulative amount (0 if none).
func (e *Engine) GetContribution(ctx context.Context, id uint64, contributor escrow.Identity) (escrow.Amount, error) {
	var amount escrow.Amount
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		amount, err = tx.Contribution(id, contributor)
		return err
	})
	return amount, err
}

// IsRefundClaimed fetches one contributor's refund-claimed flag.
func (e *Engine) IsRefundClaimed(ctx context.Context, id uint64, contributor escrow.Identity) (bool, error) {
	var claimed bool
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		claimed, err = tx.RefundClaimed(id, contributor)
		return err
	})
	return claimed, err
}

// PlatformFee fetches the current fee rate in basis points.
func (e *Engine) PlatformFee(ctx context.Context) (uint64, error) {
	var bps uint64
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		bps, err = tx.FeeBps()
		return err
	})
	return bps, err
}

// Balance fetches the purse balance of account.
func (e *Engine) Balance(ctx context.Context, account escrow.Identity) (escrow.Amount, error) {
	var bal escrow.Amount
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		bal, err = tx.Balance(account)
		return err
	})
	return bal, err
}

// Settings is the administrative configuration cell.
type Settings struct {
	Owner        escrow.Identity `json:"owner"`
	FeeCollector escrow.Identity `json:"fee_collector"`
	FeeBps       uint64          `json:"fee_bps"`
	MaxFeeBps    uint64          `json:"max_fee_bps"`
	Paused       bool            `json:"paused"`
}

// Settings fetches the administrative configuration.
func (e *Engine) Settings(ctx context.Context) (Settings, error) {
	s := Settings{MaxFeeBps: e.maxFeeBps}
	err := e.store.View(ctx, func(tx *store.Tx) error {
		var err error
		if s.Owner, err = tx.Owner(); err != nil {
			return err
		}
		if s.FeeCollector, err = tx.FeeCollector(); err != nil {
			return err
		}
		if s.FeeBps, err = tx.FeeBps(); err != nil {
			return err
		}
		s.Paused, err = tx.Paused()
		return err
	})
	return s, err
}
