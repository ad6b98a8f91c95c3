package engine

import (
	"context"

	"github.com/roach88/remit/internal/escrow"
)

// SetPlatformFee changes the fee rate applied by later releases.
// Owner only; FEE_TOO_HIGH above the configured ceiling.
func (e *Engine) SetPlatformFee(ctx context.Context, caller escrow.Identity, feeBps uint64) error {
	return e.setPlatformFee(ctx, caller, feeBps).Err
}

// SetFeeCollector changes the identity that receives platform fees. Owner only.
func (e *Engine) SetFeeCollector(ctx context.Context, caller, collector escrow.Identity) error {
	return e.setFeeCollector(ctx, caller, collector).Err
}

// Pause suspends the five remittance operations. Owner only.
func (e *Engine) Pause(ctx context.Context, caller escrow.Identity) error {
	return e.setPaused(ctx, caller, true).Err
}

// Unpause resumes the remittance operations. Owner only.
func (e *Engine) Unpause(ctx context.Context, caller escrow.Identity) error {
	return e.setPaused(ctx, caller, false).Err
}

// Fund credits account's purse with value entering from outside the ledger.
// Owner only.
func (e *Engine) Fund(ctx context.Context, caller, account escrow.Identity, amount escrow.Amount) error {
	return e.fund(ctx, caller, account, amount).Err
}

func (e *Engine) setPlatformFee(ctx context.Context, caller escrow.Identity, feeBps uint64) Receipt {
	return e.apply(ctx, OpSetPlatformFee, caller, 0, func(o *opContext) error {
		if err := o.requireOwner(); err != nil {
			return err
		}
		if feeBps > e.maxFeeBps {
			return o.fail(escrow.CodeFeeTooHigh, "fee %d bps exceeds maximum %d", feeBps, e.maxFeeBps)
		}
		old, err := o.tx.FeeBps()
		if err != nil {
			return err
		}
		if err := o.tx.SetFeeBps(feeBps); err != nil {
			return err
		}
		return o.emit(escrow.NewPlatformFeeUpdated(o.caller, old, feeBps, o.now))
	})
}

func (e *Engine) setFeeCollector(ctx context.Context, caller, collector escrow.Identity) Receipt {
	return e.apply(ctx, OpSetFeeCollector, caller, 0, func(o *opContext) error {
		if err := o.requireOwner(); err != nil {
			return err
		}
		if !collector.Valid() {
			return o.fail(escrow.CodeInvalidIdentity, "fee collector %q is not a well-formed identity", string(collector))
		}
		if err := o.tx.SetFeeCollector(collector); err != nil {
			return err
		}
		return o.emit(escrow.NewFeeCollectorUpdated(o.caller, collector, o.now))
	})
}

func (e *Engine) setPaused(ctx context.Context, caller escrow.Identity, paused bool) Receipt {
	op := OpUnpause
	if paused {
		op = OpPause
	}
	return e.apply(ctx, op, caller, 0, func(o *opContext) error {
		if err := o.requireOwner(); err != nil {
			return err
		}
		if err := o.tx.SetPaused(paused); err != nil {
			return err
		}
		return o.emit(escrow.NewPauseChanged(o.caller, paused, o.now))
	})
}

func (e *Engine) fund(ctx context.Context, caller, account escrow.Identity, amount escrow.Amount) Receipt {
	return e.apply(ctx, OpFund, caller, 0, func(o *opContext) error {
		if err := o.requireOwner(); err != nil {
			return err
		}
		if !account.Valid() {
			return o.fail(escrow.CodeInvalidIdentity, "account %q is not a well-formed identity", string(account))
		}
		if amount.IsZero() {
			return o.fail(escrow.CodeInvalidAmount, "fund amount must be greater than zero")
		}
		if err := o.tx.Credit(account, amount); err != nil {
			return err
		}
		return o.emit(escrow.NewAccountFunded(o.caller, account, amount, o.now))
	})
}
