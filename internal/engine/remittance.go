package engine

import (
	"context"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
)

// CreateRemittance opens a new remittance toward target for recipient and
// returns its id.
func (e *Engine) CreateRemittance(ctx context.Context, caller, recipient escrow.Identity, target escrow.Amount, purpose string) (uint64, error) {
	r := e.createRemittance(ctx, caller, recipient, target, purpose)
	return r.RemittanceID, r.Err
}

// Contribute moves amount from the caller's purse into escrow and credits
// it to the caller's contribution record. Over-funding is accepted.
func (e *Engine) Contribute(ctx context.Context, caller escrow.Identity, id uint64, amount escrow.Amount) error {
	return e.contribute(ctx, caller, id, amount).Err
}

// ReleaseFunds pays an open, funded remittance out to its recipient minus
// the platform fee. Only the recipient may call it.
func (e *Engine) ReleaseFunds(ctx context.Context, caller escrow.Identity, id uint64) error {
	return e.releaseFunds(ctx, caller, id).Err
}

// CancelRemittance closes an open remittance for refunds. Only the creator
// may call it. No funds move.
func (e *Engine) CancelRemittance(ctx context.Context, caller escrow.Identity, id uint64) error {
	return e.cancelRemittance(ctx, caller, id).Err
}

// ClaimRefund returns the caller's recorded contribution to a cancelled
// remittance. Each contributor can claim once.
func (e *Engine) ClaimRefund(ctx context.Context, caller escrow.Identity, id uint64) error {
	return e.claimRefund(ctx, caller, id).Err
}

func (e *Engine) createRemittance(ctx context.Context, caller, recipient escrow.Identity, target escrow.Amount, purpose string) Receipt {
	return e.apply(ctx, OpCreateRemittance, caller, 0, func(o *opContext) error {
		if err := o.requireActive(); err != nil {
			return err
		}
		if !recipient.Valid() {
			return o.fail(escrow.CodeInvalidRecipient, "recipient %q is not a well-formed identity", string(recipient))
		}
		if target.IsZero() {
			return o.fail(escrow.CodeInvalidAmount, "target amount must be greater than zero")
		}
		purpose = escrow.NormalizePurpose(purpose)
		if err := escrow.ValidatePurpose(purpose); err != nil {
			return o.fail(escrow.CodeInvalidPurpose, "purpose must be 1-%d bytes and not blank, got %d bytes", escrow.MaxPurposeLength, len(purpose))
		}

		id, err := o.tx.NextRemittanceID()
		if err != nil {
			return err
		}
		o.remittanceID = id

		r := escrow.NewRemittance(id, o.caller, recipient, target, purpose, o.now)
		if err := o.tx.PutRemittance(r); err != nil {
			return err
		}
		return o.emit(escrow.NewRemittanceCreated(r))
	})
}

func (e *Engine) contribute(ctx context.Context, caller escrow.Identity, id uint64, amount escrow.Amount) Receipt {
	return e.apply(ctx, OpContribute, caller, id, func(o *opContext) error {
		if err := o.requireActive(); err != nil {
			return err
		}
		if amount.IsZero() {
			return o.fail(escrow.CodeInvalidAmount, "contribution must be greater than zero")
		}

		r, err := o.tx.GetRemittance(id)
		if err != nil {
			return err
		}
		if !r.IsActive() {
			return o.fail(escrow.CodeRemittanceClosed, "remittance is %s", r.Status())
		}

		prior, err := o.tx.Contribution(id, o.caller)
		if err != nil {
			return err
		}
		total, err := r.CurrentAmount.Add(amount)
		if err != nil {
			return o.fail(escrow.CodeArithmeticOverflow, "current amount %s + %s overflows", r.CurrentAmount, amount)
		}
		mine, err := prior.Add(amount)
		if err != nil {
			return o.fail(escrow.CodeArithmeticOverflow, "contribution %s + %s overflows", prior, amount)
		}

		if err := o.tx.Transfer(o.caller, store.EscrowPurse, amount); err != nil {
			return err
		}
		if err := o.tx.PutContribution(id, o.caller, mine); err != nil {
			return err
		}
		r.CurrentAmount = total
		if err := o.tx.PutRemittance(r); err != nil {
			return err
		}
		return o.emit(escrow.NewContributionMade(r, o.caller, amount, mine, o.now))
	})
}

func (e *Engine) releaseFunds(ctx context.Context, caller escrow.Identity, id uint64) Receipt {
	return e.apply(ctx, OpReleaseFunds, caller, id, func(o *opContext) error {
		if err := o.requireActive(); err != nil {
			return err
		}
		r, err := o.tx.GetRemittance(id)
		if err != nil {
			return err
		}
		if o.caller != r.Recipient {
			return o.fail(escrow.CodeUnauthorized, "only the recipient may release funds")
		}
		if !r.IsActive() {
			return o.fail(escrow.CodeRemittanceClosed, "remittance is %s", r.Status())
		}
		if !r.IsTargetMet() {
			return o.fail(escrow.CodeTargetNotMet, "have %s of %s", r.CurrentAmount, r.TargetAmount)
		}

		feeBps, err := o.tx.FeeBps()
		if err != nil {
			return err
		}
		collector, err := o.tx.FeeCollector()
		if err != nil {
			return err
		}
		payout, fee, err := escrow.SplitPayout(r.CurrentAmount, feeBps)
		if err != nil {
			return o.fail(escrow.CodeOf(err), "split %s at %d bps: %v", r.CurrentAmount, feeBps, err)
		}

		r.IsReleased = true
		if err := o.tx.PutRemittance(r); err != nil {
			return err
		}
		if err := o.tx.Transfer(store.EscrowPurse, r.Recipient, payout); err != nil {
			return err
		}
		if err := o.tx.Transfer(store.EscrowPurse, collector, fee); err != nil {
			return err
		}
		return o.emit(escrow.NewFundsReleased(r, payout, fee, feeBps, collector, o.now))
	})
}

func (e *Engine) cancelRemittance(ctx context.Context, caller escrow.Identity, id uint64) Receipt {
	return e.apply(ctx, OpCancelRemittance, caller, id, func(o *opContext) error {
		if err := o.requireActive(); err != nil {
			return err
		}
		r, err := o.tx.GetRemittance(id)
		if err != nil {
			return err
		}
		if o.caller != r.Creator {
			return o.fail(escrow.CodeUnauthorized, "only the creator may cancel")
		}
		if !r.IsActive() {
			return o.fail(escrow.CodeRemittanceClosed, "remittance is %s", r.Status())
		}

		r.IsCancelled = true
		if err := o.tx.PutRemittance(r); err != nil {
			return err
		}
		return o.emit(escrow.NewRemittanceCancelled(r, o.now))
	})
}

func (e *Engine) claimRefund(ctx context.Context, caller escrow.Identity, id uint64) Receipt {
	return e.apply(ctx, OpClaimRefund, caller, id, func(o *opContext) error {
		if err := o.requireActive(); err != nil {
			return err
		}
		r, err := o.tx.GetRemittance(id)
		if err != nil {
			return err
		}
		if !r.IsCancelled {
			return o.fail(escrow.CodeRemittanceNotCancelled, "remittance is %s", r.Status())
		}

		amount, err := o.tx.Contribution(id, o.caller)
		if err != nil {
			return err
		}
		if amount.IsZero() {
			return o.fail(escrow.CodeNoContribution, "%s never contributed", o.caller.Short())
		}
		claimed, err := o.tx.RefundClaimed(id, o.caller)
		if err != nil {
			return err
		}
		if claimed {
			return o.fail(escrow.CodeRefundAlreadyClaimed, "%s already claimed %s", o.caller.Short(), amount)
		}

		if err := o.tx.MarkRefundClaimed(id, o.caller, o.now); err != nil {
			return err
		}
		if err := o.tx.Transfer(store.EscrowPurse, o.caller, amount); err != nil {
			return err
		}
		return o.emit(escrow.NewRefundClaimed(r, o.caller, amount, o.now))
	})
}
