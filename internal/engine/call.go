package engine

import (
	"context"
	"fmt"

	"github.com/roach88/remit/internal/escrow"
)

// Op names a mutating entry point.
type Op string

const (
	OpCreateRemittance Op = "create_remittance"
	OpContribute       Op = "contribute"
	OpReleaseFunds     Op = "release_funds"
	OpCancelRemittance Op = "cancel_remittance"
	OpClaimRefund      Op = "claim_refund"

	OpSetPlatformFee  Op = "set_platform_fee"
	OpSetFeeCollector Op = "set_fee_collector"
	OpPause           Op = "pause"
	OpUnpause         Op = "unpause"
	OpFund            Op = "fund"
)

// Ops lists every mutating entry point.
var Ops = []Op{
	OpCreateRemittance, OpContribute, OpReleaseFunds, OpCancelRemittance, OpClaimRefund,
	OpSetPlatformFee, OpSetFeeCollector, OpPause, OpUnpause, OpFund,
}

// ParseOp validates an operation name.
func ParseOp(s string) (Op, error) {
	for _, op := range Ops {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Call is one signed request from an external caller. Only the fields the
// operation uses are read:
//
//	create_remittance  Recipient, Amount (target), Purpose
//	contribute         RemittanceID, Amount
//	release_funds      RemittanceID
//	cancel_remittance  RemittanceID
//	claim_refund       RemittanceID
//	set_platform_fee   FeeBps
//	set_fee_collector  Account
//	pause, unpause     -
//	fund               Account, Amount
type Call struct {
	Op           Op              `json:"op" yaml:"op"`
	Caller       escrow.Identity `json:"caller" yaml:"caller"`
	RemittanceID uint64          `json:"remittance_id,omitempty" yaml:"remittance_id,omitempty"`
	Recipient    escrow.Identity `json:"recipient,omitempty" yaml:"recipient,omitempty"`
	Amount       escrow.Amount   `json:"amount,omitempty" yaml:"amount,omitempty"`
	Purpose      string          `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	FeeBps       uint64          `json:"fee_bps,omitempty" yaml:"fee_bps,omitempty"`
	Account      escrow.Identity `json:"account,omitempty" yaml:"account,omitempty"`
}

// Receipt is the outcome of one call.
type Receipt struct {
	TxID   string
	Op     Op
	Caller escrow.Identity

	// RemittanceID is the remittance the call concerned; for
	// create_remittance it is the newly allocated id.
	RemittanceID uint64

	// GasUsed is the number of ledger accesses charged.
	GasUsed int

	Timestamp int64

	// Events holds the committed events, empty when Err is set.
	Events []escrow.Event

	Err error
}

// OK reports whether the call succeeded.
func (r Receipt) OK() bool {
	return r.Err == nil
}

// Code returns the escrow error code, or "" on success or infrastructure failure.
func (r Receipt) Code() escrow.ErrorCode {
	return escrow.CodeOf(r.Err)
}

// Exec dispatches a call to its operation.
func (e *Engine) Exec(ctx context.Context, c Call) Receipt {
	switch c.Op {
	case OpCreateRemittance:
		return e.createRemittance(ctx, c.Caller, c.Recipient, c.Amount, c.Purpose)
	case OpContribute:
		return e.contribute(ctx, c.Caller, c.RemittanceID, c.Amount)
	case OpReleaseFunds:
		return e.releaseFunds(ctx, c.Caller, c.RemittanceID)
	case OpCancelRemittance:
		return e.cancelRemittance(ctx, c.Caller, c.RemittanceID)
	case OpClaimRefund:
		return e.claimRefund(ctx, c.Caller, c.RemittanceID)
	case OpSetPlatformFee:
		return e.setPlatformFee(ctx, c.Caller, c.FeeBps)
	case OpSetFeeCollector:
		return e.setFeeCollector(ctx, c.Caller, c.Account)
	case OpPause:
		return e.setPaused(ctx, c.Caller, true)
	case OpUnpause:
		return e.setPaused(ctx, c.Caller, false)
	case OpFund:
		return e.fund(ctx, c.Caller, c.Account, c.Amount)
	default:
		return Receipt{Op: c.Op, Caller: c.Caller, Err: fmt.Errorf("exec: unknown operation %q", c.Op)}
	}
}
