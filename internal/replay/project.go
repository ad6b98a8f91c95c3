package replay

import (
	"fmt"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
)

// Remittance is the observer's view of one remittance, built from events.
type Remittance struct {
	escrow.Remittance

	Contributions map[escrow.Identity]escrow.Amount
	Refunds       map[escrow.Identity]escrow.Amount

	// Set by FundsReleased.
	Payout escrow.Amount
	Fee    escrow.Amount
}

// State is everything an observer can know from the event log alone.
type State struct {
	Remittances map[uint64]*Remittance

	// Balances are purse balances implied by value-moving events.
	Balances map[escrow.Identity]escrow.Amount

	// FeeBps and FeeCollector are known once an update event has been
	// seen; genesis values are not in the log.
	FeeBps       *uint64
	FeeCollector escrow.Identity
	Paused       bool

	LastSeq int64
}

// Violation is a broken ledger rule found while replaying or auditing.
type Violation struct {
	Seq          int64  `json:"seq,omitempty"`
	RemittanceID uint64 `json:"remittance_id,omitempty"`
	Rule         string `json:"rule"`
	Detail       string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("seq=%d remittance=%d %s: %s", v.Seq, v.RemittanceID, v.Rule, v.Detail)
}

// Rules checked by Project and Verify.
const (
	RuleSequence            = "sequence"
	RuleEventID             = "event_id"
	RuleUnknownRemittance   = "unknown_remittance"
	RuleDuplicateRemittance = "duplicate_remittance"
	RuleClosedRemittance    = "closed_remittance"
	RuleContributionSum     = "contribution_sum"
	RuleReleaseSplit        = "release_split"
	RuleReleaseFee          = "release_fee"
	RuleTargetNotMet        = "target_not_met"
	RuleRefundOnce          = "refund_once"
	RuleRefundAmount        = "refund_amount"
	RuleFlags               = "flags"
	RuleBalance             = "balance"
	RuleStoreMismatch       = "store_mismatch"
)

type projector struct {
	state      State
	violations []Violation
}

func (p *projector) violate(ev escrow.Event, rule, format string, args ...any) {
	p.violations = append(p.violations, Violation{
		Seq:          ev.Seq,
		RemittanceID: ev.RemittanceID,
		Rule:         rule,
		Detail:       fmt.Sprintf(format, args...),
	})
}

// Project rebuilds state from events in log order, using only the data the
// events carry. It never fails: inconsistencies are reported as violations
// and the offending event is skipped.
func Project(events []escrow.Event) (State, []Violation) {
	p := &projector{state: State{
		Remittances: make(map[uint64]*Remittance),
		Balances:    make(map[escrow.Identity]escrow.Amount),
	}}

	for _, ev := range events {
		if ev.Seq <= p.state.LastSeq {
			p.violate(ev, RuleSequence, "seq %d does not follow %d", ev.Seq, p.state.LastSeq)
		}
		p.state.LastSeq = max(p.state.LastSeq, ev.Seq)

		if id, err := escrow.EventID(ev); err != nil || id != ev.ID {
			p.violate(ev, RuleEventID, "stored id %s does not match content", ev.ID)
		}

		p.apply(ev)
	}

	for id, r := range p.state.Remittances {
		var sum escrow.Amount
		for _, amt := range r.Contributions {
			sum += amt
		}
		if sum != r.CurrentAmount {
			p.violations = append(p.violations, Violation{
				RemittanceID: id,
				Rule:         RuleContributionSum,
				Detail:       fmt.Sprintf("contributions sum to %s, current amount is %s", sum, r.CurrentAmount),
			})
		}
	}

	return p.state, p.violations
}

func (p *projector) apply(ev escrow.Event) {
	switch ev.Type {
	case escrow.EventRemittanceCreated:
		p.created(ev)
	case escrow.EventContributionMade:
		p.contributed(ev)
	case escrow.EventFundsReleased:
		p.released(ev)
	case escrow.EventRemittanceCancelled:
		p.cancelled(ev)
	case escrow.EventRefundClaimed:
		p.refunded(ev)
	case escrow.EventPlatformFeeUpdated:
		if bps, ok := ev.FeeBps(escrow.DataFeeBps); ok {
			p.state.FeeBps = &bps
		}
	case escrow.EventFeeCollectorUpdated:
		p.state.FeeCollector = escrow.Identity(ev.Datum(escrow.DataFeeCollector))
	case escrow.EventContractPaused:
		p.state.Paused = true
	case escrow.EventContractUnpaused:
		p.state.Paused = false
	case escrow.EventAccountFunded:
		p.credit(ev, escrow.Identity(ev.Datum(escrow.DataAccount)), ev.Amount(escrow.AmountContributed))
	}
}

func (p *projector) created(ev escrow.Event) {
	if _, exists := p.state.Remittances[ev.RemittanceID]; exists {
		p.violate(ev, RuleDuplicateRemittance, "remittance created twice")
		return
	}
	r := escrow.NewRemittance(
		ev.RemittanceID,
		ev.Actor,
		escrow.Identity(ev.Datum(escrow.DataRecipient)),
		ev.Amount(escrow.AmountTarget),
		ev.Datum(escrow.DataPurpose),
		ev.Timestamp,
	)
	p.state.Remittances[r.ID] = &Remittance{
		Remittance:    r,
		Contributions: make(map[escrow.Identity]escrow.Amount),
		Refunds:       make(map[escrow.Identity]escrow.Amount),
	}
}

// open returns the remittance an event concerns, reporting a violation if
// it is unknown or, when requireActive is set, already resolved.
func (p *projector) open(ev escrow.Event, requireActive bool) *Remittance {
	r, ok := p.state.Remittances[ev.RemittanceID]
	if !ok {
		p.violate(ev, RuleUnknownRemittance, "%s for a remittance never created", ev.Type)
		return nil
	}
	if requireActive && !r.IsActive() {
		p.violate(ev, RuleClosedRemittance, "%s on a %s remittance", ev.Type, r.Status())
		return nil
	}
	return r
}

func (p *projector) contributed(ev escrow.Event) {
	r := p.open(ev, true)
	if r == nil {
		return
	}
	amount := ev.Amount(escrow.AmountContributed)

	mine := r.Contributions[ev.Actor] + amount
	if got := ev.Amount(escrow.AmountContributorTotal); got != mine {
		p.violate(ev, RuleContributionSum, "contributor total %s, expected %s", got, mine)
	}
	total := r.CurrentAmount + amount
	if got := ev.Amount(escrow.AmountTotal); got != total {
		p.violate(ev, RuleContributionSum, "new total %s, expected %s", got, total)
	}

	r.Contributions[ev.Actor] = mine
	r.CurrentAmount = total
	p.move(ev, ev.Actor, store.EscrowPurse, amount)
	p.checkFlags(ev, r, false)
}

func (p *projector) released(ev escrow.Event) {
	r := p.open(ev, true)
	if r == nil {
		return
	}
	total := ev.Amount(escrow.AmountTotal)
	payout := ev.Amount(escrow.AmountPayout)
	fee := ev.Amount(escrow.AmountFee)

	if total != r.CurrentAmount {
		p.violate(ev, RuleReleaseSplit, "released %s but %s was contributed", total, r.CurrentAmount)
	}
	if payout+fee != total || payout > total {
		p.violate(ev, RuleReleaseSplit, "payout %s + fee %s != %s", payout, fee, total)
	}
	if bps, ok := ev.FeeBps(escrow.DataFeeBps); ok {
		if want, err := escrow.PlatformFee(total, bps); err != nil || want != fee {
			p.violate(ev, RuleReleaseFee, "fee %s at %d bps, expected %s", fee, bps, want)
		}
	} else {
		p.violate(ev, RuleReleaseFee, "release without fee rate")
	}
	if total < r.TargetAmount {
		p.violate(ev, RuleTargetNotMet, "released %s of target %s", total, r.TargetAmount)
	}

	r.IsReleased = true
	r.Payout = payout
	r.Fee = fee
	p.move(ev, store.EscrowPurse, r.Recipient, payout)
	p.move(ev, store.EscrowPurse, escrow.Identity(ev.Datum(escrow.DataFeeCollector)), fee)
	p.checkFlags(ev, r, false)
}

func (p *projector) cancelled(ev escrow.Event) {
	r := p.open(ev, true)
	if r == nil {
		return
	}
	if got := ev.Amount(escrow.AmountTotal); got != r.CurrentAmount {
		p.violate(ev, RuleContributionSum, "cancelled with %s, expected %s", got, r.CurrentAmount)
	}
	r.IsCancelled = true
	p.checkFlags(ev, r, false)
}

func (p *projector) refunded(ev escrow.Event) {
	r := p.open(ev, false)
	if r == nil {
		return
	}
	if !r.IsCancelled {
		p.violate(ev, RuleClosedRemittance, "refund from a %s remittance", r.Status())
		return
	}
	if _, done := r.Refunds[ev.Actor]; done {
		p.violate(ev, RuleRefundOnce, "%s refunded twice", ev.Actor.Short())
		return
	}
	refund := ev.Amount(escrow.AmountRefund)
	if want := r.Contributions[ev.Actor]; refund != want || refund == 0 {
		p.violate(ev, RuleRefundAmount, "refund %s, contribution %s", refund, want)
	}
	r.Refunds[ev.Actor] = refund
	p.move(ev, store.EscrowPurse, ev.Actor, refund)
	p.checkFlags(ev, r, true)
}

func (p *projector) checkFlags(ev escrow.Event, r *Remittance, refundClaimed bool) {
	f := ev.Flags
	if f == nil || f.IsReleased != r.IsReleased || f.IsCancelled != r.IsCancelled || f.RefundClaimed != refundClaimed {
		p.violate(ev, RuleFlags, "event flags %+v disagree with projected state", f)
	}
}

func (p *projector) credit(ev escrow.Event, to escrow.Identity, amount escrow.Amount) {
	next, err := p.state.Balances[to].Add(amount)
	if err != nil {
		p.violate(ev, RuleBalance, "balance of %s overflows", to.Short())
		return
	}
	p.state.Balances[to] = next
}

func (p *projector) move(ev escrow.Event, from, to escrow.Identity, amount escrow.Amount) {
	if amount == 0 {
		return
	}
	left, err := p.state.Balances[from].Sub(amount)
	if err != nil {
		p.violate(ev, RuleBalance, "%s pays %s but holds %s", from.Short(), amount, p.state.Balances[from])
		return
	}
	p.state.Balances[from] = left
	p.credit(ev, to, amount)
}
