package escrow

import "strconv"

// EventType names a state transition recorded in the event log.
type EventType string

const (
	EventRemittanceCreated   EventType = "RemittanceCreated"
	EventContributionMade    EventType = "ContributionMade"
	EventFundsReleased       EventType = "FundsReleased"
	EventRemittanceCancelled EventType = "RemittanceCancelled"
	EventRefundClaimed       EventType = "RefundClaimed"
	EventPlatformFeeUpdated  EventType = "PlatformFeeUpdated"
	EventFeeCollectorUpdated EventType = "FeeCollectorUpdated"
	EventContractPaused      EventType = "ContractPaused"
	EventContractUnpaused    EventType = "ContractUnpaused"
	EventAccountFunded       EventType = "AccountFunded"
)

// Keys of Event.Amounts.
const (
	AmountTarget           = "target"
	AmountContributed      = "amount"
	AmountTotal            = "total"
	AmountContributorTotal = "contributor_total"
	AmountPayout           = "payout"
	AmountFee              = "fee"
	AmountRefund           = "refund"
)

// Keys of Event.Data.
const (
	DataRecipient    = "recipient"
	DataPurpose      = "purpose"
	DataFeeCollector = "fee_collector"
	DataFeeBps       = "fee_bps"
	DataOldFeeBps    = "old_fee_bps"
	DataAccount      = "account"
)

// Flags carries the resulting resolution flags after a transition.
type Flags struct {
	IsReleased    bool `json:"is_released"`
	IsCancelled   bool `json:"is_cancelled"`
	RefundClaimed bool `json:"refund_claimed"`
}

// Event is one immutable fact appended per successful mutating operation.
// It carries enough data for an observer to rebuild remittance state
// without querying the ledger.
type Event struct {
	// Seq is the position in the log, assigned on append.
	Seq int64 `json:"seq"`

	// ID is the content-addressed identity (see EventID).
	ID string `json:"id"`

	// TxID correlates the event with the call that produced it.
	TxID string `json:"tx_id"`

	Type         EventType         `json:"type"`
	RemittanceID uint64            `json:"remittance_id,omitempty"`
	Actor        Identity          `json:"actor"`
	Amounts      map[string]Amount `json:"amounts,omitempty"`
	Flags        *Flags            `json:"flags,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Timestamp    int64             `json:"timestamp"`
}

// Amount returns the named amount, or 0 when absent.
func (e Event) Amount(key string) Amount {
	return e.Amounts[key]
}

// Datum returns the named data field, or "" when absent.
func (e Event) Datum(key string) string {
	return e.Data[key]
}

// FeeBps parses a basis-point data field. Returns false when absent or malformed.
func (e Event) FeeBps(key string) (uint64, bool) {
	v, err := strconv.ParseUint(e.Data[key], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func flagsOf(r Remittance, refundClaimed bool) *Flags {
	return &Flags{IsReleased: r.IsReleased, IsCancelled: r.IsCancelled, RefundClaimed: refundClaimed}
}

// NewRemittanceCreated records a freshly created remittance.
func NewRemittanceCreated(r Remittance) Event {
	return Event{
		Type:         EventRemittanceCreated,
		RemittanceID: r.ID,
		Actor:        r.Creator,
		Amounts:      map[string]Amount{AmountTarget: r.TargetAmount, AmountTotal: r.CurrentAmount},
		Flags:        flagsOf(r, false),
		Data:         map[string]string{DataRecipient: string(r.Recipient), DataPurpose: r.Purpose},
		Timestamp:    r.CreatedAt,
	}
}

// NewContributionMade records a contribution; r is the updated remittance.
func NewContributionMade(r Remittance, contributor Identity, amount, contributorTotal Amount, at int64) Event {
	return Event{
		Type:         EventContributionMade,
		RemittanceID: r.ID,
		Actor:        contributor,
		Amounts: map[string]Amount{
			AmountContributed:      amount,
			AmountTotal:            r.CurrentAmount,
			AmountContributorTotal: contributorTotal,
		},
		Flags:     flagsOf(r, false),
		Timestamp: at,
	}
}

// NewFundsReleased records a release; r is the released remittance.
func NewFundsReleased(r Remittance, payout, fee Amount, feeBps uint64, collector Identity, at int64) Event {
	return Event{
		Type:         EventFundsReleased,
		RemittanceID: r.ID,
		Actor:        r.Recipient,
		Amounts: map[string]Amount{
			AmountTotal:  r.CurrentAmount,
			AmountPayout: payout,
			AmountFee:    fee,
		},
		Flags: flagsOf(r, false),
		Data: map[string]string{
			DataFeeBps:       strconv.FormatUint(feeBps, 10),
			DataFeeCollector: string(collector),
		},
		Timestamp: at,
	}
}

// NewRemittanceCancelled records a cancellation; r is the cancelled remittance.
func NewRemittanceCancelled(r Remittance, at int64) Event {
	return Event{
		Type:         EventRemittanceCancelled,
		RemittanceID: r.ID,
		Actor:        r.Creator,
		Amounts:      map[string]Amount{AmountTotal: r.CurrentAmount},
		Flags:        flagsOf(r, false),
		Timestamp:    at,
	}
}

// NewRefundClaimed records one contributor's refund.
func NewRefundClaimed(r Remittance, contributor Identity, refund Amount, at int64) Event {
	return Event{
		Type:         EventRefundClaimed,
		RemittanceID: r.ID,
		Actor:        contributor,
		Amounts:      map[string]Amount{AmountRefund: refund},
		Flags:        flagsOf(r, true),
		Timestamp:    at,
	}
}

// NewPlatformFeeUpdated records a fee change.
func NewPlatformFeeUpdated(owner Identity, oldBps, newBps uint64, at int64) Event {
	return Event{
		Type:  EventPlatformFeeUpdated,
		Actor: owner,
		Data: map[string]string{
			DataOldFeeBps: strconv.FormatUint(oldBps, 10),
			DataFeeBps:    strconv.FormatUint(newBps, 10),
		},
		Timestamp: at,
	}
}

// NewFeeCollectorUpdated records a new fee collector.
func NewFeeCollectorUpdated(owner, collector Identity, at int64) Event {
	return Event{
		Type:      EventFeeCollectorUpdated,
		Actor:     owner,
		Data:      map[string]string{DataFeeCollector: string(collector)},
		Timestamp: at,
	}
}

// NewPauseChanged records a pause or unpause.
func NewPauseChanged(owner Identity, paused bool, at int64) Event {
	t := EventContractUnpaused
	if paused {
		t = EventContractPaused
	}
	return Event{Type: t, Actor: owner, Timestamp: at}
}

// NewAccountFunded records value entering a purse from outside the escrow.
func NewAccountFunded(owner, account Identity, amount Amount, at int64) Event {
	return Event{
		Type:      EventAccountFunded,
		Actor:     owner,
		Amounts:   map[string]Amount{AmountContributed: amount},
		Data:      map[string]string{DataAccount: string(account)},
		Timestamp: at,
	}
}
