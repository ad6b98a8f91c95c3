package store

import (
	"fmt"

	"github.com/roach88/remit/internal/escrow"
)

// AppendEvent writes ev to the event log inside the transaction and sets
// ev.Seq. The event becomes visible only if the transaction commits.
//
// ev.ID must already be set (see escrow.EventID). Appending is not metered:
// the event log is output, not ledger state.
func (t *Tx) AppendEvent(ev *escrow.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("append event %s: missing id", ev.Type)
	}

	amountsJSON, err := marshalAmounts(ev.Amounts)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	dataJSON, err := marshalData(ev.Data)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	flagsJSON, err := marshalFlags(ev.Flags)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	var remittanceID any
	if ev.RemittanceID != 0 {
		remittanceID = int64(ev.RemittanceID)
	}

	res, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO events
		(id, tx_id, type, remittance_id, actor, amounts, flags, data, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID,
		ev.TxID,
		string(ev.Type),
		remittanceID,
		string(ev.Actor),
		amountsJSON,
		flagsJSON,
		dataJSON,
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.Type, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("append event %s: %w", ev.Type, err)
	}
	ev.Seq = seq
	return nil
}
