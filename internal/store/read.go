package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/remit/internal/escrow"
)

const eventColumns = `seq, id, tx_id, type, remittance_id, actor, amounts, flags, data, timestamp`

// ReadEvents returns up to limit events with seq > afterSeq, in log order.
// limit <= 0 means no limit.
//
// Returns an empty slice (not nil) if no events match.
func (s *Store) ReadEvents(ctx context.Context, afterSeq int64, limit int) ([]escrow.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return collectEvents(rows)
}

// ReadRemittanceEvents returns every event concerning one remittance, in log order.
func (s *Store) ReadRemittanceEvents(ctx context.Context, remittanceID uint64) ([]escrow.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE remittance_id = ?
		ORDER BY seq ASC
	`, int64(remittanceID))
	if err != nil {
		return nil, fmt.Errorf("query remittance events: %w", err)
	}
	return collectEvents(rows)
}

// ReadTxEvents returns the events emitted by one call, in log order.
func (s *Store) ReadTxEvents(ctx context.Context, txID string) ([]escrow.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE tx_id = ?
		ORDER BY seq ASC
	`, txID)
	if err != nil {
		return nil, fmt.Errorf("query tx events: %w", err)
	}
	return collectEvents(rows)
}

// LastSeq returns the seq of the newest event, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func collectEvents(rows *sql.Rows) ([]escrow.Event, error) {
	defer rows.Close()

	events := []escrow.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row rowScanner) (escrow.Event, error) {
	var (
		ev           escrow.Event
		typ, actor   string
		remittanceID sql.NullInt64
		amountsJSON  string
		flagsJSON    sql.NullString
		dataJSON     string
	)
	err := row.Scan(&ev.Seq, &ev.ID, &ev.TxID, &typ, &remittanceID, &actor, &amountsJSON, &flagsJSON, &dataJSON, &ev.Timestamp)
	if err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}

	ev.Type = escrow.EventType(typ)
	ev.Actor = escrow.Identity(actor)
	if remittanceID.Valid {
		ev.RemittanceID = uint64(remittanceID.Int64)
	}
	if ev.Amounts, err = unmarshalAmounts(amountsJSON); err != nil {
		return ev, fmt.Errorf("scan event %d: %w", ev.Seq, err)
	}
	if ev.Data, err = unmarshalData(dataJSON); err != nil {
		return ev, fmt.Errorf("scan event %d: %w", ev.Seq, err)
	}
	var flagsText *string
	if flagsJSON.Valid {
		flagsText = &flagsJSON.String
	}
	if ev.Flags, err = unmarshalFlags(flagsText); err != nil {
		return ev, fmt.Errorf("scan event %d: %w", ev.Seq, err)
	}
	return ev, nil
}
