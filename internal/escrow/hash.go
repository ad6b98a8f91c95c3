package escrow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainEvent is the domain prefix of event identities.
// The version suffix allows a future algorithm change.
const DomainEvent = "remit/event/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed identity of an event.
// Seq and ID itself are excluded: the identity describes what happened,
// not where it landed in the log.
func EventID(ev Event) (string, error) {
	obj := map[string]any{
		"tx_id":     ev.TxID,
		"type":      ev.Type,
		"actor":     ev.Actor,
		"timestamp": ev.Timestamp,
	}
	if ev.RemittanceID != 0 {
		obj["remittance_id"] = ev.RemittanceID
	}
	if len(ev.Amounts) > 0 {
		obj["amounts"] = ev.Amounts
	}
	if len(ev.Data) > 0 {
		obj["data"] = ev.Data
	}
	if ev.Flags != nil {
		obj["flags"] = map[string]any{
			"is_released":    ev.Flags.IsReleased,
			"is_cancelled":   ev.Flags.IsCancelled,
			"refund_claimed": ev.Flags.RefundClaimed,
		}
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}
