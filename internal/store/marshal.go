package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/remit/internal/escrow"
)

// marshalAmounts converts event amounts to canonical JSON TEXT for storage.
func marshalAmounts(amounts map[string]escrow.Amount) (string, error) {
	if amounts == nil {
		amounts = map[string]escrow.Amount{}
	}
	data, err := escrow.MarshalCanonical(amounts)
	if err != nil {
		return "", fmt.Errorf("marshal amounts: %w", err)
	}
	return string(data), nil
}

// marshalData converts event data fields to canonical JSON TEXT for storage.
func marshalData(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := escrow.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(data), nil
}

// marshalFlags converts resolution flags to JSON TEXT.
// Events without flags are stored as NULL.
func marshalFlags(flags *escrow.Flags) (any, error) {
	if flags == nil {
		return nil, nil
	}
	data, err := escrow.MarshalCanonical(map[string]any{
		"is_released":    flags.IsReleased,
		"is_cancelled":   flags.IsCancelled,
		"refund_claimed": flags.RefundClaimed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}
	return string(data), nil
}

// unmarshalAmounts converts stored JSON TEXT back to event amounts.
// Empty objects decode to nil so events round-trip unchanged.
func unmarshalAmounts(text string) (map[string]escrow.Amount, error) {
	var amounts map[string]escrow.Amount
	if err := json.Unmarshal([]byte(text), &amounts); err != nil {
		return nil, fmt.Errorf("unmarshal amounts: %w", err)
	}
	if len(amounts) == 0 {
		return nil, nil
	}
	return amounts, nil
}

func unmarshalData(text string) (map[string]string, error) {
	var fields map[string]string
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func unmarshalFlags(text *string) (*escrow.Flags, error) {
	if text == nil {
		return nil, nil
	}
	var flags escrow.Flags
	if err := json.Unmarshal([]byte(*text), &flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	return &flags, nil
}
