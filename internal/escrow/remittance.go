package escrow

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxPurposeLength is the maximum purpose length in bytes.
const MaxPurposeLength = 256

// Remittance is one escrow instance: a funding goal, the running total of
// contributions and its resolution flags.
//
// INVARIANTS:
//   - IsReleased and IsCancelled are never both true
//   - once either flag is set, CurrentAmount never changes again
//   - CurrentAmount equals the sum of all contribution records for ID
type Remittance struct {
	ID            uint64   `json:"id"`
	Creator       Identity `json:"creator"`
	Recipient     Identity `json:"recipient"`
	TargetAmount  Amount   `json:"target_amount"`
	CurrentAmount Amount   `json:"current_amount"`
	Purpose       string   `json:"purpose"`
	CreatedAt     int64    `json:"created_at"`
	IsReleased    bool     `json:"is_released"`
	IsCancelled   bool     `json:"is_cancelled"`
}

// NewRemittance creates an active remittance with no contributions.
func NewRemittance(id uint64, creator, recipient Identity, target Amount, purpose string, createdAt int64) Remittance {
	return Remittance{
		ID:           id,
		Creator:      creator,
		Recipient:    recipient,
		TargetAmount: target,
		Purpose:      purpose,
		CreatedAt:    createdAt,
	}
}

// Status names the lifecycle state of a remittance.
type Status string

const (
	StatusActive    Status = "active"
	StatusReleased  Status = "released"
	StatusCancelled Status = "cancelled"
)

// Status returns the lifecycle state.
func (r Remittance) Status() Status {
	switch {
	case r.IsReleased:
		return StatusReleased
	case r.IsCancelled:
		return StatusCancelled
	default:
		return StatusActive
	}
}

// IsActive reports whether the remittance still accepts contributions.
func (r Remittance) IsActive() bool {
	return !r.IsReleased && !r.IsCancelled
}

// IsTargetMet reports whether contributions reached the target.
func (r Remittance) IsTargetMet() bool {
	return r.CurrentAmount >= r.TargetAmount
}

// RemainingAmount returns how much is still needed to reach the target.
func (r Remittance) RemainingAmount() Amount {
	if r.CurrentAmount >= r.TargetAmount {
		return 0
	}
	return r.TargetAmount - r.CurrentAmount
}

// ProgressPercent returns funding progress in whole percent, capped at 100.
func (r Remittance) ProgressPercent() uint64 {
	if r.TargetAmount == 0 || r.CurrentAmount >= r.TargetAmount {
		return 100
	}
	// current < target, so current*100 cannot overflow when target <= MaxUint64/100;
	// otherwise scale the target down instead.
	if uint64(r.TargetAmount) <= ^uint64(0)/100 {
		return uint64(r.CurrentAmount) * 100 / uint64(r.TargetAmount)
	}
	return min(uint64(r.CurrentAmount)/(uint64(r.TargetAmount)/100), 100)
}

// NormalizePurpose returns the NFC form of a purpose string.
func NormalizePurpose(purpose string) string {
	return norm.NFC.String(purpose)
}

// ValidatePurpose checks the purpose is valid UTF-8, non-blank and at most
// MaxPurposeLength bytes once NFC-normalized. Invalid UTF-8 would not
// survive the event log's JSON encoding.
func ValidatePurpose(purpose string) error {
	if !utf8.ValidString(purpose) {
		return ErrInvalidPurpose
	}
	p := NormalizePurpose(purpose)
	if strings.TrimSpace(p) == "" {
		return ErrInvalidPurpose
	}
	if len(p) > MaxPurposeLength {
		return ErrInvalidPurpose
	}
	return nil
}

// ContributionKey addresses one contributor's record within a remittance.
type ContributionKey struct {
	RemittanceID uint64   `json:"remittance_id"`
	Contributor  Identity `json:"contributor"`
}
