package replay

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
)

// Report is the result of auditing a ledger.
type Report struct {
	Events      int         `json:"events"`
	Remittances int         `json:"remittances"`
	LastSeq     int64       `json:"last_seq"`
	Violations  []Violation `json:"violations"`
}

// Clean reports whether the audit found nothing wrong.
func (r Report) Clean() bool {
	return len(r.Violations) == 0
}

// Verify replays the event log and checks the result against the stored
// ledger. The snapshot is taken first and only events up to its LastSeq are
// replayed, so writes landing during the audit do not produce false alarms.
func Verify(ctx context.Context, s *store.Store) (Report, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("verify: %w", err)
	}

	all, err := s.ReadEvents(ctx, 0, 0)
	if err != nil {
		return Report{}, fmt.Errorf("verify: %w", err)
	}
	evs := all[:0:0]
	for _, ev := range all {
		if ev.Seq <= snap.LastSeq {
			evs = append(evs, ev)
		}
	}

	state, violations := Project(evs)
	violations = append(violations, Compare(state, snap)...)
	sortViolations(violations)

	return Report{
		Events:      len(evs),
		Remittances: len(state.Remittances),
		LastSeq:     snap.LastSeq,
		Violations:  violations,
	}, nil
}

// Compare reports every difference between projected and stored state.
func Compare(state State, snap store.LedgerState) []Violation {
	var out []Violation
	mismatch := func(id uint64, format string, args ...any) {
		out = append(out, Violation{RemittanceID: id, Rule: RuleStoreMismatch, Detail: fmt.Sprintf(format, args...)})
	}

	if snap.RemittanceCounter < uint64(len(state.Remittances)) {
		mismatch(0, "counter %d below %d created remittances", snap.RemittanceCounter, len(state.Remittances))
	}

	for id, stored := range snap.Remittances {
		projected, ok := state.Remittances[id]
		if !ok {
			mismatch(id, "stored remittance has no creation event")
			continue
		}
		if projected.Remittance != stored {
			mismatch(id, "stored %+v, projected %+v", stored, projected.Remittance)
		}
	}
	for id := range state.Remittances {
		if _, ok := snap.Remittances[id]; !ok {
			mismatch(id, "created remittance missing from store")
		}
	}

	for key, stored := range snap.Contributions {
		var projected escrow.Amount
		if r, ok := state.Remittances[key.RemittanceID]; ok {
			projected = r.Contributions[key.Contributor]
		}
		if projected != stored {
			mismatch(key.RemittanceID, "contribution of %s stored %s, projected %s", key.Contributor.Short(), stored, projected)
		}
	}
	for id, r := range state.Remittances {
		for who, amt := range r.Contributions {
			key := escrow.ContributionKey{RemittanceID: id, Contributor: who}
			if _, ok := snap.Contributions[key]; !ok && amt != 0 {
				mismatch(id, "contribution of %s missing from store", who.Short())
			}
		}
		for who := range r.Refunds {
			if !snap.RefundClaims[escrow.ContributionKey{RemittanceID: id, Contributor: who}] {
				mismatch(id, "refund to %s not marked claimed", who.Short())
			}
		}
	}
	for key := range snap.RefundClaims {
		r, ok := state.Remittances[key.RemittanceID]
		if !ok {
			mismatch(key.RemittanceID, "refund claim for unknown remittance")
			continue
		}
		if _, ok := r.Refunds[key.Contributor]; !ok {
			mismatch(key.RemittanceID, "claim by %s has no refund event", key.Contributor.Short())
		}
	}

	for account, stored := range snap.Balances {
		if projected := state.Balances[account]; projected != stored {
			mismatch(0, "balance of %s stored %s, projected %s", account.Short(), stored, projected)
		}
	}
	for account, projected := range state.Balances {
		if _, ok := snap.Balances[account]; !ok && projected != 0 {
			mismatch(0, "balance of %s missing from store", account.Short())
		}
	}

	if state.FeeBps != nil && *state.FeeBps != snap.FeeBps {
		mismatch(0, "fee stored %d bps, last update set %d", snap.FeeBps, *state.FeeBps)
	}
	if state.FeeCollector != "" && state.FeeCollector != snap.FeeCollector {
		mismatch(0, "fee collector stored %s, last update set %s", snap.FeeCollector.Short(), state.FeeCollector.Short())
	}
	if state.Paused != snap.Paused {
		mismatch(0, "paused stored %t, projected %t", snap.Paused, state.Paused)
	}
	if state.LastSeq != snap.LastSeq {
		mismatch(0, "replayed through seq %d, store is at %d", state.LastSeq, snap.LastSeq)
	}

	return out
}

func sortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Seq != vs[j].Seq {
			return vs[i].Seq < vs[j].Seq
		}
		if vs[i].RemittanceID != vs[j].RemittanceID {
			return vs[i].RemittanceID < vs[j].RemittanceID
		}
		return vs[i].Rule < vs[j].Rule
	})
}
