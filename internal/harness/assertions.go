package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/remit/internal/engine"
	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/replay"
	"github.com/roach88/remit/internal/store"
)

// AssertionContext is what assertions may inspect.
type AssertionContext struct {
	Ctx    context.Context
	Store  *store.Store
	Engine *engine.Engine

	// Resolve maps a scenario name to an identity; Name maps it back.
	Resolve func(string) escrow.Identity
	Name    func(escrow.Identity) string

	// Result receives the audit report when audit_clean runs.
	Result *Result
}

// AssertionError describes one failed assertion.
type AssertionError struct {
	Index    int
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertions[%d] %s: expected %s, got %s", e.Index, e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(i, a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(i int, a Assertion, actx *AssertionContext) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Index: i, Type: a.Type, Expected: expected, Actual: actual}
	}

	switch a.Type {
	case AssertBalance:
		got, err := actx.Engine.Balance(actx.Ctx, actx.Resolve(a.Account))
		if err != nil {
			return fmt.Errorf("assertions[%d] balance: %w", i, err)
		}
		if got != *a.Amount {
			return fail(fmt.Sprintf("%s holds %s", a.Account, a.Amount), got.String())
		}

	case AssertRemittance:
		r, err := actx.Engine.GetRemittance(actx.Ctx, a.ID)
		if err != nil {
			return fail(fmt.Sprintf("remittance %d", a.ID), err.Error())
		}
		fields := remittanceView(r, actx.Name)
		for _, k := range sortedKeys(a.Expect) {
			want := fmt.Sprint(a.Expect[k])
			if got := fmt.Sprint(fields[k]); got != want {
				return fail(fmt.Sprintf("remittance %d %s=%s", a.ID, k, want), got)
			}
		}

	case AssertContribution:
		got, err := actx.Engine.GetContribution(actx.Ctx, a.ID, actx.Resolve(a.Account))
		if err != nil {
			return fail(fmt.Sprintf("contribution to %d", a.ID), err.Error())
		}
		if got != *a.Amount {
			return fail(fmt.Sprintf("%s contributed %s to %d", a.Account, a.Amount, a.ID), got.String())
		}

	case AssertRefundClaimed:
		got, err := actx.Engine.IsRefundClaimed(actx.Ctx, a.ID, actx.Resolve(a.Account))
		if err != nil {
			return fail(fmt.Sprintf("refund flag on %d", a.ID), err.Error())
		}
		if got != *a.Claimed {
			return fail(fmt.Sprintf("refund claimed by %s on %d = %t", a.Account, a.ID, *a.Claimed), fmt.Sprint(got))
		}

	case AssertEventCount:
		evs, err := readEvents(actx, a.ID)
		if err != nil {
			return fmt.Errorf("assertions[%d] event_count: %w", i, err)
		}
		n := 0
		for _, ev := range evs {
			if ev.Type == a.Event {
				n++
			}
		}
		if n != a.Count {
			return fail(fmt.Sprintf("%d %s events", a.Count, a.Event), fmt.Sprint(n))
		}

	case AssertEventOrder:
		evs, err := readEvents(actx, 0)
		if err != nil {
			return fmt.Errorf("assertions[%d] event_order: %w", i, err)
		}
		if missing, ok := inOrder(evs, a.Events); !ok {
			return fail(fmt.Sprintf("events in order %v", a.Events), fmt.Sprintf("%s not found after its predecessors in %v", missing, typesOf(evs)))
		}

	case AssertAuditClean:
		report, err := replay.Verify(actx.Ctx, actx.Store)
		if err != nil {
			return fmt.Errorf("assertions[%d] audit_clean: %w", i, err)
		}
		if actx.Result != nil {
			actx.Result.Audit = &report
		}
		if !report.Clean() {
			details := make([]string, len(report.Violations))
			for j, v := range report.Violations {
				details[j] = v.String()
			}
			return fail("clean audit", strings.Join(details, "; "))
		}
	}
	return nil
}

func readEvents(actx *AssertionContext, remittanceID uint64) ([]escrow.Event, error) {
	if remittanceID != 0 {
		return actx.Store.ReadRemittanceEvents(actx.Ctx, remittanceID)
	}
	return actx.Store.ReadEvents(actx.Ctx, 0, 0)
}

// inOrder reports whether want occurs as a subsequence of the log's event
// types. Intervening events are allowed.
func inOrder(evs []escrow.Event, want []escrow.EventType) (escrow.EventType, bool) {
	next := 0
	for _, ev := range evs {
		if next < len(want) && ev.Type == want[next] {
			next++
		}
	}
	if next < len(want) {
		return want[next], false
	}
	return "", true
}

func typesOf(evs []escrow.Event) []escrow.EventType {
	out := make([]escrow.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func remittanceView(r escrow.Remittance, name func(escrow.Identity) string) map[string]any {
	return map[string]any{
		"status":         string(r.Status()),
		"creator":        name(r.Creator),
		"recipient":      name(r.Recipient),
		"purpose":        r.Purpose,
		"target_amount":  uint64(r.TargetAmount),
		"current_amount": uint64(r.CurrentAmount),
		"is_released":    r.IsReleased,
		"is_cancelled":   r.IsCancelled,
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
