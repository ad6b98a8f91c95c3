package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/remit/internal/escrow"
)

// TraceSnapshot is the golden-file form of a scenario run: flow steps with
// their committed events. Event ids are left out so the files stay
// readable; they are fully determined by the other fields.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Steps        []StepResult `json:"steps"`
}

func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, st := range s.Steps {
		evs := make([]any, len(st.Events))
		for j, ev := range st.Events {
			evs[j] = eventMap(ev)
		}
		m := map[string]any{
			"index":  st.Index,
			"op":     string(st.Op),
			"caller": st.Caller,
			"tx_id":  st.TxID,
			"gas":    st.GasUsed,
			"events": evs,
		}
		if st.RemittanceID != 0 {
			m["remittance_id"] = st.RemittanceID
		}
		if st.Code != "" {
			m["code"] = string(st.Code)
		}
		steps[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
	}
}

func eventMap(ev TraceEvent) map[string]any {
	m := map[string]any{
		"seq":       ev.Seq,
		"type":      ev.Type,
		"actor":     ev.Actor,
		"timestamp": ev.Timestamp,
	}
	if ev.RemittanceID != 0 {
		m["remittance_id"] = ev.RemittanceID
	}
	if len(ev.Amounts) > 0 {
		m["amounts"] = ev.Amounts
	}
	if len(ev.Data) > 0 {
		m["data"] = ev.Data
	}
	if ev.Flags != nil {
		m["flags"] = map[string]any{
			"is_released":    ev.Flags.IsReleased,
			"is_cancelled":   ev.Flags.IsCancelled,
			"refund_claimed": ev.Flags.RefundClaimed,
		}
	}
	return m
}

// MarshalTrace renders the flow steps of result as indented canonical JSON.
func MarshalTrace(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Steps: result.FlowSteps()}

	raw, err := escrow.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	trace, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, trace)
	return nil
}
