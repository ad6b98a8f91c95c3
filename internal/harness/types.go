package harness

import (
	"github.com/roach88/remit/internal/engine"
	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/replay"
)

// TraceEvent is one committed event with identities replaced by the
// scenario's account names.
type TraceEvent struct {
	Seq          int64                    `json:"seq"`
	Type         escrow.EventType         `json:"type"`
	RemittanceID uint64                   `json:"remittance_id,omitempty"`
	Actor        string                   `json:"actor"`
	Amounts      map[string]escrow.Amount `json:"amounts,omitempty"`
	Data         map[string]string        `json:"data,omitempty"`
	Flags        *escrow.Flags            `json:"flags,omitempty"`
	Timestamp    int64                    `json:"timestamp"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Phase        string           `json:"phase"` // "setup" or "flow"
	Index        int              `json:"index"`
	Op           engine.Op        `json:"op"`
	Caller       string           `json:"caller"`
	RemittanceID uint64           `json:"remittance_id,omitempty"`
	TxID         string           `json:"tx_id"`
	GasUsed      int              `json:"gas"`
	Code         escrow.ErrorCode `json:"code,omitempty"`
	Events       []TraceEvent     `json:"events"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Steps holds setup and flow steps in execution order.
	Steps []StepResult `json:"steps"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// Audit is the replay audit of the final ledger.
	Audit *replay.Report `json:"audit,omitempty"`
}

// NewResult creates a passing result with no steps.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FlowSteps returns the steps from the flow phase.
func (r *Result) FlowSteps() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Phase == PhaseFlow {
			out = append(out, s)
		}
	}
	return out
}

// Events returns every committed event in log order.
func (r *Result) Events() []TraceEvent {
	var out []TraceEvent
	for _, s := range r.Steps {
		out = append(out, s.Events...)
	}
	return out
}
