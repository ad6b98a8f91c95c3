package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/remit/internal/engine"
	"github.com/roach88/remit/internal/escrow"
)

// Scenario is a scripted sequence of calls against a fresh ledger, with
// expectations on each call and assertions on the final state.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Genesis configures the ledger before any step runs.
	Genesis Genesis `yaml:"genesis,omitempty"`

	// Setup steps must all succeed. They are excluded from golden traces.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are checked against their expect clauses.
	Flow []Step `yaml:"flow"`

	Assertions []Assertion `yaml:"assertions"`
}

// Genesis names the ledger's initial settings. Accounts are scenario names.
type Genesis struct {
	Owner        string `yaml:"owner,omitempty"` // default "owner"
	FeeCollector string `yaml:"fee_collector,omitempty"`
	FeeBps       uint64 `yaml:"fee_bps,omitempty"`
	MaxFeeBps    uint64 `yaml:"max_fee_bps,omitempty"`
	FirstID      uint64 `yaml:"first_id,omitempty"`
}

// Step is one call. Caller and any account-valued args are names, resolved
// to stable identities; a value that already starts with the identity
// prefix is used verbatim.
type Step struct {
	Op     engine.Op `yaml:"op"`
	Caller string    `yaml:"caller"`
	Args   StepArgs  `yaml:"args,omitempty"`
	Expect *Expect   `yaml:"expect,omitempty"`
}

// StepArgs are the call's arguments. Only those the operation reads matter.
type StepArgs struct {
	RemittanceID uint64        `yaml:"remittance_id,omitempty"`
	Recipient    string        `yaml:"recipient,omitempty"`
	Amount       escrow.Amount `yaml:"amount,omitempty"`
	Purpose      string        `yaml:"purpose,omitempty"`
	FeeBps       uint64        `yaml:"fee_bps,omitempty"`
	Account      string        `yaml:"account,omitempty"`
}

// Expect is the expected outcome of a flow step. A step without one, or
// with an empty code, must succeed.
type Expect struct {
	Code escrow.ErrorCode `yaml:"code,omitempty"`

	// ID is the remittance id a create_remittance call must allocate.
	ID uint64 `yaml:"id,omitempty"`
}

// Assertion checks the final ledger.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Account is a scenario name (balance, contribution, refund_claimed).
	Account string `yaml:"account,omitempty"`

	// ID is a remittance id (remittance, contribution, refund_claimed,
	// and optionally event_count).
	ID uint64 `yaml:"id,omitempty"`

	// Amount is the expected balance or contribution.
	Amount *escrow.Amount `yaml:"amount,omitempty"`

	// Claimed is the expected refund flag.
	Claimed *bool `yaml:"claimed,omitempty"`

	// Expect holds remittance fields to compare (subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Event and Count are used by event_count.
	Event escrow.EventType `yaml:"event,omitempty"`
	Count int              `yaml:"count,omitempty"`

	// Events is the expected relative order for event_order.
	Events []escrow.EventType `yaml:"events,omitempty"`
}

// Assertion types.
const (
	AssertBalance       = "balance"
	AssertRemittance    = "remittance"
	AssertContribution  = "contribution"
	AssertRefundClaimed = "refund_claimed"
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertAuditClean    = "audit_clean"
)

// remittanceFields are the keys a remittance assertion may compare.
var remittanceFields = map[string]bool{
	"status": true, "creator": true, "recipient": true, "purpose": true,
	"target_amount": true, "current_amount": true,
	"is_released": true, "is_cancelled": true,
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML. Unknown fields are rejected so typos
// surface instead of silently skipping a check.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps cannot carry expect", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.ID != 0 && step.Op != engine.OpCreateRemittance {
			return fmt.Errorf("flow[%d].expect: id only applies to create_remittance", i)
		}
		if step.Expect != nil && step.Expect.Code != "" && !step.Expect.Code.Known() {
			return fmt.Errorf("flow[%d].expect: unknown error code %q", i, step.Expect.Code)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step) error {
	if _, err := engine.ParseOp(string(step.Op)); err != nil {
		return err
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertBalance:
		if a.Account == "" || a.Amount == nil {
			return fmt.Errorf("assertions[%d]: account and amount are required for balance", index)
		}
	case AssertRemittance:
		if a.ID == 0 || len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: id and expect are required for remittance", index)
		}
		for k := range a.Expect {
			if !remittanceFields[k] {
				return fmt.Errorf("assertions[%d]: unknown remittance field %q", index, k)
			}
		}
	case AssertContribution:
		if a.ID == 0 || a.Account == "" || a.Amount == nil {
			return fmt.Errorf("assertions[%d]: id, account and amount are required for contribution", index)
		}
	case AssertRefundClaimed:
		if a.ID == 0 || a.Account == "" || a.Claimed == nil {
			return fmt.Errorf("assertions[%d]: id, account and claimed are required for refund_claimed", index)
		}
	case AssertEventCount:
		if a.Event == "" || a.Count < 0 {
			return fmt.Errorf("assertions[%d]: event and a non-negative count are required for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertAuditClean:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
