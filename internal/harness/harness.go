package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/remit/internal/engine"
	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
	"github.com/roach88/remit/internal/testutil"
)

// Step phases.
const (
	PhaseSetup = "setup"
	PhaseFlow  = "flow"
)

// Harness executes one scenario against a private in-memory ledger with a
// deterministic clock and sequential transaction ids.
type Harness struct {
	store  *store.Store
	engine *engine.Engine

	// names maps identities back to scenario names for traces.
	names map[escrow.Identity]string
}

// Run executes a scenario and returns the result. An error means the
// scenario could not run at all (bad genesis, failing setup step); failed
// expectations and assertions are reported in the result instead.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		names: map[escrow.Identity]string{store.EscrowPurse: string(store.EscrowPurse)},
	}

	g := scenario.Genesis
	if g.Owner == "" {
		g.Owner = "owner"
	}
	genesis := store.Genesis{
		Owner:   h.account(g.Owner),
		FeeBps:  g.FeeBps,
		FirstID: g.FirstID,
	}
	if g.FeeCollector != "" {
		genesis.FeeCollector = h.account(g.FeeCollector)
	}
	if _, err := st.Initialize(ctx, genesis); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	opts := []engine.Option{
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithTxIDGenerator(testutil.NewSequentialTxIDs("")),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if g.MaxFeeBps != 0 {
		opts = append(opts, engine.WithMaxFeeBps(g.MaxFeeBps))
	}
	h.engine = engine.New(st, nil, opts...)

	result := NewResult()

	for i, step := range scenario.Setup {
		sr, receipt := h.execute(ctx, PhaseSetup, i, step)
		result.Steps = append(result.Steps, sr)
		if !receipt.OK() {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Op, receipt.Err)
		}
	}

	for i, step := range scenario.Flow {
		sr, receipt := h.execute(ctx, PhaseFlow, i, step)
		result.Steps = append(result.Steps, sr)
		if msg := checkExpect(step, receipt); msg != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s by %s: %s", i, step.Op, step.Caller, msg))
		}
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   st,
		Engine:  h.engine,
		Resolve: h.account,
		Name:    h.name,
		Result:  result,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// execute builds the call for step, runs it and records the outcome.
func (h *Harness) execute(ctx context.Context, phase string, index int, step Step) (StepResult, engine.Receipt) {
	call := engine.Call{
		Op:           step.Op,
		Caller:       h.account(step.Caller),
		RemittanceID: step.Args.RemittanceID,
		Recipient:    h.account(step.Args.Recipient),
		Amount:       step.Args.Amount,
		Purpose:      step.Args.Purpose,
		FeeBps:       step.Args.FeeBps,
		Account:      h.account(step.Args.Account),
	}
	receipt := h.engine.Exec(ctx, call)

	sr := StepResult{
		Phase:        phase,
		Index:        index,
		Op:           step.Op,
		Caller:       step.Caller,
		RemittanceID: receipt.RemittanceID,
		TxID:         receipt.TxID,
		GasUsed:      receipt.GasUsed,
		Code:         receipt.Code(),
		Events:       make([]TraceEvent, 0, len(receipt.Events)),
	}
	for _, ev := range receipt.Events {
		sr.Events = append(sr.Events, h.traceEvent(ev))
	}
	return sr, receipt
}

func checkExpect(step Step, receipt engine.Receipt) string {
	var want escrow.ErrorCode
	if step.Expect != nil {
		want = step.Expect.Code
	}

	switch {
	case want == "" && !receipt.OK():
		return fmt.Sprintf("expected success, got %v", receipt.Err)
	case want != "" && receipt.OK():
		return fmt.Sprintf("expected %s, call succeeded", want)
	case want != "" && receipt.Code() != want:
		return fmt.Sprintf("expected %s, got %v", want, receipt.Err)
	}

	if step.Expect != nil && step.Expect.ID != 0 && receipt.RemittanceID != step.Expect.ID {
		return fmt.Sprintf("expected remittance id %d, got %d", step.Expect.ID, receipt.RemittanceID)
	}
	return ""
}

// account resolves a scenario name to an identity and remembers the
// mapping for traces. Empty names stay empty so validation paths can be
// exercised.
func (h *Harness) account(name string) escrow.Identity {
	switch {
	case name == "":
		return ""
	case name == string(store.EscrowPurse):
		return store.EscrowPurse
	case strings.HasPrefix(name, escrow.IdentityPrefix):
		id := escrow.Identity(name)
		h.names[id] = id.Short()
		return id
	}
	id := testutil.Account(name)
	h.names[id] = name
	return id
}

func (h *Harness) name(id escrow.Identity) string {
	if n, ok := h.names[id]; ok {
		return n
	}
	return id.Short()
}

// identityData lists event data keys whose values are identities.
var identityData = []string{escrow.DataRecipient, escrow.DataFeeCollector, escrow.DataAccount}

func (h *Harness) traceEvent(ev escrow.Event) TraceEvent {
	te := TraceEvent{
		Seq:          ev.Seq,
		Type:         ev.Type,
		RemittanceID: ev.RemittanceID,
		Actor:        h.name(ev.Actor),
		Amounts:      ev.Amounts,
		Flags:        ev.Flags,
		Timestamp:    ev.Timestamp,
	}
	if len(ev.Data) > 0 {
		te.Data = make(map[string]string, len(ev.Data))
		for k, v := range ev.Data {
			te.Data[k] = v
		}
		for _, k := range identityData {
			if v, ok := te.Data[k]; ok {
				te.Data[k] = h.name(escrow.Identity(v))
			}
		}
	}
	return te
}
