package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/replay"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	RemittanceID uint64
	After        int64
	Limit        int
	TxID         string
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the event log",
		Long: `List committed events in sequence order.

Examples:
  remit events --after 10 --limit 20
  remit events --remittance 3
  remit events --tx 01929b6e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.RemittanceID, "remittance", 0, "only events of this remittance")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events after this sequence number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 for all)")
	cmd.Flags().StringVar(&opts.TxID, "tx", "", "only events of this transaction")
	cmd.MarkFlagsMutuallyExclusive("remittance", "tx")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if opts.Limit < 0 || opts.After < 0 {
		return NewExitError(ExitCommandError, "--after and --limit must not be negative")
	}

	l, err := opts.openLedger(cmd, false)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := cmd.Context()
	var evs []escrow.Event
	switch {
	case opts.RemittanceID != 0:
		evs, err = l.store.ReadRemittanceEvents(ctx, opts.RemittanceID)
	case opts.TxID != "":
		evs, err = l.store.ReadTxEvents(ctx, opts.TxID)
	default:
		evs, err = l.store.ReadEvents(ctx, opts.After, opts.Limit)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	if evs == nil {
		evs = []escrow.Event{}
	}

	var b strings.Builder
	for i, ev := range evs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.eventLine(ev))
	}
	if len(evs) == 0 {
		b.WriteString("No events.")
	}
	return out.Success(evs, b.String())
}

// eventLine renders one event on a single line with amounts in display units.
func (l *ledger) eventLine(ev escrow.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6d  %-20s", ev.Seq, ev.Type)
	if ev.RemittanceID != 0 {
		fmt.Fprintf(&b, "  #%d", ev.RemittanceID)
	}
	if ev.Actor != "" {
		fmt.Fprintf(&b, "  by %s", ev.Actor.Short())
	}
	for _, k := range sortedKeys(ev.Amounts) {
		fmt.Fprintf(&b, "  %s=%s", k, l.formatAmount(ev.Amounts[k]))
	}
	for _, k := range sortedKeys(ev.Data) {
		fmt.Fprintf(&b, "  %s=%s", k, ev.Data[k])
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Replay the event log and check it against the ledger",
		Long: `Rebuild the ledger from its event log and compare the result with the
stored remittances, contributions, refund claims, balances and settings.

Exit codes:
  0 - Ledger and log agree
  1 - Violations found
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			report, err := replay.Verify(cmd.Context(), l.store)
			if err != nil {
				return WrapExitError(ExitCommandError, "audit failed", err)
			}
			if report.Violations == nil {
				report.Violations = []replay.Violation{}
			}

			if !report.Clean() {
				msg := fmt.Sprintf("%d violation(s) in %d events", len(report.Violations), report.Events)
				if out.Format == "json" {
					if err := out.Error(ErrCodeAudit, msg, report); err != nil {
						return err
					}
				} else {
					for _, v := range report.Violations {
						fmt.Fprintf(out.Writer, "✗ %s\n", v)
					}
					fmt.Fprintf(out.Writer, "Error [%s]: %s\n", ErrCodeAudit, msg)
				}
				return NewExitError(ExitFailure, msg)
			}

			text := fmt.Sprintf("✓ %d events, %d remittances, ledger consistent", report.Events, report.Remittances)
			return out.Success(report, text)
		},
	}
}
