package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/remit/internal/engine"
	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
)

// remittanceOutput is the display form of a remittance.
type remittanceOutput struct {
	ID        uint64          `json:"id"`
	Creator   escrow.Identity `json:"creator"`
	Recipient escrow.Identity `json:"recipient"`
	Target    string          `json:"target_amount"`
	Current   string          `json:"current_amount"`
	Remaining string          `json:"remaining_amount"`
	Progress  uint64          `json:"progress_percent"`
	Purpose   string          `json:"purpose"`
	CreatedAt int64           `json:"created_at"`
	Status    escrow.Status   `json:"status"`
	TargetMet bool            `json:"target_met"`
}

func (l *ledger) describe(r escrow.Remittance) remittanceOutput {
	return remittanceOutput{
		ID:        r.ID,
		Creator:   r.Creator,
		Recipient: r.Recipient,
		Target:    l.formatAmount(r.TargetAmount),
		Current:   l.formatAmount(r.CurrentAmount),
		Remaining: l.formatAmount(r.RemainingAmount()),
		Progress:  r.ProgressPercent(),
		Purpose:   r.Purpose,
		CreatedAt: r.CreatedAt,
		Status:    r.Status(),
		TargetMet: r.IsTargetMet(),
	}
}

// reportViewError prints a failed read. Escrow errors such as an unknown
// remittance are ExitFailure; anything else is a ledger problem.
func reportViewError(f *OutputFormatter, what string, err error) error {
	if code := escrow.CodeOf(err); code != "" {
		if perr := f.Error(string(code), err.Error(), nil); perr != nil {
			return perr
		}
		return WrapExitError(ExitFailure, what, err)
	}
	return WrapExitError(ExitCommandError, what, err)
}

// NewFundCommand creates the fund command.
func NewFundCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <account> <amount>",
		Short: "Credit an account's purse (owner only)",
		Long: `Mint test funds into an account's purse. Only the owner may fund.

Example:
  remit fund account-hash-<hex> 25.5 --caller <owner>`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			account, err := parseIdentityArg("account", args[0])
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			amount, err := l.parseAmount(args[1])
			if err != nil {
				return err
			}
			r, err := l.submit(cmd.Context(), engine.Call{Op: engine.OpFund, Caller: caller, Account: account, Amount: amount})
			if err != nil {
				return WrapExitError(ExitCommandError, "fund failed", err)
			}
			data := map[string]any{"account": account, "amount": l.formatAmount(amount)}
			return reportReceipt(out, r, data, fmt.Sprintf("Funded %s with %s", account.Short(), l.formatAmount(amount)))
		},
	}
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Show a purse balance",
		Long: `Show the purse balance of an account, or of --caller when no account
is given. Use "escrow" for the escrow purse.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			account, err := accountArg(rootOpts, args)
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			bal, err := l.engine.Balance(cmd.Context(), account)
			if err != nil {
				return reportViewError(out, "balance failed", err)
			}
			data := map[string]any{"account": account, "balance": l.formatAmount(bal)}
			return out.Success(data, l.formatAmount(bal))
		},
	}
}

// accountArg resolves an optional account argument, falling back to --caller.
func accountArg(rootOpts *RootOptions, args []string) (escrow.Identity, error) {
	if len(args) == 0 {
		return rootOpts.caller()
	}
	if args[0] == string(store.EscrowPurse) {
		return store.EscrowPurse, nil
	}
	return parseIdentityArg("account", args[0])
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <recipient> <target> <purpose>",
		Short: "Create a remittance",
		Long: `Open a remittance collecting toward target for recipient.

Example:
  remit create account-hash-<hex> 100 "School fees" --caller account-hash-<hex>`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			recipient, err := parseIdentityArg("recipient", args[0])
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			target, err := l.parseAmount(args[1])
			if err != nil {
				return err
			}
			r, err := l.submit(cmd.Context(), engine.Call{
				Op:        engine.OpCreateRemittance,
				Caller:    caller,
				Recipient: recipient,
				Amount:    target,
				Purpose:   args[2],
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "create failed", err)
			}
			data := map[string]any{"id": r.RemittanceID}
			return reportReceipt(out, r, data, fmt.Sprintf("Created remittance %d", r.RemittanceID))
		},
	}
}

// NewContributeCommand creates the contribute command.
func NewContributeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contribute <id> <amount>",
		Short: "Contribute to a remittance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			amount, err := l.parseAmount(args[1])
			if err != nil {
				return err
			}
			r, err := l.submit(cmd.Context(), engine.Call{Op: engine.OpContribute, Caller: caller, RemittanceID: id, Amount: amount})
			if err != nil {
				return WrapExitError(ExitCommandError, "contribute failed", err)
			}
			data := map[string]any{"id": id, "amount": l.formatAmount(amount)}
			return reportReceipt(out, r, data, fmt.Sprintf("Contributed %s to remittance %d", l.formatAmount(amount), id))
		},
	}
}

// newRemittanceCallCommand builds the commands that take only a remittance id.
func newRemittanceCallCommand(rootOpts *RootOptions, use, short string, op engine.Op, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			r, err := l.submit(cmd.Context(), engine.Call{Op: op, Caller: caller, RemittanceID: id})
			if err != nil {
				return WrapExitError(ExitCommandError, use+" failed", err)
			}

			data := map[string]any{"id": id}
			text := fmt.Sprintf("%s remittance %d", done, id)
			for _, ev := range r.Events {
				for k, v := range ev.Amounts {
					data[k] = l.formatAmount(v)
				}
			}
			if amounts := receiptAmounts(l, r); amounts != "" {
				text += " (" + amounts + ")"
			}
			return reportReceipt(out, r, data, text)
		},
	}
}

func receiptAmounts(l *ledger, r engine.Receipt) string {
	var parts []string
	for _, ev := range r.Events {
		for _, key := range []string{escrow.AmountTotal, escrow.AmountPayout, escrow.AmountFee, escrow.AmountRefund} {
			if v, ok := ev.Amounts[key]; ok {
				parts = append(parts, key+" "+l.formatAmount(v))
			}
		}
	}
	return strings.Join(parts, ", ")
}

// NewReleaseCommand creates the release command.
func NewReleaseCommand(rootOpts *RootOptions) *cobra.Command {
	return newRemittanceCallCommand(rootOpts, "release", "Release a funded remittance to its recipient", engine.OpReleaseFunds, "Released")
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return newRemittanceCallCommand(rootOpts, "cancel", "Cancel an active remittance (creator only)", engine.OpCancelRemittance, "Cancelled")
}

// NewRefundCommand creates the refund command.
func NewRefundCommand(rootOpts *RootOptions) *cobra.Command {
	return newRemittanceCallCommand(rootOpts, "refund", "Claim a refund from a cancelled remittance", engine.OpClaimRefund, "Refunded from")
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a remittance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			r, err := l.engine.GetRemittance(cmd.Context(), id)
			if err != nil {
				return reportViewError(out, "show failed", err)
			}
			o := l.describe(r)

			var b strings.Builder
			fmt.Fprintf(&b, "Remittance %d [%s]\n", o.ID, o.Status)
			fmt.Fprintf(&b, "  Purpose:   %s\n", o.Purpose)
			fmt.Fprintf(&b, "  Creator:   %s\n", o.Creator)
			fmt.Fprintf(&b, "  Recipient: %s\n", o.Recipient)
			fmt.Fprintf(&b, "  Target:    %s\n", o.Target)
			fmt.Fprintf(&b, "  Raised:    %s (%d%%)\n", o.Current, o.Progress)
			fmt.Fprintf(&b, "  Remaining: %s", o.Remaining)
			return out.Success(o, b.String())
		},
	}
}

// NewContributionCommand creates the contribution command.
func NewContributionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contribution <id> [account]",
		Short: "Show an account's contribution to a remittance",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			account, err := accountArg(rootOpts, args[1:])
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			amount, err := l.engine.GetContribution(cmd.Context(), id, account)
			if err != nil {
				return reportViewError(out, "contribution failed", err)
			}
			data := map[string]any{"id": id, "account": account, "amount": l.formatAmount(amount)}
			return out.Success(data, l.formatAmount(amount))
		},
	}
}

// NewClaimedCommand creates the claimed command.
func NewClaimedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "claimed <id> [account]",
		Short: "Show whether an account claimed its refund",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			id, err := parseIDArg(args[0])
			if err != nil {
				return err
			}
			account, err := accountArg(rootOpts, args[1:])
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			claimed, err := l.engine.IsRefundClaimed(cmd.Context(), id, account)
			if err != nil {
				return reportViewError(out, "claimed failed", err)
			}
			data := map[string]any{"id": id, "account": account, "claimed": claimed}
			return out.Success(data, fmt.Sprint(claimed))
		},
	}
}
