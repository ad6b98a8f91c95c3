package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/remit/internal/engine"
)

// NewFeeCommand creates the fee command group.
func NewFeeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Read or change the platform fee",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the platform fee in basis points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			bps, err := l.engine.PlatformFee(cmd.Context())
			if err != nil {
				return reportViewError(out, "fee failed", err)
			}
			data := map[string]any{"fee_bps": bps, "max_fee_bps": l.engine.MaxFeeBps()}
			return out.Success(data, fmt.Sprintf("%d bps", bps))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <bps>",
		Short: "Set the platform fee (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			bps, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid fee %q: want basis points", args[0]))
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			r, err := l.submit(cmd.Context(), engine.Call{Op: engine.OpSetPlatformFee, Caller: caller, FeeBps: bps})
			if err != nil {
				return WrapExitError(ExitCommandError, "fee set failed", err)
			}
			return reportReceipt(out, r, map[string]any{"fee_bps": bps}, fmt.Sprintf("Platform fee set to %d bps", bps))
		},
	})

	return cmd
}

// NewCollectorCommand creates the collector command group.
func NewCollectorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Read or change the fee collector",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the fee collector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			s, err := l.engine.Settings(cmd.Context())
			if err != nil {
				return reportViewError(out, "collector failed", err)
			}
			return out.Success(map[string]any{"fee_collector": s.FeeCollector}, string(s.FeeCollector))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <account>",
		Short: "Set the fee collector (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}
			collector, err := parseIdentityArg("fee collector", args[0])
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			r, err := l.submit(cmd.Context(), engine.Call{Op: engine.OpSetFeeCollector, Caller: caller, Account: collector})
			if err != nil {
				return WrapExitError(ExitCommandError, "collector set failed", err)
			}
			return reportReceipt(out, r, map[string]any{"fee_collector": collector}, "Fee collector set to "+collector.Short())
		},
	})

	return cmd
}

// NewPauseCommand creates the pause command, or unpause when paused is false.
func NewPauseCommand(rootOpts *RootOptions, paused bool) *cobra.Command {
	use, op, short, done := "pause", engine.OpPause, "Stop all remittance operations (owner only)", "Paused"
	if !paused {
		use, op, short, done = "unpause", engine.OpUnpause, "Resume remittance operations (owner only)", "Unpaused"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			caller, err := rootOpts.caller()
			if err != nil {
				return err
			}

			l, err := rootOpts.openLedger(cmd, false)
			if err != nil {
				return err
			}
			defer l.Close()

			r, err := l.submit(cmd.Context(), engine.Call{Op: op, Caller: caller})
			if err != nil {
				return WrapExitError(ExitCommandError, use+" failed", err)
			}
			return reportReceipt(out, r, map[string]any{"paused": paused}, done)
		},
	}
}
