package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/remit/internal/config"
	"github.com/roach88/remit/internal/escrow"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Owner        string
	FeeCollector string
	FeeBps       uint64
	FirstID      uint64
	WriteConfig  bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create and initialize a ledger",
		Long: `Create the SQLite ledger and install its genesis settings.

The owner comes from --owner, the config file's owner, or --caller, in
that order. Flags override the config file. Initializing a ledger that
already has an owner changes nothing.

Examples:
  remit init --owner account-hash-<hex>
  remit init --owner account-hash-<hex> --fee-bps 250 --write-config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "administrative account")
	cmd.Flags().StringVar(&opts.FeeCollector, "fee-collector", "", "account receiving release fees (default owner)")
	cmd.Flags().Uint64Var(&opts.FeeBps, "fee-bps", 0, "initial platform fee in basis points")
	cmd.Flags().Uint64Var(&opts.FirstID, "first-id", 0, "id of the first remittance")
	cmd.Flags().BoolVar(&opts.WriteConfig, "write-config", false, "write the resolved settings to the config file if it does not exist")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	l, err := opts.openLedger(cmd, true)
	if err != nil {
		return err
	}
	defer l.Close()

	cfg := l.cfg
	flags := cmd.Flags()
	switch {
	case opts.Owner != "":
		if cfg.Owner, err = parseIdentityArg("owner", opts.Owner); err != nil {
			return err
		}
	case cfg.Owner == "" && opts.Caller != "":
		if cfg.Owner, err = opts.caller(); err != nil {
			return err
		}
	case cfg.Owner == "":
		return NewExitError(ExitCommandError, "an owner is required (--owner, config owner or --caller)")
	}
	if opts.FeeCollector != "" {
		if cfg.FeeCollector, err = parseIdentityArg("fee collector", opts.FeeCollector); err != nil {
			return err
		}
	}
	if flags.Changed("fee-bps") {
		cfg.FeeBps = opts.FeeBps
	}
	if flags.Changed("first-id") {
		cfg.FirstID = opts.FirstID
	}
	if cfg.FeeBps > cfg.MaxFeeBps {
		return WrapExitError(ExitCommandError, fmt.Sprintf("fee %d bps exceeds maximum %d", cfg.FeeBps, cfg.MaxFeeBps), escrow.ErrFeeTooHigh)
	}
	if cfg.FirstID == 0 {
		return NewExitError(ExitCommandError, "--first-id must be at least 1")
	}

	created, err := l.store.Initialize(cmd.Context(), cfg.Genesis(""))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize ledger", err)
	}

	if opts.WriteConfig {
		if err := writeConfig(opts.configPath(), cfg); err != nil {
			return err
		}
	}

	settings, err := l.engine.Settings(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ledger settings", err)
	}

	data := map[string]any{
		"database": opts.databasePath(l.cfg),
		"created":  created,
		"settings": settings,
	}
	text := fmt.Sprintf("Initialized ledger %s (owner %s, fee %d bps)", opts.databasePath(l.cfg), settings.Owner.Short(), settings.FeeBps)
	if !created {
		text = fmt.Sprintf("Ledger %s already initialized (owner %s)", opts.databasePath(l.cfg), settings.Owner.Short())
	}
	return out.Success(data, text)
}

func (o *RootOptions) configPath() string {
	if o.ConfigPath != "" {
		return o.ConfigPath
	}
	return config.DefaultPath
}

func writeConfig(path string, cfg config.Config) error {
	if _, err := os.Stat(path); err == nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("config file %s already exists", path))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return WrapExitError(ExitCommandError, "failed to check config file", err)
	}

	src, err := config.Marshal(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render config", err)
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write config", err)
	}
	return nil
}
