package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/remit/internal/config"
	"github.com/roach88/remit/internal/engine"
	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/host"
	"github.com/roach88/remit/internal/store"
)

// ledger is an open store with an engine configured from the config file.
type ledger struct {
	cfg    config.Config
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// loadConfig reads --config, or remit.cue when it exists, or the defaults.
// An explicit --config must exist unless allowMissing is set.
func (o *RootOptions) loadConfig(allowMissing bool) (config.Config, error) {
	path, explicit := o.ConfigPath, o.ConfigPath != ""
	if !explicit {
		path = config.DefaultPath
	}

	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && (!explicit || allowMissing) {
		return config.Default(), nil
	}
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger logs warnings and errors to w, or everything with --verbose.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) databasePath(cfg config.Config) string {
	if o.Database != "" {
		return o.Database
	}
	return cfg.Database
}

// openLedger opens the configured ledger. Unless creating is set, the
// database file must already exist and carry genesis settings.
func (o *RootOptions) openLedger(cmd *cobra.Command, creating bool) (*ledger, error) {
	cfg, err := o.loadConfig(creating)
	if err != nil {
		return nil, err
	}
	logger := o.newLogger(cmd.ErrOrStderr())
	path := o.databasePath(cfg)

	if !creating {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("ledger not found: %s (run remit init)", path))
		}
	}

	logger.Debug("opening ledger", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}

	eng := engine.New(st, nil,
		engine.WithLogger(logger),
		engine.WithGasBudget(cfg.GasBudget),
		engine.WithMaxFeeBps(cfg.MaxFeeBps),
	)
	l := &ledger{cfg: cfg, store: st, engine: eng, logger: logger}

	if !creating {
		if _, err := eng.Settings(cmd.Context()); err != nil {
			l.Close()
			if errors.Is(err, store.ErrNotInitialized) {
				return nil, WrapExitError(ExitCommandError, fmt.Sprintf("ledger %s is not initialized (run remit init)", path), err)
			}
			return nil, WrapExitError(ExitCommandError, "failed to read ledger settings", err)
		}
	}
	return l, nil
}

func (l *ledger) Close() {
	if err := l.store.Close(); err != nil {
		l.logger.Error("error closing ledger", "error", err)
	}
}

// submit runs one call through a single-writer host and returns its receipt.
func (l *ledger) submit(ctx context.Context, call engine.Call) (engine.Receipt, error) {
	h := host.New(l.engine, l.logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := h.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error("host stopped", "error", err)
		}
	}()

	receipt, err := h.Submit(ctx, call)
	h.Stop()
	<-h.Done()
	return receipt, err
}

func (l *ledger) formatAmount(a escrow.Amount) string {
	return escrow.FormatUnits(a, l.cfg.DisplayDecimals)
}

func (l *ledger) parseAmount(s string) (escrow.Amount, error) {
	a, err := escrow.ParseUnits(s, l.cfg.DisplayDecimals)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid amount", err)
	}
	return a, nil
}

// caller resolves --caller. Mutating commands require it.
func (o *RootOptions) caller() (escrow.Identity, error) {
	if o.Caller == "" {
		return "", NewExitError(ExitCommandError, "--caller is required")
	}
	return parseIdentityArg("caller", o.Caller)
}

func parseIdentityArg(what, s string) (escrow.Identity, error) {
	id, err := escrow.ParseIdentity(s)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid "+what, err)
	}
	return id, nil
}

func parseIDArg(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid remittance id %q", s))
	}
	return id, nil
}

// reportReceipt prints the outcome of a mutating call. A rejected call is
// printed as an error and returned as an ExitFailure.
func reportReceipt(f *OutputFormatter, r engine.Receipt, data any, text string) error {
	if !r.OK() {
		code := ErrorCode(r.Err)
		if err := f.Error(code, r.Err.Error(), map[string]any{
			"op":     r.Op,
			"tx_id":  r.TxID,
			"gas":    r.GasUsed,
			"caller": r.Caller,
		}); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("%s rejected", r.Op), r.Err)
	}
	f.VerboseLog("tx %s: %d events, gas %d", r.TxID, len(r.Events), r.GasUsed)
	return f.SuccessTx(r.TxID, data, text)
}
