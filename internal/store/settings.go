package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/remit/internal/escrow"
)

const (
	keyOwner        = "owner"
	keyFeeCollector = "fee_collector"
	keyFeeBps       = "fee_bps"
	keyPaused       = "paused"
	keyCounter      = "remittance_counter"
)

var settingKeys = []string{keyOwner, keyFeeCollector, keyFeeBps, keyPaused, keyCounter}

// Owner returns the administrative identity.
func (t *Tx) Owner() (escrow.Identity, error) {
	if err := t.charge("get_owner"); err != nil {
		return "", err
	}
	v, err := t.requiredSetting(keyOwner)
	return escrow.Identity(v), err
}

// FeeCollector returns the identity that receives platform fees.
func (t *Tx) FeeCollector() (escrow.Identity, error) {
	if err := t.charge("get_fee_collector"); err != nil {
		return "", err
	}
	v, err := t.requiredSetting(keyFeeCollector)
	return escrow.Identity(v), err
}

// SetFeeCollector replaces the fee collector.
func (t *Tx) SetFeeCollector(id escrow.Identity) error {
	if err := t.charge("set_fee_collector"); err != nil {
		return err
	}
	return t.putSetting(keyFeeCollector, string(id))
}

// FeeBps returns the platform fee rate in basis points.
func (t *Tx) FeeBps() (uint64, error) {
	if err := t.charge("get_fee_bps"); err != nil {
		return 0, err
	}
	return t.uintSetting(keyFeeBps)
}

// SetFeeBps replaces the platform fee rate.
func (t *Tx) SetFeeBps(bps uint64) error {
	if err := t.charge("set_fee_bps"); err != nil {
		return err
	}
	return t.putSetting(keyFeeBps, strconv.FormatUint(bps, 10))
}

// Paused reports whether mutating operations are suspended.
func (t *Tx) Paused() (bool, error) {
	if err := t.charge("get_paused"); err != nil {
		return false, err
	}
	v, err := t.requiredSetting(keyPaused)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(v)
}

// SetPaused sets the pause flag.
func (t *Tx) SetPaused(paused bool) error {
	if err := t.charge("set_paused"); err != nil {
		return err
	}
	return t.putSetting(keyPaused, strconv.FormatBool(paused))
}

func (t *Tx) setting(key string) (string, bool, error) {
	var v string
	err := t.tx.QueryRowContext(t.ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, true, nil
}

func (t *Tx) requiredSetting(key string) (string, error) {
	v, ok, err := t.setting(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("get setting %s: %w", key, ErrNotInitialized)
	}
	return v, nil
}

func (t *Tx) uintSetting(key string) (uint64, error) {
	v, err := t.requiredSetting(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("get setting %s: %w", key, err)
	}
	return n, nil
}

func (t *Tx) putSetting(key, value string) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}
