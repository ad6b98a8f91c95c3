package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remit/internal/escrow"
)

var ownerID = escrow.DeriveIdentity(escrow.AlgorithmEd25519, []byte("owner"))

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, Config{
		FeeBps:          50,
		MaxFeeBps:       500,
		FirstID:         1,
		GasBudget:       32,
		DisplayDecimals: 9,
		Database:        "remit.db",
	}, cfg)
}

func TestParse_Overrides(t *testing.T) {
	src := `
owner: "` + string(ownerID) + `"
fee_bps: 250
max_fee_bps: 1000
first_id: 100
database: "ledger.db"
`
	cfg, err := Parse([]byte(src), "remit.cue")
	require.NoError(t, err)

	assert.Equal(t, ownerID, cfg.Owner)
	assert.Empty(t, cfg.FeeCollector)
	assert.Equal(t, uint64(250), cfg.FeeBps)
	assert.Equal(t, uint64(1000), cfg.MaxFeeBps)
	assert.Equal(t, uint64(100), cfg.FirstID)
	assert.Equal(t, 32, cfg.GasBudget)
	assert.Equal(t, "ledger.db", cfg.Database)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `fees: 10`},
		{"fee above default max", `fee_bps: 501`},
		{"fee above explicit max", "max_fee_bps: 100\nfee_bps: 200"},
		{"max above 100 percent", `max_fee_bps: 10001`},
		{"negative fee", `fee_bps: -1`},
		{"float fee", `fee_bps: 1.5`},
		{"malformed owner", `owner: "alice"`},
		{"uppercase owner hex", `owner: "account-hash-` + "AB" + string(ownerID)[len("account-hash-")+2:] + `"`},
		{"zero first id", `first_id: 0`},
		{"tiny gas budget", `gas_budget: 2`},
		{"empty database", `database: ""`},
		{"syntax error", `fee_bps: `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "remit.cue")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_ZeroFeeAllowed(t *testing.T) {
	cfg, err := Parse([]byte("fee_bps: 0\nmax_fee_bps: 0"), "remit.cue")
	require.NoError(t, err)
	assert.Zero(t, cfg.FeeBps)
	assert.Zero(t, cfg.MaxFeeBps)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "remit.cue")
	require.NoError(t, os.WriteFile(path, []byte("fee_bps: 75\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(75), cfg.FeeBps)

	_, err = Load(filepath.Join(dir, "missing.cue"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMarshal_ParsesBack(t *testing.T) {
	cfg := Default()
	cfg.Owner = ownerID
	cfg.FeeBps = 125

	src, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(src), "fee_bps:")
	assert.NotContains(t, string(src), "fee_collector")

	got, err := Parse(src, "remit.cue")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestGenesis(t *testing.T) {
	cfg := Default()
	cfg.Owner = ownerID
	cfg.FirstID = 7

	g := cfg.Genesis("")
	assert.Equal(t, ownerID, g.Owner)
	assert.Equal(t, uint64(50), g.FeeBps)
	assert.Equal(t, uint64(7), g.FirstID)

	other := escrow.DeriveIdentity(escrow.AlgorithmEd25519, []byte("other"))
	assert.Equal(t, other, cfg.Genesis(other).Owner)
}

func TestParse_DefaultFeeMustFitMax(t *testing.T) {
	_, err := Parse([]byte("max_fee_bps: 10"), "remit.cue")
	assert.ErrorIs(t, err, ErrInvalid)

	cfg, err := Parse([]byte("max_fee_bps: 10\nfee_bps: 10"), "remit.cue")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cfg.FeeBps)
}
