// Package config loads ledger settings from a CUE file.
//
// Files are unified with an embedded schema, so unknown fields, out of
// range values and malformed identities are rejected before anything
// touches the ledger.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"

	"github.com/roach88/remit/internal/escrow"
	"github.com/roach88/remit/internal/store"
)

//go:embed schema.cue
var schemaSource string

// DefaultPath is where the CLI looks for settings when --config is not set.
const DefaultPath = "remit.cue"

// ErrInvalid wraps every schema violation.
var ErrInvalid = errors.New("invalid config")

// Config holds ledger settings.
type Config struct {
	Owner           escrow.Identity `json:"owner,omitempty"`
	FeeCollector    escrow.Identity `json:"fee_collector,omitempty"`
	FeeBps          uint64          `json:"fee_bps"`
	MaxFeeBps       uint64          `json:"max_fee_bps"`
	FirstID         uint64          `json:"first_id"`
	GasBudget       int             `json:"gas_budget"`
	DisplayDecimals int32           `json:"display_decimals"`
	Database        string          `json:"database"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	cfg, err := Parse(nil, "default")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and validates a settings file. A missing file yields an error
// matching fs.ErrNotExist.
func Load(path string) (Config, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return Parse(src, path)
}

// Parse validates CUE source against the schema and decodes it.
// filename is used only in error positions.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalid, details(err))
	}

	v := def.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalid, details(err))
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode: %s", ErrInvalid, details(err))
	}
	return cfg, nil
}

// Marshal renders cfg as CUE source that Parse accepts.
func Marshal(cfg Config) ([]byte, error) {
	v := cuecontext.New().Encode(cfg)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	node := v.Syntax(cue.Concrete(true))
	if lit, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: lit.Elts}
	}
	out, err := format.Node(node)
	if err != nil {
		return nil, fmt.Errorf("format config: %w", err)
	}
	return out, nil
}

// Genesis returns the settings installed when a ledger is initialized.
// The owner argument wins over the file when both are set.
func (c Config) Genesis(owner escrow.Identity) store.Genesis {
	if owner == "" {
		owner = c.Owner
	}
	return store.Genesis{
		Owner:        owner,
		FeeCollector: c.FeeCollector,
		FeeBps:       c.FeeBps,
		FirstID:      c.FirstID,
	}
}

func details(err error) string {
	return cueerrors.Details(err, nil)
}
