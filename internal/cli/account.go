package cli

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/remit/internal/escrow"
)

// NewAccountCommand creates the account command group.
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Work with account hashes",
	}
	cmd.AddCommand(newAccountDeriveCommand(rootOpts))
	return cmd
}

func newAccountDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	var alg string

	cmd := &cobra.Command{
		Use:   "derive <public-key-hex>",
		Short: "Derive the account hash of a public key",
		Long: `Derive the account hash of a public key:

  blake2b-256(algorithm || 0x00 || public key)

Example:
  remit account derive 3b6a27bcceb6a42d62a3a8d02a6f0d73653215771de243a63ac048a18b59da29`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)

			algorithm := escrow.Algorithm(strings.ToLower(alg))
			if algorithm != escrow.AlgorithmEd25519 && algorithm != escrow.AlgorithmSecp256k1 {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown algorithm %q: must be ed25519 or secp256k1", alg))
			}
			key, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
			if err != nil || len(key) == 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid public key %q: want hex", args[0]))
			}

			id := escrow.DeriveIdentity(algorithm, key)
			return out.Success(map[string]any{"algorithm": algorithm, "account": id}, string(id))
		},
	}

	cmd.Flags().StringVar(&alg, "alg", string(escrow.AlgorithmEd25519), "key algorithm (ed25519|secp256k1)")
	return cmd
}
