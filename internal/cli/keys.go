package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"git.sr.ht/~jakintosh/yourauth/internal/config"
	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

func newKeysCmd(v *viper.Viper) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the token signing keys",
	}

	keysCmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create the RSA key pair in the keys directory if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if _, err := tokens.EnsureKeys(cfg.KeysDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signing keys ready in %s (kid %s)\n", cfg.KeysDir, tokens.KeyID)
			return nil
		},
	})

	keysCmd.AddCommand(&cobra.Command{
		Use:   "jwks",
		Short: "Print the public JWKS document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			keys, err := cfg.LoadKeys()
			if err != nil {
				return err
			}
			set, err := tokens.JWKS(keys)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(set, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode JWKS: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})

	return keysCmd
}
