// Package cli implements the yourauth command line: the API server and the
// operator commands that share its configuration.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"git.sr.ht/~jakintosh/yourauth/internal/config"
)

// NewRootCmd builds the command tree around a fresh configuration.
func NewRootCmd() *cobra.Command {
	v := config.New()
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "yourauth",
		Short: "yourauth - multi-tenant authentication service",
		Long: `yourauth issues RS256 access and refresh tokens for developer accounts
and for the end users in each developer's pool.

Every setting can come from a flag, an environment variable or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(envFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.String("db", "", "SQLite database path (DB_PATH)")
	flags.String("keys-dir", "", "directory holding private.pem and public.pem (KEYS_DIR)")
	flags.String("plans-dir", "", "directory of JSON plan definitions (PLANS_DIR)")
	flags.String("log-level", "", "log level: debug, info, warn, error (LOG_LEVEL)")
	flags.String("log-format", "", "log format: json or console (LOG_FORMAT)")
	mustBind(v, config.KeyDBPath, flags.Lookup("db"))
	mustBind(v, config.KeyKeysDir, flags.Lookup("keys-dir"))
	mustBind(v, config.KeyPlansDir, flags.Lookup("plans-dir"))
	mustBind(v, config.KeyLogLevel, flags.Lookup("log-level"))
	mustBind(v, config.KeyLogFormat, flags.Lookup("log-format"))

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newKeysCmd(v))
	rootCmd.AddCommand(newPlanCmd(v))
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", key, err))
	}
}
