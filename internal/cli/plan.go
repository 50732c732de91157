package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/internal/config"
	"git.sr.ht/~jakintosh/yourauth/internal/database"
	"git.sr.ht/~jakintosh/yourauth/internal/logging"
	"git.sr.ht/~jakintosh/yourauth/internal/service"
)

func newPlanCmd(v *viper.Viper) *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect plans and move developers between them",
	}

	planCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the available plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			plans := catalog.Plans()
			names := make([]string, 0, len(plans))
			for name := range plans {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				p := plans[name]
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s users=%d requests=%d\n", p.Name, p.Users, p.Requests)
			}
			return nil
		},
	})

	planCmd.AddCommand(&cobra.Command{
		Use:   "set <developer-email> <plan>",
		Short: "Move a developer onto a plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			store, err := database.NewSQLiteStore(cmd.Context(), cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			// plan changes never touch tokens
			svc := service.New(
				store.DeveloperStore(),
				store.UserStore(),
				store.LogStore(),
				catalog,
				nil,
				nil,
				service.PasswordModeProduction,
				logger,
			)
			dev, err := svc.ChangePlan(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			logger.Info("changed developer plan",
				zap.String("developer_id", dev.ID),
				zap.String("plan", dev.Plan),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now on plan %s\n", dev.Email, dev.Plan)
			return nil
		},
	})

	return planCmd
}

func loadCatalog(cfg *config.Config) (*service.PlanCatalog, error) {
	catalog := service.NewPlanCatalog()
	if cfg.PlansDir == "" {
		return catalog, nil
	}
	if err := catalog.LoadDir(cfg.PlansDir); err != nil {
		return nil, err
	}
	return catalog, nil
}
