package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/gradcafe-crawler/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis dashboard",
		Long: `Serves the dashboard with the analysis answers, a "Pull Data" action that runs
the scrape pipeline and an "Update Analysis" action that re-runs the queries.
Requires db.dsn.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			dash, err := a.Dashboard()
			if err != nil {
				return err
			}
			cfg := a.Config().Server
			return server.Run(cmd.Context(), server.Config{
				Port:            cfg.Port,
				ReadTimeout:     time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
				ShutdownTimeout: time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second,
			}, dash.Handler(), a.Logger().Named("server"))
		},
	}
}
