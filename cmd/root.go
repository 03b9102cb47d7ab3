// Package cmd defines and implements the CLI commands for the gradcafe executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/gradcafe-crawler/internal/app"
	"github.com/JakeFAU/gradcafe-crawler/internal/config"
	"github.com/JakeFAU/gradcafe-crawler/internal/dashboard"
	"github.com/JakeFAU/gradcafe-crawler/internal/logging"
	"github.com/JakeFAU/gradcafe-crawler/internal/pipeline"
	"github.com/JakeFAU/gradcafe-crawler/internal/snapshot"
	"github.com/JakeFAU/gradcafe-crawler/internal/storage/postgres"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the set of services the commands use. *app.App satisfies it; tests wrap it.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Snapshots() snapshot.Store
	Pipeline() *pipeline.Pipeline
	Applicants() (*postgres.ApplicantStore, error)
	Analyzer() (*postgres.Analyzer, error)
	Dashboard() (*dashboard.Server, error)
}

// newApp is the application factory; tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	a, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "gradcafe",
		Short: "Scrape, clean and analyze GradCafe admissions results.",
		Long: `gradcafe incrementally scrapes the GradCafe survey listing, normalizes each
result into a fixed schema, appends new results to a JSON snapshot, loads the
snapshot into Postgres and answers a fixed set of analysis questions.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml, /etc/gradcafe or $HOME/.gradcafe)")

	for _, sub := range []*cobra.Command{newServeCmd(), newScrapeCmd(), newLoadCmd(), newQueryCmd()} {
		sub.RunE = closeAfter(sub.RunE)
		cmd.AddCommand(sub)
	}
	return cmd
}

// closeAfter closes the App once run returns. Cobra skips post-run hooks when RunE
// fails, so cleanup is deferred here instead.
func closeAfter(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if a, ok := cmd.Context().Value(appKey).(App); ok && a != nil {
				a.Close()
			}
		}()
		return run(cmd, args)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	a, ok := ctx.Value(appKey).(App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
