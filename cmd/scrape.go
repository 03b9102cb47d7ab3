package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run the scrape pipeline once",
		Long: `Crawls listing pages until a previously seen result, an empty page, a fetch
failure or the entry cap, then cleans and appends the new results to the
snapshot. The database is reloaded as well when db.dsn is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Pipeline().Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run pipeline: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d new, %d total, %d pages, stopped: %s\n",
				res.RunID, res.New, res.Total, res.Pages, res.StopReason)
			if res.CrawlErr != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "crawl ended early: %v\n", res.CrawlErr)
			}
			return nil
		},
	}
}
