package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Replace the applicants table with the snapshot contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			applicants, err := a.Applicants()
			if err != nil {
				return err
			}
			dataset, err := a.Snapshots().Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load snapshot: %w", err)
			}
			if err := applicants.Reload(cmd.Context(), dataset); err != nil {
				return fmt.Errorf("reload database: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d entries\n", len(dataset))
			return nil
		},
	}
}
