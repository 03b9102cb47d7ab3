package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Print the answers to the analysis questions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			analyzer, err := a.Analyzer()
			if err != nil {
				return err
			}
			answers, err := analyzer.Answers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, ans := range answers {
				fmt.Fprintf(out, "%s\n%s\n\n", ans.Label, ans.Answer)
			}
			return nil
		},
	}
}
