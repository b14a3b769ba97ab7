package main

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := newAnalyzeCmd()
	addConfigFlag(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the report in JSON format")
	rootCmd.AddCommand(cmd)
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Report the fast tier decision for every allocation site",
		Long: `The analyze command scores every heap allocation site, packs the sites into
the fast tier capacity, and prints one row per site.

Example:
  fasttier analyze kernel.ir
  fasttier analyze --config tiering.yaml --json kernel.ir util.ir`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runPass(cmd.Context(), args)
			if err != nil {
				return err
			}

			report := result.Report()
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return report.WriteText(cmd.OutOrStdout())
		},
	}
}
