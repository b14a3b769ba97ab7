package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pattyshack/fasttier/ast"
	"github.com/pattyshack/fasttier/logger"
)

var rewriteOutput string

func init() {
	cmd := newRewriteCmd()
	addConfigFlag(cmd)
	cmd.Flags().StringVarP(&rewriteOutput, "output", "o", "", "Write the rewritten program to a file instead of stdout")
	rootCmd.AddCommand(cmd)
}

func newRewriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite <file>...",
		Short: "Retarget the selected allocations to the fast tier allocator",
		Long: `The rewrite command runs the tiering pass and prints the rewritten program.
Selected allocations call the fast tier allocator, and their matched
deallocations call the fast tier deallocator.

Example:
  fasttier rewrite kernel.ir
  fasttier rewrite --config tiering.yaml -o kernel.hbm.ir kernel.ir`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runPass(cmd.Context(), args)
			if err != nil {
				return err
			}

			if rewriteOutput == "" {
				return ast.PrintProgram(cmd.OutOrStdout(), result.Sources)
			}

			file, err := os.Create(rewriteOutput)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}

			err = ast.PrintProgram(file, result.Sources)
			closeErr := file.Close()
			if err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			if closeErr != nil {
				return closeErr
			}

			logger.Info(
				"wrote rewritten program",
				"output", rewriteOutput,
				"modified", result.Modified)
			return nil
		},
	}
}
