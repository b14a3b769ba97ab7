package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pattyshack/fasttier/ast"
)

func init() {
	rootCmd.AddCommand(newTreeCmd())
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <file>...",
		Short: "Print the analyzed syntax tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := loadProgram(cmd.Context(), args)

			var diagnostics *diagnosticsError
			if err != nil && !errors.As(err, &diagnostics) {
				return err
			}

			output := cmd.OutOrStdout()
			for idx, entry := range sources {
				fmt.Fprintf(output, "Entry %d:\n", idx)
				printErr := ast.PrintTree(output, entry, "  ")
				if printErr != nil {
					return printErr
				}
				fmt.Fprintln(output)
			}

			return err
		},
	}
}
