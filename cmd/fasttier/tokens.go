package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pattyshack/gt/parseutil"
	"github.com/spf13/cobra"

	"github.com/pattyshack/fasttier/parser/lexer"
)

func init() {
	rootCmd.AddCommand(newTokensCmd())
}

func newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file>...",
		Short: "Print the lexer tokens",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := cmd.OutOrStdout()
			for _, fileName := range args {
				content, err := os.ReadFile(fileName)
				if err != nil {
					return fmt.Errorf("failed to read source: %w", err)
				}

				fmt.Fprintln(output, "=====================")
				fmt.Fprintln(output, "File name:", fileName)
				fmt.Fprintln(output, "---------------------")

				lex := lexer.NewLexer(
					parseutil.NewBufferedByteLocationReaderFromSlice(
						fileName,
						content))
				for {
					token, err := lex.Next()
					if err == io.EOF {
						break
					} else if err != nil {
						return fmt.Errorf("%s: %w", fileName, err)
					}

					fmt.Fprintln(output, token)
				}
			}
			return nil
		},
	}
}
