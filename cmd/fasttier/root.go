package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/pattyshack/gt/parseutil"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pattyshack/fasttier/analyzer"
	"github.com/pattyshack/fasttier/analyzer/tiering"
	"github.com/pattyshack/fasttier/ast"
	"github.com/pattyshack/fasttier/logger"
	"github.com/pattyshack/fasttier/parser"
)

var (
	// Global flags
	verbose bool
	jsonOut bool

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "fasttier",
	Short: "Select heap allocations for the fast memory tier",
	Long: `fasttier analyzes the heap allocations of an ssa ir program, ranks them by
their estimated access intensity, and retargets the allocations (together with
their matching deallocations) that fit in the fast memory tier to the fast
tier allocator.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		opts := logger.Options{}
		if verbose {
			opts.Output = cmd.ErrOrStderr()
			opts.Verbose = true
		}
		logger.Init(opts)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to stderr")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML tiering config (defaults when omitted)")
}

func loadConfig() (tiering.Config, error) {
	if configPath == "" {
		return tiering.DefaultConfig(), nil
	}
	return tiering.LoadConfig(configPath)
}

// diagnosticsError wraps the located errors reported by the front end.
type diagnosticsError struct {
	errs []error
}

func (err *diagnosticsError) Error() string {
	return fmt.Sprintf(
		"found %d errors:\n%s",
		len(err.errs),
		errors.Join(err.errs...))
}

func (err *diagnosticsError) Unwrap() []error {
	return err.errs
}

// Parses the files concurrently, then analyzes the combined program.  The
// parsed sources are returned even when the front end reported errors.
func loadProgram(
	ctx context.Context,
	fileNames []string,
) (
	[]ast.SourceEntry,
	error,
) {
	parsed := make([][]ast.SourceEntry, len(fileNames))
	emitters := make([]*parseutil.Emitter, len(fileNames))

	group, groupCtx := errgroup.WithContext(ctx)
	for idx, fileName := range fileNames {
		group.Go(func() error {
			// Skip the remaining files once any read failed.
			err := groupCtx.Err()
			if err != nil {
				return err
			}

			content, err := os.ReadFile(fileName)
			if err != nil {
				return fmt.Errorf("failed to read source: %w", err)
			}

			emitter := &parseutil.Emitter{}
			parsed[idx] = parser.ParseSource(fileName, content, emitter)
			emitters[idx] = emitter
			logger.Debug("parsed source", "file", fileName, "entries", len(parsed[idx]))
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	emitter := &parseutil.Emitter{}
	sources := []ast.SourceEntry{}
	for idx := range fileNames {
		emitter.EmitErrors(emitters[idx].Errors()...)
		sources = append(sources, parsed[idx]...)
	}

	if !emitter.HasErrors() {
		analyzer.Analyze(sources, emitter)
	}

	if emitter.HasErrors() {
		return sources, &diagnosticsError{errs: emitter.Errors()}
	}

	return sources, nil
}

func runPass(ctx context.Context, fileNames []string) (*tiering.Result, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	sources, err := loadProgram(ctx, fileNames)
	if err != nil {
		return nil, err
	}

	return tiering.Run(sources, config, logger.L)
}

func printJSON(output io.Writer, v interface{}) error {
	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
