// =============================================================================
// Webshop Sales Report - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It checks the configuration and
// runs every export through the pipeline without writing anything, listing
// all layout problems and cells that would not normalize.
//
// COMMAND USAGE:
//   salesreport validate                 # configuration + input directory
//   salesreport validate --file x.csv    # configuration + one export
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/webshop-sales-report/internal/pipeline"
	"github.com/ginjaninja78/webshop-sales-report/internal/validation"
)

var validateFile string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and the exports without writing reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateFile, "file", "", "Validate a single export file")
}

func runValidate(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Load already validated the configuration.
	fmt.Fprintf(out, "Configuration %s: OK\n", cfgFile)

	files := []string{validateFile}
	if validateFile == "" {
		discovered, err := newFileManager().DiscoverExports()
		if err != nil {
			return fmt.Errorf("failed to discover exports: %w", err)
		}
		files = discovered
	}

	// Collect every issue instead of stopping at the first bad cell.
	cfg := *appConfig
	cfg.ContinueOnError = true
	p, err := pipeline.New(&cfg, logger)
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		res, err := p.RunFile(ctx, file)
		var issues []*validation.Issue
		if res != nil {
			issues = res.Issues
		}

		switch {
		case err != nil:
			failed++
			fmt.Fprintf(out, "\n%s: FAILED: %v\n", filepath.Base(file), err)
		case validation.CountErrors(issues) > 0:
			failed++
			fmt.Fprintf(out, "\n%s: %d record(s), %d repaired row(s)\n", filepath.Base(file), res.Stats.Records, res.Stats.Repaired)
		default:
			fmt.Fprintf(out, "\n%s: OK, %d record(s), %d repaired row(s)\n", filepath.Base(file), res.Stats.Records, res.Stats.Repaired)
		}
		if len(issues) > 0 {
			fmt.Fprint(out, validation.FormatIssues(issues))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d export(s) have errors", failed, len(files))
	}
	return nil
}
