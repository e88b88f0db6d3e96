// =============================================================================
// Webshop Sales Report - Process Command
// =============================================================================
//
// This file defines the 'process' command, which reports every export found
// in the input directory.
//
// COMMAND USAGE:
//   salesreport process [flags]
//
// FLAGS:
//   --file      : Report a single export instead of scanning the input directory
//   --dry-run   : Run the pipeline without writing reports or archiving
//
// PROCESSING PIPELINE:
//   1. Discover exports (.csv, .xlsx) in the input directory
//   2. For each export (concurrently, at most max_concurrency at once):
//      a. Read, validate, realign, segment, normalize, aggregate
//      b. Write the report folder (spreadsheet.csv, report.xlsx, issues.log)
//      c. Record the run in the history database, when configured
//      d. Move the export to the input archive
//   3. Write summary_<timestamp>.log to the output directory
//
// A failed export does not stop the others. It stays in the input directory
// and, when issues were collected, its issues.log is written.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/webshop-sales-report/internal/pipeline"
	"github.com/ginjaninja78/webshop-sales-report/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	processFile string
	dryRun      bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Report every export in the input directory",
	Long: `The process command scans the input directory for webshop exports and
writes one report folder per export.

On success:
  - <output_dir>/<first>_to_<last>/ holds spreadsheet.csv and report.xlsx
  - The export is moved to the input archive

On error:
  - The export remains in the input directory
  - Collected issues are written to issues.log in its report folder
  - Processing continues for other exports`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVar(&processFile, "file", "", "Report a single export file")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the pipeline without writing reports or archiving")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fm := newFileManager()
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: DISCOVER EXPORTS
	// =========================================================================

	var files []string
	if processFile != "" {
		files = []string{processFile}
	} else {
		discovered, err := fm.DiscoverExports()
		if err != nil {
			return fmt.Errorf("failed to discover exports: %w", err)
		}
		files = discovered
	}

	if len(files) == 0 {
		fmt.Fprintf(out, "No exports found in %s.\n", fm.InputDir)
		return nil
	}
	fmt.Fprintf(out, "Found %d export(s) to process\n", len(files))

	// =========================================================================
	// STEP 2: PROCESS EXPORTS CONCURRENTLY
	// =========================================================================

	p, err := pipeline.New(appConfig, logger)
	if err != nil {
		return err
	}

	history, err := openHistory()
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}
	publisher := pipeline.NewPublisher(appConfig.Output, fm, history, logger)

	summary := utils.ProcessingSummary{StartTime: time.Now(), TotalFiles: len(files)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(appConfig.MaxConcurrency)

	for _, file := range files {
		file := file
		g.Go(func() error {
			info, err := processExport(gctx, p, publisher, fm, file)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				summary.FailedFiles++
				summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
					InputFile:    file,
					ErrorMessage: err.Error(),
				})
				logger.Error("Export failed", zap.String("file", file), zap.Error(err))
				fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(file), err)
				return nil
			}

			summary.SuccessfulFiles++
			summary.TotalRecords += info.Records
			summary.RepairedRows += info.Repaired
			summary.Issues += info.Issues
			summary.ProcessedFiles = append(summary.ProcessedFiles, *info)
			fmt.Fprintf(out, "  ✓ %s -> %s\n", filepath.Base(file), info.ReportDir)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: SUMMARY
	// =========================================================================

	summary.EndTime = time.Now()

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total exports:   %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Failed:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Records:         %d\n", summary.TotalRecords)
	fmt.Fprintf(out, "Repaired rows:   %d\n", summary.RepairedRows)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime))

	if !dryRun {
		summaryPath, err := utils.WriteSummaryLog(summary, appConfig.OutputDir)
		if err != nil {
			logger.Warn("Failed to write summary log", zap.Error(err))
		} else {
			fmt.Fprintf(out, "Summary:         %s\n", summaryPath)
		}
	}

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d export(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processExport runs one export end to end.
func processExport(ctx context.Context, p *pipeline.Pipeline, publisher *pipeline.Publisher, fm *utils.FileManager, file string) (*utils.ProcessedFileInfo, error) {
	res, err := p.RunFile(ctx, file)
	if err != nil {
		if res != nil && !dryRun {
			if path, logErr := publisher.PublishIssues(res); logErr != nil {
				logger.Warn("Failed to write issue log", zap.String("file", file), zap.Error(logErr))
			} else if path != "" {
				return nil, fmt.Errorf("%w (issues in %s)", err, path)
			}
		}
		return nil, err
	}

	info := &utils.ProcessedFileInfo{
		InputFile:   file,
		RunID:       res.RunID,
		Records:     res.Stats.Records,
		Repaired:    res.Stats.Repaired,
		Issues:      len(res.Issues),
		ProcessTime: res.Stats.ProcessingTime,
	}

	if dryRun {
		info.ReportDir = res.Identifier + " (dry run)"
		return info, nil
	}

	published, err := publisher.Publish(ctx, res)
	if err != nil {
		return nil, err
	}
	info.ReportDir = published.Dir

	archived, err := fm.ArchiveInputFile(file)
	if err != nil {
		// Report already written; the export stays in place.
		logger.Warn("Failed to archive export", zap.String("file", file), zap.Error(err))
	} else if archived != file {
		info.ArchivePath = archived
	}

	return info, nil
}
