// =============================================================================
// Webshop Sales Report - Fetch Command
// =============================================================================
//
// This file defines the 'fetch' command, which reports completed orders
// straight from the webshop's SOAP API.
//
// COMMAND USAGE:
//   salesreport fetch --start 2023-12-01 --end 2023-12-31
//   salesreport fetch --today --by-order
//
// Credentials come from HOSTEDSHOP_USERNAME / HOSTEDSHOP_PASSWORD (a .env
// file next to the binary is loaded) or from api.username / api.password.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/webshop-sales-report/internal/pipeline"
	"github.com/ginjaninja78/webshop-sales-report/internal/soap"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

var (
	fetchStart   string
	fetchEnd     string
	fetchToday   bool
	fetchByOrder bool
	fetchCreated bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Report orders fetched from the webshop API",
	Long: `The fetch command downloads the completed orders of a date range from the
webshop API and writes a report folder for them.

Without --by-order the report uses the configured granularities. With
--by-order every distinct order time is its own row and the folder is named
with output.daily_folder_format.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := fetchRange(time.Now())
		if err != nil {
			return err
		}
		return runFetch(cmd.Context(), cmd.OutOrStdout(), r)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "First day of the range (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "Last day of the range (YYYY-MM-DD, default: --start)")
	fetchCmd.Flags().BoolVar(&fetchToday, "today", false, "Report today's orders")
	fetchCmd.Flags().BoolVar(&fetchByOrder, "by-order", false, "One row per order time instead of per day")
	fetchCmd.Flags().BoolVar(&fetchCreated, "order-date", false, "Key orders by DateCreated instead of api.date_field")
	fetchCmd.MarkFlagsMutuallyExclusive("today", "start")
	fetchCmd.MarkFlagsMutuallyExclusive("today", "end")
}

// fetchRange builds the date range from the flags.
func fetchRange(now time.Time) (types.DateRange, error) {
	if fetchToday {
		return types.Today(now), nil
	}
	if fetchStart == "" {
		return types.DateRange{}, fmt.Errorf("either --today or --start is required")
	}
	end := fetchEnd
	if end == "" {
		end = fetchStart
	}
	return types.ParseDateRange(fetchStart, end)
}

func runFetch(ctx context.Context, out io.Writer, r types.DateRange) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := appConfig.RequireCredentials(); err != nil {
		return err
	}
	if fetchCreated {
		appConfig.API.DateField = "DateCreated"
	}

	client, err := soap.NewClient(appConfig.API, logger)
	if err != nil {
		return err
	}

	p, err := pipeline.New(appConfig, logger)
	if err != nil {
		return err
	}

	fm := newFileManager()
	if err := fm.EnsureDirectories(); err != nil {
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

	fmt.Fprintf(out, "Fetching orders %s...\n", r)

	res, err := p.RunAPI(ctx, client, r, fetchByOrder)
	if err != nil {
		if res != nil {
			if path, logErr := publisher.PublishIssues(res); logErr == nil && path != "" {
				fmt.Fprintf(out, "Issues written to %s\n", path)
			}
		}
		return err
	}

	published, err := publisher.Publish(ctx, res)
	if err != nil {
		return err
	}

	logger.Info("Fetch complete",
		zap.String("run_id", res.RunID),
		zap.Int("orders", res.Stats.Orders),
		zap.String("dir", published.Dir),
	)

	fmt.Fprintf(out, "Orders:   %d\n", res.Stats.Orders)
	fmt.Fprintf(out, "Records:  %d\n", res.Stats.Records)
	fmt.Fprintf(out, "Issues:   %d\n", len(res.Issues))
	fmt.Fprintf(out, "Report:   %s\n", published.Dir)
	return nil
}
