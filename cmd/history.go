// =============================================================================
// Webshop Sales Report - History Command
// =============================================================================
//
// COMMAND USAGE:
//   salesreport history                         # latest runs
//   salesreport history show <run-id> --granularity month
//
// Requires history_db in the configuration.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/webshop-sales-report/internal/aggregate"
	"github.com/ginjaninja78/webshop-sales-report/internal/report"
	"github.com/ginjaninja78/webshop-sales-report/internal/storage"
)

var (
	historyLimit       int
	historyGranularity string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List reports recorded in the history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireHistory()
		if err != nil {
			return err
		}
		defer store.Close()
		return listRuns(cmd.Context(), cmd.OutOrStdout(), store, historyLimit)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := aggregate.ParseGranularity(historyGranularity)
		if err != nil {
			return err
		}
		store, err := requireHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		rep, err := store.LoadReport(ctxOrBackground(cmd.Context()), args[0], g)
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), rep)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list (0 = all)")
	historyShowCmd.Flags().StringVar(&historyGranularity, "granularity", "day", "Report granularity to print")
}

func requireHistory() (*storage.Store, error) {
	store, err := openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("no history database configured (set history_db)")
	}
	return store, nil
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func listRuns(ctx context.Context, out io.Writer, store *storage.Store, limit int) error {
	runs, err := store.ListRuns(ctxOrBackground(ctx), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tSOURCE\tREPORT\tRECORDS\tISSUES\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			run.ID, run.StartedAt.Local().Format("2006-01-02 15:04"), run.Source,
			run.Identifier, run.Records, run.Issues, run.Status)
	}
	return w.Flush()
}

func printReport(out io.Writer, rep *report.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, strings.Join(rep.Header(), "\t")+"\t")
	for _, row := range rep.Rows {
		cells := []string{row.Key.String()}
		for _, category := range rep.Columns {
			cells = append(cells, row.Value(category).StringFixed(2))
		}
		cells = append(cells, row.Total.StringFixed(2))
		fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
	}
	return w.Flush()
}
