// =============================================================================
// Webshop Sales Report - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (salesreport)
//   ├── processCmd  (salesreport process)   exports in the input directory
//   ├── fetchCmd    (salesreport fetch)     orders from the webshop API
//   ├── validateCmd (salesreport validate)  configuration and exports
//   ├── historyCmd  (salesreport history)   stored runs
//   └── versionCmd  (salesreport version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration (and .env credentials)
//   3. Building the zap logger, flushed when the command ends
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/logging"
	"github.com/ginjaninja78/webshop-sales-report/internal/storage"
	"github.com/ginjaninja78/webshop-sales-report/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// appConfig and logger are set up by PersistentPreRunE.
var (
	appConfig *config.MainConfig
	logger    *zap.Logger
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "salesreport",
	Short: "Webshop Sales Report - payment-method sales reports from webshop exports",
	Long: `Webshop Sales Report turns the webshop's monthly report export (or its
SOAP API) into sales reports split by payment method.

Key Features:
  - Repairs export rows shifted by delimiters inside item descriptions
  - Splits the export into credit card, card terminal and cash orders
  - Reports per order, day, week, month or year with a Total column
  - Writes spreadsheet.csv and report.xlsx (with charts) per report
  - Optional SQLite history of every report

Example Usage:
  salesreport process                             # Report every export in the input directory
  salesreport fetch --start 2023-12-01 --end 2023-12-31
  salesreport fetch --today --by-order            # Today's orders, one row per order time
  salesreport validate --file input/export.csv    # Check an export against the layout`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err = logging.New(logging.Options{
			Level:   cfg.LogLevel,
			Verbose: verbose,
			File:    cfg.LogFile,
		})
		if err != nil {
			return err
		}

		logger.Debug("Configuration loaded", zap.String("config", cfgFile))
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file (a missing file means defaults)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// newFileManager builds the file manager for the loaded configuration.
func newFileManager() *utils.FileManager {
	fm := utils.NewFileManager(appConfig.InputDir, appConfig.OutputDir, appConfig.InputArchiveDir)
	fm.ArchiveOnSuccess = appConfig.Output.ArchiveEnabled()
	return fm
}

// openHistory opens the history store, or returns nil when none is configured.
func openHistory() (*storage.Store, error) {
	if appConfig.HistoryDB == "" {
		return nil, nil
	}
	store, err := storage.Open(appConfig.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return store, nil
}
