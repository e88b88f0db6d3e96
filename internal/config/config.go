// =============================================================================
// Webshop Sales Report - Configuration Module
// =============================================================================
//
// This module is responsible for loading and validating the main configuration
// file. It describes:
//   1. Where exports are read from and where reports are written
//   2. The layout of the legacy export file (delimiter, encoding, offsets)
//   3. How to reach the webshop SOAP API
//   4. How payment-method labels map to report categories
//
// CREDENTIALS:
//   The API username and password are never read from the YAML file when the
//   environment provides them. A ".env" file next to the binary is loaded
//   first, so HOSTEDSHOP_USERNAME / HOSTEDSHOP_PASSWORD can live there.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// Environment variables that override the API credentials.
const (
	EnvUsername = "HOSTEDSHOP_USERNAME"
	EnvPassword = "HOSTEDSHOP_PASSWORD"
)

// Unknown payment method policies.
const (
	UnknownMethodError = "error"
	UnknownMethodOther = "other"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for export files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir is the directory where report folders are created.
	// Default: "./Reports"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives exports after they were reported successfully.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional file that receives a copy of the log output.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of exports processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps a run going when individual cells fail to
	// normalize. The failed rows are left out of the totals and listed in
	// the issue log. Default: false
	ContinueOnError bool `yaml:"continue_on_error"`

	// Granularities lists the report resolutions produced for each run.
	// Default: ["day", "week", "month"]
	Granularities []string `yaml:"granularities"`

	// HistoryDB is an optional SQLite database that records every report.
	HistoryDB string `yaml:"history_db"`

	// =========================================================================
	// NESTED SETTINGS
	// =========================================================================

	Export     ExportLayout     `yaml:"export"`
	API        APISettings      `yaml:"api"`
	Categories CategorySettings `yaml:"categories"`
	Output     OutputSettings   `yaml:"output"`
}

// =============================================================================
// EXPORT LAYOUT
// =============================================================================

// ExportLayout describes the legacy "monthly report" export of the webshop.
// Row numbers are 0-based and count data rows after the header rows.
type ExportLayout struct {
	// Delimiter is the field separator. Default: ";"
	Delimiter string `yaml:"delimiter"`

	// Encoding is the character set of the file. Default: "ISO-8859-10"
	Encoding string `yaml:"encoding"`

	// Sheet is the worksheet read from .xlsx exports. Default: the first sheet
	Sheet string `yaml:"sheet"`

	// HeaderRows is the number of header rows. Default: 1
	HeaderRows int `yaml:"header_rows"`

	// OverviewStartRow and OverviewEndRow delimit (end exclusive) the rows of
	// the overview block that list the payment-method labels in column 0.
	// Default: 7 and 9
	OverviewStartRow int `yaml:"overview_start_row"`
	OverviewEndRow   int `yaml:"overview_end_row"`

	// DataStartRow is the first order row. Default: 13
	DataStartRow int `yaml:"data_start_row"`

	// Columns is the canonical number of columns after repair. Default: 10
	Columns int `yaml:"columns"`

	// CurrencyCode is the literal expected in CurrencyColumn of every order
	// row. Default: "DKK"
	CurrencyCode string `yaml:"currency_code"`

	// CurrencyColumn is where CurrencyCode sits in an unshifted row.
	// Default: 8
	CurrencyColumn int `yaml:"currency_column"`

	// DateColumn holds the order date (DD-MM-YYYY). Default: 1
	DateColumn int `yaml:"date_column"`

	// AmountColumn holds the VAT-inclusive amount. Default: 7
	AmountColumn int `yaml:"amount_column"`
}

// Comma returns the delimiter as a rune for encoding/csv.
func (l ExportLayout) Comma() rune {
	switch l.Delimiter {
	case "\\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	}
	if len(l.Delimiter) > 0 {
		return []rune(l.Delimiter)[0]
	}
	return ';'
}

// =============================================================================
// API SETTINGS
// =============================================================================

// APISettings configures the webshop SOAP API.
type APISettings struct {
	// Endpoint is the SOAP service URL.
	// Default: "https://api.hostedshop.io/service.php"
	Endpoint string `yaml:"endpoint"`

	// Namespace is the target namespace of the service operations.
	// Default: "urn:webshop"
	Namespace string `yaml:"namespace"`

	// Username and Password are overridden by the environment.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// OrderStatus is the status filter passed to Order_GetByDate.
	// Default: "8" (completed)
	OrderStatus string `yaml:"order_status"`

	// DateField is the order field used as the time key.
	// Default: "DateDelivered"
	DateField string `yaml:"date_field"`

	// Timeout bounds every HTTP request. Default: 60s
	Timeout time.Duration `yaml:"timeout"`
}

// =============================================================================
// CATEGORY SETTINGS
// =============================================================================

// CategorySettings maps payment-method labels to report categories.
type CategorySettings struct {
	// FileLabels maps overview labels in the export to categories.
	FileLabels map[string]string `yaml:"file_labels"`

	// FinalCategory is the category of the implicit last block of the export.
	// Default: "cash"
	FinalCategory string `yaml:"final_category"`

	// APIMethods maps API payment titles to categories.
	APIMethods map[string]string `yaml:"api_methods"`

	// UnknownMethod is "error" (default) or "other".
	UnknownMethod string `yaml:"unknown_method"`
}

// =============================================================================
// OUTPUT SETTINGS
// =============================================================================

// OutputSettings controls report naming and formats.
type OutputSettings struct {
	// FolderFormat names the report folder.
	// Placeholders: {first}, {last}, {date}, {timestamp}, {uuid}
	// Default: "{first}_to_{last}"
	FolderFormat string `yaml:"folder_format"`

	// DailyFolderFormat names the folder of a by-order daily report.
	// Default: "Daily_report_{first}"
	DailyFolderFormat string `yaml:"daily_folder_format"`

	// WriteCSV writes spreadsheet.csv (day or order resolution). Default: true
	WriteCSV *bool `yaml:"write_csv"`

	// WriteXLSX writes report.xlsx with one sheet per granularity. Default: true
	WriteXLSX *bool `yaml:"write_xlsx"`

	// ArchiveInputs moves processed exports to InputArchiveDir. Default: true
	ArchiveInputs *bool `yaml:"archive_inputs"`
}

// CSVEnabled reports whether the CSV spreadsheet should be written.
func (o OutputSettings) CSVEnabled() bool { return o.WriteCSV == nil || *o.WriteCSV }

// XLSXEnabled reports whether the workbook should be written.
func (o OutputSettings) XLSXEnabled() bool { return o.WriteXLSX == nil || *o.WriteXLSX }

// ArchiveEnabled reports whether processed exports are archived.
func (o OutputSettings) ArchiveEnabled() bool { return o.ArchiveInputs == nil || *o.ArchiveInputs }

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the main configuration from a YAML file, applies defaults,
// overlays environment credentials and validates the result. A missing file
// is not an error: the defaults describe the standard export.
func Load(configPath string) (*MainConfig, error) {
	// A missing .env file is the common case.
	_ = godotenv.Load()

	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyMainConfigDefaults(&config)
	applyEnvironment(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a validated configuration built from defaults only.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./Reports"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if len(config.Granularities) == 0 {
		config.Granularities = []string{"day", "week", "month"}
	}

	applyExportDefaults(&config.Export)
	applyAPIDefaults(&config.API)
	applyCategoryDefaults(&config.Categories)

	if config.Output.FolderFormat == "" {
		config.Output.FolderFormat = "{first}_to_{last}"
	}
	if config.Output.DailyFolderFormat == "" {
		config.Output.DailyFolderFormat = "Daily_report_{first}"
	}
}

// applyExportDefaults describes the standard monthly export.
func applyExportDefaults(layout *ExportLayout) {
	if layout.Delimiter == "" {
		layout.Delimiter = ";"
	}
	if layout.Encoding == "" {
		layout.Encoding = "ISO-8859-10"
	}
	if layout.HeaderRows == 0 {
		layout.HeaderRows = 1
	}
	if layout.OverviewStartRow == 0 && layout.OverviewEndRow == 0 {
		layout.OverviewStartRow = 7
		layout.OverviewEndRow = 9
	}
	if layout.DataStartRow == 0 {
		layout.DataStartRow = 13
	}
	if layout.Columns == 0 {
		layout.Columns = 10
	}
	if layout.CurrencyCode == "" {
		layout.CurrencyCode = "DKK"
	}
	if layout.CurrencyColumn == 0 {
		layout.CurrencyColumn = 8
	}
	if layout.DateColumn == 0 {
		layout.DateColumn = 1
	}
	if layout.AmountColumn == 0 {
		layout.AmountColumn = 7
	}
}

func applyAPIDefaults(api *APISettings) {
	if api.Endpoint == "" {
		api.Endpoint = "https://api.hostedshop.io/service.php"
	}
	if api.Namespace == "" {
		api.Namespace = "urn:webshop"
	}
	if api.OrderStatus == "" {
		api.OrderStatus = "8"
	}
	if api.DateField == "" {
		api.DateField = "DateDelivered"
	}
	if api.Timeout == 0 {
		api.Timeout = 60 * time.Second
	}
}

func applyCategoryDefaults(categories *CategorySettings) {
	if len(categories.FileLabels) == 0 {
		categories.FileLabels = map[string]string{
			"Kreditkort":   string(types.CreditCard),
			"Kortterminal": string(types.CardTerminal),
			"Kontant":      string(types.Cash),
		}
	}
	if categories.FinalCategory == "" {
		categories.FinalCategory = string(types.Cash)
	}
	if len(categories.APIMethods) == 0 {
		categories.APIMethods = map[string]string{
			"Kreditkortbetaling": string(types.CreditCard),
			"Kortterminal":       string(types.CardTerminal),
			"Kontant betaling":   string(types.Cash),
		}
	}
	if categories.UnknownMethod == "" {
		categories.UnknownMethod = UnknownMethodError
	}
}

// applyEnvironment overlays credentials from the environment.
func applyEnvironment(config *MainConfig) {
	if v := os.Getenv(EnvUsername); v != "" {
		config.API.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		config.API.Password = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration and returns all problems at once.
func (c *MainConfig) Validate() error {
	var problems []string

	if c.MaxConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("max_concurrency %d must be at least 1", c.MaxConcurrency))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
	}

	layout := c.Export
	if layout.Columns < 1 {
		problems = append(problems, "export.columns must be positive")
	}
	for name, col := range map[string]int{
		"currency_column": layout.CurrencyColumn,
		"date_column":     layout.DateColumn,
		"amount_column":   layout.AmountColumn,
	} {
		if col < 0 || col >= layout.Columns {
			problems = append(problems, fmt.Sprintf("export.%s %d is outside the %d canonical columns", name, col, layout.Columns))
		}
	}
	if layout.OverviewEndRow < layout.OverviewStartRow {
		problems = append(problems, "export.overview_end_row is before overview_start_row")
	}
	if layout.DataStartRow < layout.OverviewEndRow {
		problems = append(problems, "export.data_start_row overlaps the overview block")
	}

	for label, name := range c.Categories.FileLabels {
		if _, err := types.ParseCategory(name); err != nil {
			problems = append(problems, fmt.Sprintf("categories.file_labels[%q]: %v", label, err))
		}
	}
	for label, name := range c.Categories.APIMethods {
		if _, err := types.ParseCategory(name); err != nil {
			problems = append(problems, fmt.Sprintf("categories.api_methods[%q]: %v", label, err))
		}
	}
	if _, err := types.ParseCategory(c.Categories.FinalCategory); err != nil {
		problems = append(problems, fmt.Sprintf("categories.final_category: %v", err))
	}
	switch c.Categories.UnknownMethod {
	case UnknownMethodError, UnknownMethodOther:
	default:
		problems = append(problems, fmt.Sprintf("categories.unknown_method %q must be %q or %q",
			c.Categories.UnknownMethod, UnknownMethodError, UnknownMethodOther))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// RequireCredentials checks that the API can be reached with credentials.
func (c *MainConfig) RequireCredentials() error {
	if c.API.Username == "" || c.API.Password == "" {
		return fmt.Errorf("API credentials missing: set %s and %s or api.username/api.password",
			EnvUsername, EnvPassword)
	}
	return nil
}

// EnsureDirectories creates the input and output directories.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
