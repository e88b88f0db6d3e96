// =============================================================================
// Webshop Sales Report - Validation Engine
// =============================================================================
//
// This module provides two kinds of checks:
//   1. Export validation: is the export still the shape the layout describes?
//      (header width, overview labels, order rows, currency column)
//   2. Issue collection: cells that could not be normalized are recorded as
//      issues instead of being coerced to zero.
//
// ERROR HANDLING:
//   - Issues are collected, not returned immediately
//   - Each issue names the source, the block, the row and the cell value
//   - Issues are "error" (the order is missing from the totals) or "warning"
//     (the report is complete but something looked off)
//   - A run with error issues fails unless continue_on_error is set
//
// =============================================================================

package validation

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// ISSUE TYPE
// =============================================================================

// Issue is a single validation or normalization problem.
type Issue struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Source is the export file or "api".
	Source string

	// Block is the payment-method label of the block, when known.
	Block string

	// Row is the 0-based row inside the block or order list, -1 if none.
	Row int

	// Field names the cell or order field.
	Field string

	// Value is the raw value that failed.
	Value string

	// Rule is the rule that was violated ("amount", "date", "payment_method",
	// "layout", "overflow").
	Rule string

	// Message is a human-readable message.
	Message string

	// Err is the underlying error; it wraps one of the types error kinds.
	Err error
}

// Error implements the error interface.
func (i *Issue) Error() string {
	var b strings.Builder
	b.WriteString("[" + strings.ToUpper(i.Severity) + "]")
	if i.Source != "" {
		b.WriteString(" " + i.Source)
	}
	if i.Block != "" {
		b.WriteString(fmt.Sprintf(", block '%s'", i.Block))
	}
	if i.Row >= 0 {
		b.WriteString(fmt.Sprintf(", row %d", i.Row))
	}
	if i.Field != "" {
		b.WriteString(fmt.Sprintf(", field '%s'", i.Field))
	}
	b.WriteString(": " + i.Message)
	if i.Value != "" {
		b.WriteString(fmt.Sprintf(" (value: '%s')", i.Value))
	}
	return b.String()
}

// Unwrap exposes the error kind to errors.Is.
func (i *Issue) Unwrap() error {
	return i.Err
}

// NewIssue builds an error-level issue from err.
func NewIssue(block string, row int, field, value, rule string, err error) *Issue {
	return &Issue{
		Severity: SeverityError,
		Block:    block,
		Row:      row,
		Field:    field,
		Value:    value,
		Rule:     rule,
		Message:  err.Error(),
		Err:      err,
	}
}

// =============================================================================
// COLLECTOR
// =============================================================================

// Collector gathers issues from one run. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	source string
	issues []*Issue
}

// NewCollector creates a collector that stamps every issue with source.
func NewCollector(source string) *Collector {
	return &Collector{source: source}
}

// Add records issues. Nil issues are ignored.
func (c *Collector) Add(issues ...*Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, issue := range issues {
		if issue == nil {
			continue
		}
		if issue.Source == "" {
			issue.Source = c.source
		}
		c.issues = append(c.issues, issue)
	}
}

// Warn records a warning without a cell.
func (c *Collector) Warn(rule, message string) {
	c.Add(&Issue{Severity: SeverityWarning, Row: -1, Rule: rule, Message: message})
}

// Issues returns a copy of the collected issues.
func (c *Collector) Issues() []*Issue {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Issue, len(c.issues))
	copy(out, c.issues)
	return out
}

// ErrorCount returns the number of error-level issues.
func (c *Collector) ErrorCount() int {
	return CountErrors(c.Issues())
}

// Err joins all error-level issues, or returns nil when there are none.
func (c *Collector) Err() error {
	var errs []error
	for _, issue := range c.Issues() {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errors.Join(errs...)
}

// CountErrors returns the number of error-level issues.
func CountErrors(issues []*Issue) int {
	n := 0
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

// =============================================================================
// EXPORT VALIDATION
// =============================================================================

// ValidateExport checks a freshly read export against the layout before the
// realigner touches it.
//
// PARAMETERS:
//   - export: The export cut into header, labels and rows.
//   - layout: The layout the export was read with.
//   - categories: The configured label mapping and unknown method policy.
//     Unlisted overview labels are errors under the "error" policy and
//     warnings under "other".
//
// RETURNS:
//   - Issues found. Error-level issues mean the export cannot be reported.
func ValidateExport(export *types.RawExport, layout config.ExportLayout, categories config.CategorySettings) []*Issue {
	var issues []*Issue

	layoutIssue := func(severity, field, value, message string) {
		issues = append(issues, &Issue{
			Severity: severity,
			Source:   export.SourceFile,
			Row:      -1,
			Field:    field,
			Value:    value,
			Rule:     "layout",
			Message:  message,
			Err:      types.ErrMalformedExport,
		})
	}

	// =========================================================================
	// HEADER
	// =========================================================================

	if len(export.Header) == 0 {
		layoutIssue(SeverityError, "header", "", "export has no header row")
	} else if len(export.Header) < layout.Columns {
		layoutIssue(SeverityError, "header", strings.Join(export.Header, string(layout.Comma())),
			fmt.Sprintf("header has %d columns, expected at least %d", len(export.Header), layout.Columns))
	}

	// =========================================================================
	// OVERVIEW LABELS
	// =========================================================================

	seen := make(map[string]bool)
	for _, label := range export.Labels {
		if _, ok := categories.FileLabels[label]; !ok {
			severity := SeverityError
			if categories.UnknownMethod == config.UnknownMethodOther {
				severity = SeverityWarning
			}
			layoutIssue(severity, "overview", label,
				"overview lists a payment method with no configured category")
		}
		if seen[label] {
			layoutIssue(SeverityError, "overview", label, "overview lists a payment method twice")
		}
		seen[label] = true
	}

	// =========================================================================
	// DATA ROWS
	// =========================================================================

	if len(export.Rows) == 0 {
		layoutIssue(SeverityError, "rows", "", "export has no rows after the overview block")
		return issues
	}
	if width := export.Width(); width < layout.Columns {
		layoutIssue(SeverityError, "rows", "",
			fmt.Sprintf("widest row has %d columns, expected at least %d", width, layout.Columns))
		return issues
	}

	currencyRows := 0
	for _, row := range export.Rows {
		for _, cell := range row[min(layout.CurrencyColumn, len(row)):] {
			if strings.TrimSpace(cell) == layout.CurrencyCode {
				currencyRows++
				break
			}
		}
	}
	if currencyRows == 0 {
		layoutIssue(SeverityWarning, "rows", layout.CurrencyCode,
			fmt.Sprintf("no row carries the currency code at or after column %d", layout.CurrencyColumn))
	}

	return issues
}

// =============================================================================
// ISSUE FORMATTING
// =============================================================================

// FormatIssues formats issues for display or logging.
func FormatIssues(issues []*Issue) string {
	if len(issues) == 0 {
		return "No issues."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Completed with %d issue(s), %d error(s):\n\n",
		len(issues), CountErrors(issues)))

	for i, issue := range issues {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Error()))
	}

	return builder.String()
}

// WriteIssueLog writes issues to a log file with a timestamped header.
func WriteIssueLog(issues []*Issue, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create issue log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Issue log written %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatIssues(issues))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write issue log: %w", err)
	}
	return nil
}
