package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

func goodExport() *types.RawExport {
	header := []string{"Item", "Date", "Time", "Item number", "Amount", "Ex. vat", "Vat", "Incl. vat", "Currency", "Employe"}
	return &types.RawExport{
		SourceFile: "export.csv",
		Header:     header,
		Labels:     []string{"Kreditkort", "Kortterminal"},
		Rows: [][]string{
			{"Widget", "01-12-2023", "10:00", "1", "1", "100", "25", "125,00", "DKK", "emp"},
		},
	}
}

func errorIssues(issues []*Issue) []*Issue {
	var out []*Issue
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

func TestValidateExport_Valid(t *testing.T) {
	cfg := config.Default()
	issues := ValidateExport(goodExport(), cfg.Export, cfg.Categories)
	assert.Empty(t, issues)
}

func TestValidateExport_Problems(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name   string
		modify func(e *types.RawExport)
		field  string
	}{
		{"no header", func(e *types.RawExport) { e.Header = nil }, "header"},
		{"narrow header", func(e *types.RawExport) { e.Header = e.Header[:5] }, "header"},
		{"unknown label", func(e *types.RawExport) { e.Labels = append(e.Labels, "Bitcoin") }, "overview"},
		{"duplicate label", func(e *types.RawExport) { e.Labels = append(e.Labels, "Kreditkort") }, "overview"},
		{"no rows", func(e *types.RawExport) { e.Rows = nil }, "rows"},
		{"narrow rows", func(e *types.RawExport) { e.Rows = [][]string{{"a", "b"}} }, "rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			export := goodExport()
			tt.modify(export)

			errs := errorIssues(ValidateExport(export, cfg.Export, cfg.Categories))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.True(t, errors.Is(errs[0], types.ErrMalformedExport))
			assert.Equal(t, "export.csv", errs[0].Source)
		})
	}
}

func TestValidateExport_UnknownLabelUnderOtherPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Categories.UnknownMethod = config.UnknownMethodOther

	export := goodExport()
	export.Labels = append(export.Labels, "MobilePay")

	issues := ValidateExport(export, cfg.Export, cfg.Categories)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Equal(t, "MobilePay", issues[0].Value)
}

func TestValidateExport_MissingCurrencyIsWarning(t *testing.T) {
	cfg := config.Default()
	export := goodExport()
	export.Rows[0][8] = "EUR"

	issues := ValidateExport(export, cfg.Export, cfg.Categories)
	require.Len(t, issues, 1)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.Zero(t, CountErrors(issues))
}

func TestIssue_Error(t *testing.T) {
	issue := NewIssue("Kreditkort", 3, "amount", "12a", "amount",
		fmt.Errorf("%w: %q", types.ErrInvalidAmount, "12a"))
	issue.Source = "export.csv"

	msg := issue.Error()
	assert.True(t, strings.HasPrefix(msg, "[ERROR] export.csv"))
	assert.Contains(t, msg, "block 'Kreditkort'")
	assert.Contains(t, msg, "row 3")
	assert.Contains(t, msg, "(value: '12a')")
	assert.True(t, errors.Is(issue, types.ErrInvalidAmount))
}

func TestCollector(t *testing.T) {
	c := NewCollector("api")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(NewIssue("order", i, "Total", "x", "amount", types.ErrInvalidAmount))
		}(i)
	}
	wg.Wait()

	c.Add(nil)
	c.Warn("overflow", "row 4 overflows")

	issues := c.Issues()
	require.Len(t, issues, 11)
	assert.Equal(t, 10, c.ErrorCount())
	for _, issue := range issues {
		assert.Equal(t, "api", issue.Source)
	}

	err := c.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidAmount))

	assert.NoError(t, NewCollector("x").Err())
}

func TestFormatAndWriteIssueLog(t *testing.T) {
	assert.Equal(t, "No issues.", FormatIssues(nil))

	issues := []*Issue{
		NewIssue("Kortterminal", 0, "date", "32-13-2023", "date", types.ErrInvalidDate),
		{Severity: SeverityWarning, Row: -1, Rule: "overflow", Message: "extra cells dropped"},
	}
	formatted := FormatIssues(issues)
	assert.Contains(t, formatted, "2 issue(s), 1 error(s)")
	assert.Contains(t, formatted, "2. [WARNING]: extra cells dropped")

	path := filepath.Join(t.TempDir(), "issues.log")
	require.NoError(t, WriteIssueLog(issues, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Issue log written")
	assert.Contains(t, string(data), "32-13-2023")
}
