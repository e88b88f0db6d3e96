package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/reportwriter"
	"github.com/ginjaninja78/webshop-sales-report/internal/storage"
	"github.com/ginjaninja78/webshop-sales-report/internal/validation"
	"github.com/ginjaninja78/webshop-sales-report/pkg/utils"
)

// IssueLogFile is written to the report folder when a run collected issues.
const IssueLogFile = "issues.log"

// Published lists the files written for a run.
type Published struct {
	Dir          string
	Spreadsheet  string
	Workbook     string
	IssueLog     string
	HistoryRunID string
}

// Publisher writes the outputs of a run.
type Publisher struct {
	output  config.OutputSettings
	files   *utils.FileManager
	history *storage.Store
	logger  *zap.Logger
}

// NewPublisher creates a Publisher. history may be nil.
func NewPublisher(output config.OutputSettings, files *utils.FileManager, history *storage.Store, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{output: output, files: files, history: history, logger: logger}
}

// Publish writes the report folder of res: spreadsheet.csv from the finest
// report, report.xlsx with every report, issues.log when there are issues,
// and a history entry when a store is configured.
func (p *Publisher) Publish(ctx context.Context, res *Result) (*Published, error) {
	dir, err := p.reportDir(res)
	if err != nil {
		return nil, err
	}
	out := &Published{Dir: dir}

	if p.output.CSVEnabled() && res.Finest() != nil {
		out.Spreadsheet = filepath.Join(dir, reportwriter.SpreadsheetFile)
		if err := reportwriter.WriteCSV(out.Spreadsheet, res.Finest()); err != nil {
			return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
		}
	}

	if p.output.XLSXEnabled() && len(res.Reports) > 0 {
		out.Workbook = filepath.Join(dir, reportwriter.WorkbookFile)
		if err := reportwriter.WriteWorkbook(out.Workbook, res.Reports); err != nil {
			return nil, fmt.Errorf("failed to write workbook: %w", err)
		}
	}

	if len(res.Issues) > 0 {
		out.IssueLog = filepath.Join(dir, IssueLogFile)
		if err := validation.WriteIssueLog(res.Issues, out.IssueLog); err != nil {
			return nil, err
		}
	}

	if p.history != nil {
		status := storage.StatusOK
		if len(res.Issues) > 0 {
			status = storage.StatusWithIssues
		}
		run := storage.Run{
			ID:         res.RunID,
			Source:     res.Source,
			Identifier: res.Identifier,
			StartedAt:  res.StartedAt,
			Records:    res.Stats.Records,
			Issues:     len(res.Issues),
			Status:     status,
		}
		if err := p.history.SaveRun(ctx, run, res.Reports); err != nil {
			return nil, fmt.Errorf("failed to record run history: %w", err)
		}
		out.HistoryRunID = res.RunID
	}

	p.logger.Info("Report published",
		zap.String("run_id", res.RunID),
		zap.String("dir", dir),
		zap.Int("issues", len(res.Issues)),
	)
	return out, nil
}

// PublishIssues writes only the issue log of a failed run into its report
// folder. It returns "" when res carries no issues.
func (p *Publisher) PublishIssues(res *Result) (string, error) {
	if res == nil || len(res.Issues) == 0 {
		return "", nil
	}
	dir, err := p.reportDir(res)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, IssueLogFile)
	if err := validation.WriteIssueLog(res.Issues, path); err != nil {
		return "", err
	}
	return path, nil
}

func (p *Publisher) reportDir(res *Result) (string, error) {
	name := res.Identifier
	if name == "" {
		name = stem(res.Source)
	}
	return p.files.ReportDir(p.files.ExpandPlaceholders(name, nil))
}
