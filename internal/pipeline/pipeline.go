// =============================================================================
// Webshop Sales Report - Pipeline
// =============================================================================
//
// This module orchestrates one report run. A run starts either from an export
// file or from the webshop API and ends with one merged report per configured
// granularity.
//
// FILE PIPELINE:
//   1. Read the export (CSV or XLSX)
//   2. Validate it against the export layout
//   3. Realign shifted rows
//   4. Segment the table into payment-method blocks
//   5. Normalize cells into records
//   6. Aggregate and merge per granularity
//
// API PIPELINE:
//   1. Fetch orders for a date range from an OrderSource
//   2. Normalize orders into records
//   3. Aggregate and merge per granularity
//
// Structural problems (unreadable file, missing marker rows) abort the run.
// Cells that fail to normalize are collected as issues; unless
// continue_on_error is set they fail the run after normalization, with the
// Result still carrying every issue so it can be logged.
//
// Each Pipeline call owns its tables, so one Pipeline can serve several
// goroutines.
//
// =============================================================================

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/webshop-sales-report/internal/aggregate"
	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/csvparser"
	"github.com/ginjaninja78/webshop-sales-report/internal/normalize"
	"github.com/ginjaninja78/webshop-sales-report/internal/realign"
	"github.com/ginjaninja78/webshop-sales-report/internal/report"
	"github.com/ginjaninja78/webshop-sales-report/internal/segment"
	"github.com/ginjaninja78/webshop-sales-report/internal/soap"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
	"github.com/ginjaninja78/webshop-sales-report/internal/validation"
	"github.com/ginjaninja78/webshop-sales-report/internal/xlsxparser"
)

// SourceAPI is the Result.Source of API runs.
const SourceAPI = "api"

// OrderSource fetches the orders of a date range. *soap.Client implements it.
type OrderSource interface {
	FetchOrders(ctx context.Context, r types.DateRange) ([]soap.Order, error)
}

var _ OrderSource = (*soap.Client)(nil)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one run.
type Result struct {
	// RunID identifies the run in logs and in the history store.
	RunID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// Source is the export path, or SourceAPI.
	Source string

	// Identifier names the report folder.
	Identifier string

	// Reports holds one report per granularity, finest first.
	Reports []*report.Report

	// Issues lists every collected issue, warnings included.
	Issues []*validation.Issue

	// Stats contains processing statistics.
	Stats Stats
}

// Stats contains statistics about a run.
type Stats struct {
	// Rows is the number of order-section rows read from the export.
	Rows int

	// Excess is the number of columns beyond the canonical width.
	Excess int

	// Repaired is the number of realigned rows; RepairedByShift splits it
	// by shift amount.
	Repaired        int
	RepairedByShift map[int]int

	// Unmatched is the number of overflowing rows no sentinel explained.
	Unmatched int

	// Blocks is the number of payment-method blocks.
	Blocks int

	// Orders is the number of orders received from the API.
	Orders int

	// Records is the number of normalized records.
	Records int

	// Errors is the number of error-level issues.
	Errors int

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// Report returns the report at granularity g, or nil.
func (r *Result) Report(g aggregate.Granularity) *report.Report {
	for _, rep := range r.Reports {
		if rep.Granularity == g {
			return rep
		}
	}
	return nil
}

// Finest returns the finest report of the run.
func (r *Result) Finest() *report.Report {
	if len(r.Reports) == 0 {
		return nil
	}
	return r.Reports[0]
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline runs reports for one configuration.
type Pipeline struct {
	cfg           *config.MainConfig
	normalizer    *normalize.Normalizer
	realigner     *realign.Realigner
	granularities []aggregate.Granularity
	logger        *zap.Logger
}

// New creates a Pipeline.
//
// RETURNS:
//   - An error if the category mapping or the granularities are invalid.
func New(cfg *config.MainConfig, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	normalizer, err := normalize.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create normalizer: %w", err)
	}

	granularities, err := aggregate.ParseGranularities(cfg.Granularities)
	if err != nil {
		return nil, fmt.Errorf("invalid granularities: %w", err)
	}
	if len(granularities) == 0 {
		granularities = []aggregate.Granularity{aggregate.Day}
	}
	sortFinestFirst(granularities)

	realigner := realign.New(realign.SentinelTable{{
		Column:  cfg.Export.CurrencyColumn,
		Literal: cfg.Export.CurrencyCode,
	}}, cfg.Export.Delimiter)
	realigner.Columns = cfg.Export.Columns

	return &Pipeline{
		cfg:           cfg,
		normalizer:    normalizer,
		realigner:     realigner,
		granularities: granularities,
		logger:        logger,
	}, nil
}

// Granularities returns the report granularities, finest first.
func (p *Pipeline) Granularities() []aggregate.Granularity {
	return append([]aggregate.Granularity{}, p.granularities...)
}

// =============================================================================
// FILE PIPELINE
// =============================================================================

// RunFile reads the export at path and reports it.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Result, error) {
	export, err := ReadExport(path, p.cfg.Export)
	if err != nil {
		return nil, err
	}
	return p.RunExport(ctx, export)
}

// ReadExport reads a CSV or XLSX export, chosen by extension.
func ReadExport(path string, layout config.ExportLayout) (*types.RawExport, error) {
	if xlsxparser.IsWorkbook(path) {
		export, err := xlsxparser.Parse(path, layout)
		if err != nil {
			return nil, fmt.Errorf("failed to read workbook %s: %w", path, err)
		}
		return export, nil
	}

	export, err := csvparser.Parse(path, layout)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", path, err)
	}
	return export, nil
}

// RunExport reports an export that has already been read.
func (p *Pipeline) RunExport(ctx context.Context, export *types.RawExport) (*Result, error) {
	result := p.newResult(export.SourceFile)
	issues := validation.NewCollector(export.SourceFile)
	log := p.logger.With(zap.String("run_id", result.RunID), zap.String("source", export.SourceFile))

	log.Info("Processing export", zap.Int("rows", len(export.Rows)), zap.Strings("labels", export.Labels))
	result.Stats.Rows = len(export.Rows)

	// =========================================================================
	// STEP 1: VALIDATE LAYOUT
	// =========================================================================

	issues.Add(validation.ValidateExport(export, p.cfg.Export, p.cfg.Categories)...)
	if issues.ErrorCount() > 0 {
		result.Issues = issues.Issues()
		result.Stats.Errors = issues.ErrorCount()
		return result, fmt.Errorf("export %s does not match the layout: %w", export.SourceFile, issues.Err())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 2: REALIGN
	// =========================================================================

	aligned, err := p.realigner.Realign(export.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to realign %s: %w", export.SourceFile, err)
	}

	result.Stats.Excess = aligned.Excess
	result.Stats.Repaired = aligned.TotalRepaired()
	result.Stats.RepairedByShift = aligned.Repaired
	result.Stats.Unmatched = len(aligned.Unmatched)
	for _, row := range aligned.Unmatched {
		issues.Warn("overflow", fmt.Sprintf("row %d overflows the export width but holds no currency code; extra cells dropped",
			p.cfg.Export.DataStartRow+row))
	}

	log.Debug("Realigned export",
		zap.Int("excess", aligned.Excess),
		zap.Int("repaired", result.Stats.Repaired),
		zap.Int("unmatched", result.Stats.Unmatched),
	)

	// =========================================================================
	// STEP 3: SEGMENT
	// =========================================================================

	blocks, err := segment.Segment(aligned.Table, export.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to segment %s: %w", export.SourceFile, err)
	}
	result.Stats.Blocks = len(blocks)

	// =========================================================================
	// STEP 4: NORMALIZE
	// =========================================================================

	records, cellIssues := p.normalizer.NormalizeBlocks(blocks)
	issues.Add(cellIssues...)

	if err := p.checkIssues(result, issues, log); err != nil {
		return result, err
	}

	// =========================================================================
	// STEP 5: AGGREGATE AND MERGE
	// =========================================================================

	p.buildReports(result, records, p.granularities)
	result.Identifier = identifier(result.Finest(), p.cfg.Output.FolderFormat, stem(export.SourceFile), "")
	result.Stats.ProcessingTime = time.Since(result.StartedAt)

	log.Info("Export reported",
		zap.String("identifier", result.Identifier),
		zap.Int("records", result.Stats.Records),
		zap.Int("issues", len(result.Issues)),
		zap.Duration("duration", result.Stats.ProcessingTime),
	)
	return result, nil
}

// =============================================================================
// API PIPELINE
// =============================================================================

// RunAPI fetches the orders of r from source and reports them. With byOrder
// the report is keyed by full order timestamp and named with the daily
// folder format.
func (p *Pipeline) RunAPI(ctx context.Context, source OrderSource, r types.DateRange, byOrder bool) (*Result, error) {
	result := p.newResult(SourceAPI)
	issues := validation.NewCollector(SourceAPI)
	log := p.logger.With(zap.String("run_id", result.RunID), zap.String("range", r.String()))

	orders, err := source.FetchOrders(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	result.Stats.Orders = len(orders)
	log.Info("Fetched orders", zap.Int("orders", len(orders)))

	records, orderIssues := p.normalizer.NormalizeOrders(orders, p.cfg.API.DateField)
	issues.Add(orderIssues...)

	if err := p.checkIssues(result, issues, log); err != nil {
		return result, err
	}

	granularities := p.granularities
	layout := p.cfg.Output.FolderFormat
	if byOrder {
		granularities = []aggregate.Granularity{aggregate.Order}
		layout = p.cfg.Output.DailyFolderFormat
	}

	p.buildReports(result, records, granularities)
	result.Identifier = identifier(result.Finest(), layout,
		r.Start.Format(types.DateLayout), r.End.Format(types.DateLayout))
	result.Stats.ProcessingTime = time.Since(result.StartedAt)

	log.Info("Orders reported",
		zap.String("identifier", result.Identifier),
		zap.Int("records", result.Stats.Records),
		zap.Int("issues", len(result.Issues)),
	)
	return result, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (p *Pipeline) newResult(source string) *Result {
	return &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Source:    source,
	}
}

// checkIssues copies the collected issues into result and fails the run on
// error-level issues unless continue_on_error is set.
func (p *Pipeline) checkIssues(result *Result, issues *validation.Collector, log *zap.Logger) error {
	result.Issues = issues.Issues()
	result.Stats.Errors = issues.ErrorCount()

	for _, issue := range result.Issues {
		log.Warn("Issue", zap.String("severity", issue.Severity), zap.String("detail", issue.Error()))
	}

	if result.Stats.Errors == 0 || p.cfg.ContinueOnError {
		return nil
	}
	return fmt.Errorf("%d value(s) could not be normalized: %w", result.Stats.Errors, issues.Err())
}

func (p *Pipeline) buildReports(result *Result, records []types.Record, granularities []aggregate.Granularity) {
	result.Stats.Records = len(records)
	for _, g := range granularities {
		result.Reports = append(result.Reports, report.Build(records, g))
	}
}

// identifier fills layout from the first and last rows of rep. A report
// without rows fills it from the fallback dates, or is named fallbackFirst
// alone when there is no fallback last date.
func identifier(rep *report.Report, layout, fallbackFirst, fallbackLast string) string {
	if rep != nil {
		if id, err := rep.Identifier(layout); err == nil {
			return id
		}
	}
	if fallbackLast == "" {
		return fallbackFirst
	}
	if layout == "" {
		layout = report.DefaultLayout
	}
	return strings.NewReplacer("{first}", fallbackFirst, "{last}", fallbackLast).Replace(layout)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sortFinestFirst(gs []aggregate.Granularity) {
	rank := make(map[aggregate.Granularity]int, len(aggregate.Granularities))
	for i, g := range aggregate.Granularities {
		rank[g] = i
	}
	sort.SliceStable(gs, func(i, j int) bool { return rank[gs[i]] < rank[gs[j]] })
}
