// Package normalize turns raw export cells and API orders into records with a
// category, a time and a non-negative decimal amount.
//
// Cells that cannot be normalized become validation issues. They are never
// coerced to zero, so a missing order is always visible.
package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/segment"
	"github.com/ginjaninja78/webshop-sales-report/internal/soap"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
	"github.com/ginjaninja78/webshop-sales-report/internal/validation"
)

// Normalizer converts blocks and orders to records.
type Normalizer struct {
	layout        config.ExportLayout
	files         *Router
	orders        *Router
	finalCategory types.Category
	logger        *zap.Logger
}

// New builds a normalizer from the configuration.
func New(cfg *config.MainConfig, logger *zap.Logger) (*Normalizer, error) {
	files, err := NewRouter(cfg.Categories.FileLabels, cfg.Categories.UnknownMethod)
	if err != nil {
		return nil, fmt.Errorf("file labels: %w", err)
	}
	orders, err := NewRouter(cfg.Categories.APIMethods, cfg.Categories.UnknownMethod)
	if err != nil {
		return nil, fmt.Errorf("api methods: %w", err)
	}
	final, err := types.ParseCategory(cfg.Categories.FinalCategory)
	if err != nil {
		return nil, fmt.Errorf("final category: %w", err)
	}

	return &Normalizer{
		layout:        cfg.Export,
		files:         files,
		orders:        orders,
		finalCategory: final,
		logger:        logger,
	}, nil
}

// CategoryOf returns the category of a segmenter block label.
func (n *Normalizer) CategoryOf(label string) (types.Category, error) {
	if label == segment.FinalLabel {
		return n.finalCategory, nil
	}
	return n.files.Route(label)
}

// NormalizeBlocks normalizes every block of a segmented export.
func (n *Normalizer) NormalizeBlocks(blocks []segment.Block) ([]types.Record, []*validation.Issue) {
	var records []types.Record
	var issues []*validation.Issue

	for _, block := range blocks {
		category, err := n.CategoryOf(block.Label)
		if err != nil {
			issues = append(issues, validation.NewIssue(block.Label, -1, "label", block.Label, "payment_method", err))
			continue
		}

		blockRecords, blockIssues := n.NormalizeBlock(block, category)
		records = append(records, blockRecords...)
		issues = append(issues, blockIssues...)

		n.logger.Debug("Normalized block",
			zap.String("label", block.Label),
			zap.String("category", string(category)),
			zap.Int("rows", len(block.Rows)),
			zap.Int("records", len(blockRecords)),
			zap.Int("issues", len(blockIssues)),
		)
	}

	return records, issues
}

// NormalizeBlock turns every non-blank row of block into a record of category.
// Rows whose date or amount cell is invalid become issues.
func (n *Normalizer) NormalizeBlock(block segment.Block, category types.Category) ([]types.Record, []*validation.Issue) {
	records := make([]types.Record, 0, len(block.Rows))
	var issues []*validation.Issue

	for i, row := range block.Rows {
		if isBlank(row) {
			continue
		}

		dateCell := cell(row, n.layout.DateColumn)
		amountCell := cell(row, n.layout.AmountColumn)

		date, err := NormalizeDate(dateCell, DayMonthYear)
		if err != nil {
			issues = append(issues, validation.NewIssue(block.Label, i, "date", dateCell, "date", err))
			continue
		}

		amount, err := NormalizeAmount(amountCell)
		if err != nil {
			issues = append(issues, validation.NewIssue(block.Label, i, "amount", amountCell, "amount", err))
			continue
		}

		records = append(records, types.Record{Category: category, Time: date, Amount: amount})
	}

	return records, issues
}

// NormalizeOrders turns API orders into records. The amount is
// Total * (1 + Vat), computed exactly. timeKey names the order date field.
func (n *Normalizer) NormalizeOrders(orders []soap.Order, timeKey string) ([]types.Record, []*validation.Issue) {
	records := make([]types.Record, 0, len(orders))
	var issues []*validation.Issue

	for i, order := range orders {
		category, err := n.orders.Route(order.Payment.Title)
		if err != nil {
			issues = append(issues, orderIssue(order, i, "Payment", order.Payment.Title, "payment_method", err))
			continue
		}

		stamp := order.Field(timeKey)
		t, err := NormalizeDate(stamp, Timestamp)
		if err != nil {
			issues = append(issues, orderIssue(order, i, timeKey, stamp, "date", err))
			continue
		}

		total, err := NormalizeAmount(order.Total)
		if err != nil {
			issues = append(issues, orderIssue(order, i, "Total", order.Total, "amount", err))
			continue
		}
		vat, err := NormalizeRate(order.Vat)
		if err != nil {
			issues = append(issues, orderIssue(order, i, "Vat", order.Vat, "amount", err))
			continue
		}

		records = append(records, types.Record{
			Category: category,
			Time:     t,
			Amount:   total.Mul(decimal.NewFromInt(1).Add(vat)),
		})
	}

	n.logger.Debug("Normalized orders",
		zap.Int("orders", len(orders)),
		zap.Int("records", len(records)),
		zap.Int("issues", len(issues)),
	)

	return records, issues
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func orderIssue(order soap.Order, i int, field, value, rule string, err error) *validation.Issue {
	issue := validation.NewIssue("order "+order.Id, i, field, value, rule, err)
	issue.Source = "api"
	return issue
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
