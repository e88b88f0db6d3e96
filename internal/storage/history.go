// Package storage keeps a history of generated reports in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/webshop-sales-report/internal/aggregate"
	"github.com/ginjaninja78/webshop-sales-report/internal/report"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// Run statuses.
const (
	StatusOK         = "ok"
	StatusWithIssues = "issues"
)

// Run is one stored pipeline run.
type Run struct {
	ID         string
	Source     string
	Identifier string
	StartedAt  time.Time
	Records    int
	Issues     int
	Status     string
}

// Store is the SQLite report history.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// SQLite allows one writer; concurrent process runs queue here.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun stores run and the rows of its reports in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, reports []*report.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, identifier, started_at, record_count, issue_count, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Identifier, run.StartedAt.UTC().Format(time.RFC3339),
		run.Records, run.Issues, run.Status,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO report_rows (run_id, granularity, year, period, clock, bucket, category, amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare report rows: %w", err)
	}
	defer stmt.Close()

	for _, rep := range reports {
		for _, row := range rep.Rows {
			for _, category := range rep.Columns {
				_, err := stmt.ExecContext(ctx,
					run.ID, string(rep.Granularity),
					row.Key.Year, row.Key.Period, row.Key.Clock, row.Key.String(),
					string(category), row.Value(category).String(),
				)
				if err != nil {
					return fmt.Errorf("insert report row %s/%s: %w", rep.Granularity, row.Key, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, source, identifier, started_at, record_count, issue_count, status
	          FROM runs ORDER BY started_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		if err := rows.Scan(&run.ID, &run.Source, &run.Identifier, &started,
			&run.Records, &run.Issues, &run.Status); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339, started)
		if err != nil {
			return nil, fmt.Errorf("run %s has invalid start time %q: %w", run.ID, started, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadReport rebuilds the report of runID at granularity g. Totals are
// recomputed by the merger, not stored.
func (s *Store) LoadReport(ctx context.Context, runID string, g aggregate.Granularity) (*report.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT year, period, clock, category, amount FROM report_rows
		 WHERE run_id = ? AND granularity = ?`,
		runID, string(g))
	if err != nil {
		return nil, fmt.Errorf("load report %s/%s: %w", runID, g, err)
	}
	defer rows.Close()

	series := make(map[types.Category]aggregate.TimeSeries)
	found := false
	for rows.Next() {
		var key aggregate.Key
		var category, amount string
		if err := rows.Scan(&key.Year, &key.Period, &key.Clock, &category, &amount); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		key.Granularity = g

		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("report row has invalid amount %q: %w", amount, err)
		}

		c := types.Category(category)
		if series[c] == nil {
			series[c] = make(aggregate.TimeSeries)
		}
		series[c][key] = value
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no %s report stored for run %s", g, runID)
	}

	return report.Merge(g, series), nil
}
