package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/citec-spbu/Transport/internal/model"
)

// Crawl run status values.
const (
	RunStatusComplete    = "complete"
	RunStatusPartial     = "partial"
	RunStatusFailed      = "failed"
	RunStatusInterrupted = "interrupted"
)

// CrawlRun is a finished crawl stored for later comparison.
type CrawlRun struct {
	ID            int64
	RunID         string
	City          string
	Mode          string
	StartedAt     time.Time
	FinishedAt    time.Time
	RoutesTotal   int
	RoutesFetched int
	RoutesCached  int
	RoutesSkipped int
	NodeCount     int
	EdgeCount     int
	Status        string
	Warnings      []model.Warning
	Graph         *model.GraphExport
}

// SaveCrawlRun stores a crawl run. The graph is kept as JSON.
func (cdb *CrawlDB) SaveCrawlRun(ctx context.Context, run *CrawlRun) error {
	warningsJSON, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("failed to serialize warnings: %w", err)
	}

	var graphJSON sql.NullString
	if run.Graph != nil {
		data, err := json.Marshal(run.Graph)
		if err != nil {
			return fmt.Errorf("failed to serialize graph: %w", err)
		}
		graphJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
	INSERT INTO crawl_runs (run_id, city, mode, started_at, finished_at,
		routes_total, routes_fetched, routes_cached, routes_skipped,
		node_count, edge_count, status, warnings_json, graph_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := cdb.db.ExecContext(ctx, query,
		run.RunID,
		run.City,
		run.Mode,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.RoutesTotal,
		run.RoutesFetched,
		run.RoutesCached,
		run.RoutesSkipped,
		run.NodeCount,
		run.EdgeCount,
		run.Status,
		string(warningsJSON),
		graphJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save crawl run: %w", err)
	}

	run.ID, err = result.LastInsertId()
	return err
}

// ListCrawlRuns returns run metadata, newest first, without graphs.
// Empty city or mode matches everything; limit <= 0 means no limit.
func (cdb *CrawlDB) ListCrawlRuns(ctx context.Context, city, mode string, limit int) ([]CrawlRun, error) {
	query := `
	SELECT id, run_id, city, mode, started_at, finished_at,
		routes_total, routes_fetched, routes_cached, routes_skipped,
		node_count, edge_count, status, warnings_json
	FROM crawl_runs
	WHERE 1=1
	`
	args := make([]any, 0, 3)

	if city != "" {
		query += " AND city = ?"
		args = append(args, city)
	}
	if mode != "" {
		query += " AND mode = ?"
		args = append(args, mode)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []CrawlRun
	for rows.Next() {
		var run CrawlRun
		var started, finished string
		var warningsJSON sql.NullString

		if err := rows.Scan(
			&run.ID, &run.RunID, &run.City, &run.Mode, &started, &finished,
			&run.RoutesTotal, &run.RoutesFetched, &run.RoutesCached, &run.RoutesSkipped,
			&run.NodeCount, &run.EdgeCount, &run.Status, &warningsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan crawl run: %w", err)
		}

		run.StartedAt = parseTimestamp(started)
		run.FinishedAt = parseTimestamp(finished)
		if warningsJSON.Valid && warningsJSON.String != "" {
			if err := json.Unmarshal([]byte(warningsJSON.String), &run.Warnings); err != nil {
				run.Warnings = nil
			}
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetCrawlRun loads a run including its graph. It returns (nil, nil) when
// no run has the given ID.
func (cdb *CrawlDB) GetCrawlRun(ctx context.Context, runID string) (*CrawlRun, error) {
	query := `
	SELECT id, run_id, city, mode, started_at, finished_at,
		routes_total, routes_fetched, routes_cached, routes_skipped,
		node_count, edge_count, status, warnings_json, graph_json
	FROM crawl_runs
	WHERE run_id = ?
	`

	var run CrawlRun
	var started, finished string
	var warningsJSON, graphJSON sql.NullString

	err := cdb.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID, &run.RunID, &run.City, &run.Mode, &started, &finished,
		&run.RoutesTotal, &run.RoutesFetched, &run.RoutesCached, &run.RoutesSkipped,
		&run.NodeCount, &run.EdgeCount, &run.Status, &warningsJSON, &graphJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl run: %w", err)
	}

	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	if warningsJSON.Valid && warningsJSON.String != "" {
		if err := json.Unmarshal([]byte(warningsJSON.String), &run.Warnings); err != nil {
			return nil, fmt.Errorf("failed to parse warnings: %w", err)
		}
	}
	if graphJSON.Valid && graphJSON.String != "" {
		var g model.GraphExport
		if err := json.Unmarshal([]byte(graphJSON.String), &g); err != nil {
			return nil, fmt.Errorf("failed to parse graph: %w", err)
		}
		run.Graph = &g
	}

	return &run, nil
}
