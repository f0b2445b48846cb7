package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver
)

// DBFileName is the SQLite file created inside the database directory.
const DBFileName = "transitcrawl.db"

// timeLayout is fixed width so stored timestamps compare lexicographically.
const timeLayout = "2006-01-02 15:04:05.000"

// CrawlDB provides SQLite-based storage for cached HTTP responses and
// crawl history.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Cached HTTP GET responses keyed by a hash of the request
	CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		content_type TEXT,
		body BLOB NOT NULL,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_responses_fetched ON responses(fetched_at);

	-- One row per finished crawl of a city and mode
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		city TEXT NOT NULL,
		mode TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		routes_total INTEGER DEFAULT 0,
		routes_fetched INTEGER DEFAULT 0,
		routes_cached INTEGER DEFAULT 0,
		routes_skipped INTEGER DEFAULT 0,
		node_count INTEGER DEFAULT 0,
		edge_count INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		warnings_json TEXT,
		graph_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_city_mode ON crawl_runs(city, mode);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON crawl_runs(started_at);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// ResponseKey derives the cache key for a GET of rawURL.
func ResponseKey(rawURL string) string {
	sum := sha3.Sum256([]byte("GET " + rawURL))
	return hex.EncodeToString(sum[:])
}

// CachedResponse is a stored HTTP response.
type CachedResponse struct {
	Key         string
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// GetResponse returns the stored response for key if it is younger than
// maxAge. A missing or stale entry returns (nil, nil).
func (cdb *CrawlDB) GetResponse(ctx context.Context, key string, maxAge time.Duration) (*CachedResponse, error) {
	query := `
	SELECT key, url, status_code, content_type, body, fetched_at
	FROM responses
	WHERE key = ?
	`

	var resp CachedResponse
	var contentType sql.NullString
	var fetchedAt string

	err := cdb.db.QueryRowContext(ctx, query, key).Scan(
		&resp.Key,
		&resp.URL,
		&resp.StatusCode,
		&contentType,
		&resp.Body,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached response: %w", err)
	}

	resp.ContentType = contentType.String
	resp.FetchedAt = parseTimestamp(fetchedAt)
	if resp.FetchedAt.IsZero() || cdb.now().Sub(resp.FetchedAt) > maxAge {
		return nil, nil
	}
	return &resp, nil
}

// PutResponse inserts or replaces a stored response.
// A zero FetchedAt is set to the current time.
func (cdb *CrawlDB) PutResponse(ctx context.Context, resp *CachedResponse) error {
	if resp.Key == "" {
		resp.Key = ResponseKey(resp.URL)
	}
	if resp.FetchedAt.IsZero() {
		resp.FetchedAt = cdb.now()
	}

	query := `
	INSERT INTO responses (key, url, status_code, content_type, body, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		url = excluded.url,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		body = excluded.body,
		fetched_at = excluded.fetched_at
	`

	_, err := cdb.db.ExecContext(ctx, query,
		resp.Key,
		resp.URL,
		resp.StatusCode,
		resp.ContentType,
		resp.Body,
		formatTimestamp(resp.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store response: %w", err)
	}
	return nil
}

// PurgeResponses deletes responses older than maxAge and returns how many
// rows were removed.
func (cdb *CrawlDB) PurgeResponses(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := formatTimestamp(cdb.now().Add(-maxAge))
	result, err := cdb.db.ExecContext(ctx, `DELETE FROM responses WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge responses: %w", err)
	}
	return result.RowsAffected()
}

// ResponseStats summarizes the response cache.
type ResponseStats struct {
	Count  int64
	Bytes  int64
	Stale  int64
	Oldest time.Time
	Newest time.Time
}

// GetResponseStats reports size and age of the response cache. Entries
// older than maxAge are counted as stale.
func (cdb *CrawlDB) GetResponseStats(ctx context.Context, maxAge time.Duration) (*ResponseStats, error) {
	query := `
	SELECT COUNT(*), COALESCE(SUM(LENGTH(body)), 0),
		COALESCE(MIN(fetched_at), ''), COALESCE(MAX(fetched_at), ''),
		COALESCE(SUM(CASE WHEN fetched_at < ? THEN 1 ELSE 0 END), 0)
	FROM responses
	`

	var stats ResponseStats
	var oldest, newest string
	cutoff := formatTimestamp(cdb.now().Add(-maxAge))
	err := cdb.db.QueryRowContext(ctx, query, cutoff).Scan(
		&stats.Count, &stats.Bytes, &oldest, &newest, &stats.Stale,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read response stats: %w", err)
	}
	stats.Oldest = parseTimestamp(oldest)
	stats.Newest = parseTimestamp(newest)
	return &stats, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp parses s as UTC using the known layouts.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
