package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pageweight/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "pageweight.db"

// timestampLayout is fixed width so that timestamps sort lexically.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// CrawlDB stores past measurements in a single SQLite file.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
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
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

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

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// The busy timeout lets two pageweight processes share the file.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
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

// Path returns the path of the database file.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per measurement of a page
	CREATE TABLE IF NOT EXISTS measurements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		request_count INTEGER NOT NULL,
		total_bytes INTEGER NOT NULL,
		failed_count INTEGER NOT NULL,
		content_hash TEXT,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_measurements_url ON measurements(url);
	CREATE INDEX IF NOT EXISTS idx_measurements_timestamp ON measurements(timestamp);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult stores a measurement.
// The timestamp is taken from result.StartedAt when set.
func (cdb *CrawlDB) SaveResult(ctx context.Context, result *model.CrawlResult) (int64, error) {
	if result == nil {
		return 0, errors.New("result is nil")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal result: %w", err)
	}

	startedAt := result.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	query := `
	INSERT INTO measurements (url, timestamp, request_count, total_bytes, failed_count, content_hash, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := cdb.db.ExecContext(ctx, query,
		result.URL,
		startedAt.UTC().Format(timestampLayout),
		result.RequestCount,
		result.TotalBytes(),
		result.FailedCount(),
		result.ContentHash,
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get result id: %w", err)
	}
	return id, nil
}

// GetLatestResult retrieves the most recent measurement for a URL.
// It returns nil without error when the URL was never measured.
func (cdb *CrawlDB) GetLatestResult(ctx context.Context, url string) (*model.CrawlResult, error) {
	query := `
	SELECT result_json FROM measurements
	WHERE url = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var resultJSON string
	err := cdb.db.QueryRowContext(ctx, query, url).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return decodeResult(resultJSON)
}

// GetResultByID retrieves a measurement by its database ID.
// It returns nil without error when no such row exists.
func (cdb *CrawlDB) GetResultByID(ctx context.Context, id int64) (*model.CrawlResult, error) {
	query := `
	SELECT result_json FROM measurements
	WHERE id = ?
	`

	var resultJSON string
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return decodeResult(resultJSON)
}

func decodeResult(resultJSON string) (*model.CrawlResult, error) {
	var result model.CrawlResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &result, nil
}

// ListMeasuredURLs returns every URL that has at least one measurement.
func (cdb *CrawlDB) ListMeasuredURLs(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT url FROM measurements
	ORDER BY url
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

// MeasurementMetadata summarizes one stored measurement without its tree.
type MeasurementMetadata struct {
	// ID is the unique identifier of the measurement in the database.
	ID int64

	// URL is the measured URL.
	URL string

	// Timestamp is when the measurement started.
	Timestamp time.Time

	// RequestCount is the number of HTTP requests issued.
	RequestCount int

	// TotalBytes is the sum of all download sizes.
	TotalBytes int64

	// FailedCount is the number of failed requests.
	FailedCount int

	// ContentHash is the SHA3-256 digest of the root document body.
	ContentHash string
}

// GetHistory returns measurement metadata for a URL, newest first.
// A limit <= 0 returns every row.
func (cdb *CrawlDB) GetHistory(ctx context.Context, url string, limit int) ([]MeasurementMetadata, error) {
	query := `
	SELECT id, url, timestamp, request_count, total_bytes, failed_count, content_hash
	FROM measurements
	WHERE url = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as no limit
	}

	rows, err := cdb.db.QueryContext(ctx, query, url, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []MeasurementMetadata
	for rows.Next() {
		var meta MeasurementMetadata
		var timestamp string
		var hash sql.NullString

		if err := rows.Scan(&meta.ID, &meta.URL, &timestamp, &meta.RequestCount,
			&meta.TotalBytes, &meta.FailedCount, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		if hash.Valid {
			meta.ContentHash = hash.String
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// DeleteHistory removes every measurement of a URL and returns how many rows were deleted.
func (cdb *CrawlDB) DeleteHistory(ctx context.Context, url string) (int64, error) {
	res, err := cdb.db.ExecContext(ctx, `DELETE FROM measurements WHERE url = ?`, url)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return n, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	timestampLayout,        // written by SaveResult
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,           // Full RFC3339 format
	time.RFC3339Nano,       // RFC3339 with nanoseconds
}

// parseTimestamp tries each known format and returns the zero time when none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
