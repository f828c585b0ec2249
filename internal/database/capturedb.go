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

	"github.com/nao1215/streamcraft/internal/model"
)

// FileName is the name of the database file inside the store directory.
const FileName = "streamcraft.db"

var (
	// ErrNotFound is returned when a store is opened without
	// CreateIfNotExists and no database file exists.
	ErrNotFound = errors.New("database not found")

	// ErrDuplicateCapture is returned when a sink writes the same sequence
	// number twice in one run.
	ErrDuplicateCapture = errors.New("duplicate capture")
)

// CaptureDB is the SQLite capture store. It is safe for concurrent use.
type CaptureDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CaptureDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the store in dbDir.
func Open(dbDir string, opts Options) (*CaptureDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; sinks on parallel branches share the handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CaptureDB{db: db, dbPath: dbPath}

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

// Path returns the database file path.
func (cdb *CaptureDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CaptureDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CaptureDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS captures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pipeline TEXT NOT NULL,
		run_id TEXT NOT NULL,
		sink_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		stage TEXT NOT NULL,
		format TEXT NOT NULL,
		payload BLOB,
		size INTEGER NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, sink_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_captures_pipeline ON captures(pipeline);
	CREATE INDEX IF NOT EXISTS idx_captures_run_id ON captures(run_id);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pipeline_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		steps INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Capture is one stored payload.
type Capture struct {
	ID int64

	// Pipeline is the label the capture is listed under. Several sinks and
	// several runs may share a label.
	Pipeline string

	// RunID is the ID of the pipeline run that wrote the capture.
	RunID string

	// SinkID identifies the sink instance that wrote the capture. Seq counts
	// from 1 per sink.
	SinkID string
	Seq    int64

	Stage     string
	Format    string
	Payload   []byte
	Timestamp time.Time
}

// InsertCapture stores a payload and returns its row ID. Captures are never
// replaced: a second capture with the same run, sink and sequence number is
// rejected with ErrDuplicateCapture.
func (cdb *CaptureDB) InsertCapture(ctx context.Context, c *Capture) (int64, error) {
	query := `
	INSERT INTO captures (pipeline, run_id, sink_id, seq, stage, format, payload, size)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, sink_id, seq) DO NOTHING
	`

	result, err := cdb.db.ExecContext(ctx, query,
		c.Pipeline,
		c.RunID,
		c.SinkID,
		c.Seq,
		c.Stage,
		c.Format,
		c.Payload,
		len(c.Payload),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("%w: run %s sink %s seq %d", ErrDuplicateCapture, c.RunID, c.SinkID, c.Seq)
	}

	return result.LastInsertId()
}

// Captures returns every capture of a pipeline label in the order they were
// written.
func (cdb *CaptureDB) Captures(ctx context.Context, pipeline string) ([]Capture, error) {
	return cdb.queryCaptures(ctx, `WHERE pipeline = ?`, pipeline)
}

// RunCaptures returns every capture written by one run, in the order they
// were written.
func (cdb *CaptureDB) RunCaptures(ctx context.Context, runID string) ([]Capture, error) {
	return cdb.queryCaptures(ctx, `WHERE run_id = ?`, runID)
}

func (cdb *CaptureDB) queryCaptures(ctx context.Context, where string, arg any) ([]Capture, error) {
	query := `
	SELECT id, pipeline, run_id, sink_id, seq, stage, format, payload, timestamp
	FROM captures
	` + where + `
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var results []Capture
	for rows.Next() {
		var c Capture
		var timestamp string
		if err := rows.Scan(&c.ID, &c.Pipeline, &c.RunID, &c.SinkID, &c.Seq, &c.Stage, &c.Format, &c.Payload, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		c.Timestamp = parseTimestamp(timestamp)
		results = append(results, c)
	}

	return results, rows.Err()
}

// CountCaptures returns the number of captures of a pipeline label and
// their total payload size.
func (cdb *CaptureDB) CountCaptures(ctx context.Context, pipeline string) (count int, size int64, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM captures WHERE pipeline = ?`
	if err := cdb.db.QueryRowContext(ctx, query, pipeline).Scan(&count, &size); err != nil {
		return 0, 0, fmt.Errorf("failed to count captures: %w", err)
	}
	return count, size, nil
}

// ListPipelines returns every pipeline label with at least one capture.
func (cdb *CaptureDB) ListPipelines(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT pipeline FROM captures ORDER BY pipeline`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// SaveRunReport stores a finished run.
func (cdb *CaptureDB) SaveRunReport(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO runs (pipeline_id, name, status, steps, report_json)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err = cdb.db.ExecContext(ctx, query,
		report.PipelineID,
		report.Name,
		string(report.Status),
		report.Steps,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}

	return nil
}

// LatestRunReport returns the most recent run of name, or nil if there is
// none.
func (cdb *CaptureDB) LatestRunReport(ctx context.Context, name string) (*model.RunReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE name = ?
	ORDER BY id DESC
	LIMIT 1
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, name).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// RunHistory returns the reports of every run of name, newest first.
func (cdb *CaptureDB) RunHistory(ctx context.Context, name string) ([]*model.RunReport, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT report_json FROM runs WHERE name = ? ORDER BY id DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var reports []*model.RunReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.RunReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// timestampFormats are the formats SQLite may return, most specific first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time if s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
