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

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/matsight/internal/model"
)

// FileName is the database file name inside the data directory.
const FileName = "matsight.db"

// storedTimeFormat is the layout created_at is written with. It has a fixed
// width so that lexical order equals chronological order.
const storedTimeFormat = "2006-01-02 15:04:05.000000000"

// AnalysisDB provides SQLite-based storage for analysis results.
//
// Design decision: Results are stored as the same tagged JSON the download
// artifact uses rather than normalised into per-flake tables. Nothing
// queries individual flakes, and the JSON form survives wire-format changes.
type AnalysisDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AnalysisDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AnalysisDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AnalysisDB, error) {
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

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AnalysisDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AnalysisDB) Close() error {
	return adb.db.Close()
}

// Path returns the database file path.
func (adb *AnalysisDB) Path() string {
	return adb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (adb *AnalysisDB) createTables() error {
	schema := `
	-- One row per analysis received from the service
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		image_key TEXT NOT NULL,
		image_hash TEXT,
		material TEXT,
		kind TEXT NOT NULL,
		created_at TEXT NOT NULL,
		label_count INTEGER DEFAULT 0,
		total_flakes INTEGER DEFAULT 0,
		result_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_key ON analyses(image_key);
	CREATE INDEX IF NOT EXISTS idx_analyses_hash ON analyses(image_hash);
	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAnalysis stores result and, when non-nil, its summary. A result
// without an ID gets a new UUID and one without CreatedAt gets the current
// time; both are written back to result.
func (adb *AnalysisDB) SaveAnalysis(ctx context.Context, result *model.AnalysisResult, summary *model.Summary) error {
	if result == nil || result.Analysis == nil {
		return errors.New("cannot save an empty analysis result")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize analysis: %w", err)
	}

	var summaryJSON sql.NullString
	labelCount, totalFlakes := 0, 0
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("failed to serialize summary: %w", err)
		}
		summaryJSON = sql.NullString{String: string(data), Valid: true}
		labelCount = summary.Count
		totalFlakes = summary.TotalFlakes
	}

	query := `
	INSERT INTO analyses (id, image_key, image_hash, material, kind, created_at, label_count, total_flakes, result_json, summary_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = adb.db.ExecContext(ctx, query,
		result.ID,
		result.ImageKey,
		result.ImageHash,
		result.Material,
		result.Analysis.Kind().String(),
		result.CreatedAt.UTC().Format(storedTimeFormat),
		labelCount,
		totalFlakes,
		string(resultJSON),
		summaryJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetLatestAnalysis retrieves the most recent analysis of imageKey.
// It returns nil without error when the image was never analysed.
func (adb *AnalysisDB) GetLatestAnalysis(ctx context.Context, imageKey string) (*model.AnalysisResult, error) {
	query := `
	SELECT result_json FROM analyses
	WHERE image_key = ?
	ORDER BY created_at DESC, rowid DESC
	LIMIT 1
	`
	return adb.queryResult(ctx, query, imageKey)
}

// GetAnalysisByID retrieves an analysis by its ID.
// It returns nil without error when no such analysis exists.
func (adb *AnalysisDB) GetAnalysisByID(ctx context.Context, id string) (*model.AnalysisResult, error) {
	query := `
	SELECT result_json FROM analyses
	WHERE id = ?
	`
	return adb.queryResult(ctx, query, id)
}

// FindAnalysisByHash retrieves the most recent analysis of any image whose
// bytes hash to hash. An empty hash never matches.
func (adb *AnalysisDB) FindAnalysisByHash(ctx context.Context, hash string) (*model.AnalysisResult, error) {
	if hash == "" {
		return nil, nil
	}
	query := `
	SELECT result_json FROM analyses
	WHERE image_hash = ?
	ORDER BY created_at DESC, rowid DESC
	LIMIT 1
	`
	return adb.queryResult(ctx, query, hash)
}

func (adb *AnalysisDB) queryResult(ctx context.Context, query string, arg any) (*model.AnalysisResult, error) {
	var resultJSON string
	err := adb.db.QueryRowContext(ctx, query, arg).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return &result, nil
}

// GetSummary retrieves the summary stored with an analysis.
// It returns nil without error when none was stored.
func (adb *AnalysisDB) GetSummary(ctx context.Context, id string) (*model.Summary, error) {
	query := `
	SELECT summary_json FROM analyses
	WHERE id = ?
	`

	var summaryJSON sql.NullString
	err := adb.db.QueryRowContext(ctx, query, id).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !summaryJSON.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	var summary model.Summary
	if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &summary, nil
}

// ListAnalyzedImages returns every image key that has at least one stored analysis.
func (adb *AnalysisDB) ListAnalyzedImages(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT image_key FROM analyses
	ORDER BY image_key
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan image key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// AnalysisMetadata contains summary information about a stored analysis.
// This is used for displaying history without loading the full result.
type AnalysisMetadata struct {
	// ID is the analysis UUID.
	ID string
	// ImageKey is the analysed image.
	ImageKey string
	// ImageHash is the hex SHA3-256 of the image bytes, if known.
	ImageHash string
	// Material is the material sent with the processing request.
	Material string
	// Kind is the analysis variant.
	Kind string
	// CreatedAt is when the analysis was received.
	CreatedAt time.Time
	// LabelCount is the number of distinct labels or thicknesses.
	LabelCount int
	// TotalFlakes is the server-reported flake total.
	TotalFlakes int
}

// GetAnalysisHistory retrieves analysis metadata for imageKey, newest first.
func (adb *AnalysisDB) GetAnalysisHistory(ctx context.Context, imageKey string) ([]AnalysisMetadata, error) {
	query := `
	SELECT id, image_key, image_hash, material, kind, created_at, label_count, total_flakes
	FROM analyses
	WHERE image_key = ?
	ORDER BY created_at DESC, rowid DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, imageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis history: %w", err)
	}
	defer rows.Close()

	var results []AnalysisMetadata
	for rows.Next() {
		var meta AnalysisMetadata
		var hash, material sql.NullString
		var timestamp string
		if err := rows.Scan(
			&meta.ID,
			&meta.ImageKey,
			&hash,
			&material,
			&meta.Kind,
			&timestamp,
			&meta.LabelCount,
			&meta.TotalFlakes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.ImageHash = hash.String
		meta.Material = material.String
		meta.CreatedAt = parseTimestamp(timestamp)
		results = append(results, meta)
	}
	return results, rows.Err()
}

// DeleteAnalyses removes every stored analysis of imageKey and reports how
// many were removed. It is called when an image is deleted from the library.
func (adb *AnalysisDB) DeleteAnalyses(ctx context.Context, imageKey string) (int64, error) {
	result, err := adb.db.ExecContext(ctx, `DELETE FROM analyses WHERE image_key = ?`, imageKey)
	if err != nil {
		return 0, fmt.Errorf("failed to delete analyses: %w", err)
	}
	return result.RowsAffected()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
