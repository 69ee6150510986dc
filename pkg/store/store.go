// Package store persists finished runs: every run is logged to a SQLite
// database, and accepted results are additionally exported as CSV files
// alongside it.
package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/srbutler1/WRDS-Agents/pkg/agent"
)

const dbFileName = "runs.db"

// maxSlugLength bounds the request-derived part of export file names.
const maxSlugLength = 48

// Config holds the store configuration.
type Config struct {
	Logger *slog.Logger

	// Dir is where the run database and CSV exports live.
	Dir string
}

// Validate checks the config and applies defaults.
func (cfg *Config) Validate() error {
	if cfg.Dir == "" {
		return errors.New("store directory is required")
	}
	return nil
}

// Store is the SQLite-backed run log. Writes are serialized through a
// mutex so concurrent runs never trip over SQLITE_BUSY.
type Store struct {
	log *slog.Logger
	dir string
	db  *sql.DB
	mu  sync.Mutex
}

// New opens (creating if necessary) the run database under cfg.Dir.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate store config: %w", err)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dsn := filepath.Join(cfg.Dir, dbFileName) + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping run database: %w", err)
	}

	s := &Store{log: cfg.Logger, dir: cfg.Dir, db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request TEXT NOT NULL,
		issued_at INTEGER NOT NULL,
		sql_text TEXT,
		explanation TEXT,
		attempts INTEGER NOT NULL,
		accepted INTEGER NOT NULL,
		aborted INTEGER NOT NULL,
		reason TEXT,
		row_count INTEGER,
		csv_path TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_issued ON runs(issued_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create run schema: %w", err)
	}
	return nil
}

// Persist logs the outcome and, when the final attempt carries rows,
// exports them as CSV. Returns the export path, or "" when nothing was
// exported.
func (s *Store) Persist(ctx context.Context, outcome *agent.SessionOutcome) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	csvPath := ""
	if outcome.FinalAttempt.Result != nil && outcome.FinalAttempt.Result.RowCount > 0 {
		path, err := s.exportCSV(outcome)
		if err != nil {
			return "", fmt.Errorf("failed to export result: %w", err)
		}
		csvPath = path
	}

	rowCount := 0
	if outcome.FinalAttempt.Result != nil {
		rowCount = outcome.FinalAttempt.Result.RowCount
	}

	query := `
	INSERT INTO runs (request, issued_at, sql_text, explanation, attempts, accepted, aborted, reason, row_count, csv_path, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		outcome.Request.Text,
		outcome.Request.IssuedAt.Unix(),
		outcome.FinalAttempt.SQL,
		outcome.FinalAttempt.Explanation,
		outcome.AttemptsMade,
		boolToInt(outcome.Verdict.Accepted),
		boolToInt(outcome.Aborted),
		outcome.Verdict.Reason,
		rowCount,
		csvPath,
		time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to log run: %w", err)
	}

	if s.log != nil {
		s.log.Info("store: run persisted", "accepted", outcome.Verdict.Accepted, "csv", csvPath)
	}
	return csvPath, nil
}

// exportCSV writes the final attempt's rows to <slug>_<timestamp>.csv.
// The slug comes from the output hint when set, else from the request text.
func (s *Store) exportCSV(outcome *agent.SessionOutcome) (string, error) {
	base := outcome.OutputHint
	if base == "" {
		base = outcome.Request.Text
	}
	name := fmt.Sprintf("%s_%s.csv", slugify(base), outcome.Request.IssuedAt.UTC().Format("20060102T150405"))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	result := outcome.FinalAttempt.Result
	if err := w.Write(result.Columns); err != nil {
		return "", fmt.Errorf("failed to write export header: %w", err)
	}
	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatValue(row[i])
			}
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write export row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export: %w", err)
	}
	return path, nil
}

// Runs returns the most recent n logged runs, newest first.
func (s *Store) Runs(ctx context.Context, n int) ([]RunRecord, error) {
	query := `
	SELECT request, issued_at, sql_text, attempts, accepted, aborted, reason, row_count, csv_path
	FROM runs ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var issued int64
		var accepted, aborted int
		if err := rows.Scan(&r.Request, &issued, &r.SQL, &r.Attempts, &accepted, &aborted, &r.Reason, &r.RowCount, &r.CSVPath); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.IssuedAt = time.Unix(issued, 0).UTC()
		r.Accepted = accepted != 0
		r.Aborted = aborted != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// RunRecord is one row of the run log.
type RunRecord struct {
	Request  string
	IssuedAt time.Time
	SQL      string
	Attempts int
	Accepted bool
	Aborted  bool
	Reason   string
	RowCount int
	CSVPath  string
}

// Close closes the run database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// slugify lowercases text and keeps [a-z0-9] runs joined by underscores.
func slugify(text string) string {
	var sb strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			sb.WriteByte('_')
			lastUnderscore = true
		}
		if sb.Len() >= maxSlugLength {
			break
		}
	}
	slug := strings.Trim(sb.String(), "_")
	if slug == "" {
		return "result"
	}
	return slug
}

// formatValue renders a cell for CSV export.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.UTC().Format("2006-01-02")
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%.0f", val)
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}
