package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pdfwhacker/internal/config"
	"pdfwhacker/internal/services"
)

// Run is one orchestration recorded in the ledger.
type Run struct {
	ID            int64
	JobID         string
	Pipeline      string
	Outcome       services.Outcome
	Inputs        []string
	OutputPath    string
	OriginalBytes int64
	ResultBytes   int64
	RatioPercent  float64
	Message       string
	Duration      time.Duration
	CreatedAt     time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Pipeline string
	Outcome  services.Outcome
	Since    time.Time
	Limit    int
}

// Store persists pipeline runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	// Pragmas ride in the DSN so every pooled connection gets them, not just
	// the one that happened to run a PRAGMA statement.
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Workers record concurrently; a single connection serialises writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// OpenFromConfig opens the ledger configured in cfg. It returns nil without
// error when history is disabled.
func OpenFromConfig(cfg *config.Config) (*Store, error) {
	if cfg == nil || !cfg.History.Enabled {
		return nil, nil
	}
	return Open(cfg.History.Path)
}

// Path returns the database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends run to the ledger and returns its row id. A nil Store
// discards the run.
func (s *Store) Record(ctx context.Context, run Run) (int64, error) {
	if s == nil {
		return 0, nil
	}
	if strings.TrimSpace(run.Pipeline) == "" {
		return 0, errors.New("record run: pipeline required")
	}
	if run.Outcome == "" {
		return 0, errors.New("record run: outcome required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	inputs := run.Inputs
	if inputs == nil {
		inputs = []string{}
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return 0, fmt.Errorf("marshal inputs: %w", err)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            job_id, pipeline, outcome, inputs_json, output_path,
            original_bytes, result_bytes, ratio_percent, message, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.JobID,
		run.Pipeline,
		string(run.Outcome),
		string(inputsJSON),
		nullableString(run.OutputPath),
		run.OriginalBytes,
		run.ResultBytes,
		nullableRatio(run.RatioPercent),
		nullableString(run.Message),
		run.Duration.Milliseconds(),
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const runColumns = `id, job_id, pipeline, outcome, inputs_json, output_path,
    original_bytes, result_bytes, ratio_percent, message, duration_ms, created_at`

// List returns runs newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Run, error) {
	if s == nil {
		return nil, nil
	}
	var (
		clauses []string
		args    []any
	)
	if filter.Pipeline != "" {
		clauses = append(clauses, "pipeline = ?")
		args = append(args, filter.Pipeline)
	}
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Stats counts runs per outcome.
func (s *Store) Stats(ctx context.Context) (map[services.Outcome]int, error) {
	stats := make(map[services.Outcome]int)
	if s == nil {
		return stats, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM runs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[services.Outcome(outcome)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// Prune deletes runs recorded before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every run.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		outcome    string
		inputsJSON string
		outputPath sql.NullString
		ratio      sql.NullFloat64
		message    sql.NullString
		durationMS int64
		createdAt  string
	)
	if err := row.Scan(
		&run.ID,
		&run.JobID,
		&run.Pipeline,
		&outcome,
		&inputsJSON,
		&outputPath,
		&run.OriginalBytes,
		&run.ResultBytes,
		&ratio,
		&message,
		&durationMS,
		&createdAt,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Outcome = services.Outcome(outcome)
	if err := json.Unmarshal([]byte(inputsJSON), &run.Inputs); err != nil {
		return Run{}, fmt.Errorf("decode inputs for run %d: %w", run.ID, err)
	}
	run.OutputPath = outputPath.String
	run.RatioPercent = ratio.Float64
	run.Message = message.String
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		run.CreatedAt = ts
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableRatio(value float64) any {
	if value <= 0 {
		return nil
	}
	return value
}
