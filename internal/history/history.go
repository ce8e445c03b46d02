package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one row of the ledger.
type Run struct {
	WorkflowID  string
	Slug        string
	Topic       string
	Status      string
	CurrentStep int
	TotalSteps  int
	Error       string
	StartedAt   time.Time
	UpdatedAt   time.Time
	OutputPath  string
}

// Store is the SQLite-backed run ledger.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the ledger at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record upserts run. StartedAt is kept from the first insert.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.WorkflowID == "" {
		return errors.New("record run: workflow id is required")
	}
	updated := run.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	started := run.StartedAt
	if started.IsZero() {
		started = updated
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            workflow_id, slug, topic, status, current_step, total_steps,
            error, started_at, updated_at, output_path
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(workflow_id) DO UPDATE SET
            slug = excluded.slug,
            topic = excluded.topic,
            status = excluded.status,
            current_step = excluded.current_step,
            total_steps = excluded.total_steps,
            error = excluded.error,
            updated_at = excluded.updated_at,
            output_path = COALESCE(excluded.output_path, runs.output_path)`,
		run.WorkflowID,
		run.Slug,
		run.Topic,
		run.Status,
		run.CurrentStep,
		run.TotalSteps,
		nullableString(run.Error),
		formatTime(started),
		formatTime(updated),
		nullableString(run.OutputPath),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.WorkflowID, err)
	}
	return nil
}

// Get returns the run for workflowID, or nil when it was never recorded.
func (s *Store) Get(ctx context.Context, workflowID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE workflow_id = ?", workflowID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recently updated runs first. limit <= 0 lists all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + " ORDER BY updated_at DESC, workflow_id"
	args := []any{}
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
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

const selectRuns = `SELECT workflow_id, slug, topic, status, current_step, total_steps,
    error, started_at, updated_at, output_path FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                Run
		errMsg, outputPath sql.NullString
		started, updated   string
	)
	if err := row.Scan(
		&run.WorkflowID,
		&run.Slug,
		&run.Topic,
		&run.Status,
		&run.CurrentStep,
		&run.TotalSteps,
		&errMsg,
		&started,
		&updated,
		&outputPath,
	); err != nil {
		return nil, err
	}
	run.Error = errMsg.String
	run.OutputPath = outputPath.String
	run.StartedAt = parseTime(started)
	run.UpdatedAt = parseTime(updated)
	return &run, nil
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
