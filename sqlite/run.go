package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fwojciec/docparse"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docparse.RunService = (*RunService)(nil)

// RunService implements docparse.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun records a run and its outcomes in one transaction.
// It assigns the run ID and each successful outcome's content hash.
func (s *RunService) CreateRun(ctx context.Context, run *docparse.Run) error {
	if err := run.Validate(); err != nil {
		return err
	}

	run.ID = uuid.New().String()
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, provider, input_path, output_dir, started_at, finished_at, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, string(run.Provider), run.InputPath, run.OutputDir,
		formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Succeeded, run.Failed); err != nil {
		return err
	}

	for i := range run.Outcomes {
		o := &run.Outcomes[i]
		if o.Code == "" {
			o.ContentHash = hashContent(o.Text)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (run_id, position, file_name, output_path, pages, content_hash, code, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, o.FileName, o.OutputPath, o.Pages, o.ContentHash, o.Code, o.Message); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// FindRunByID retrieves a run with its outcomes.
func (s *RunService) FindRunByID(ctx context.Context, id string) (*docparse.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `
		SELECT id, provider, input_path, output_dir, started_at, finished_at, succeeded, failed
		FROM runs
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docparse.Errorf(docparse.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT file_name, output_path, pages, content_hash, code, message
		FROM outcomes
		WHERE run_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var o docparse.Outcome
		if err := rows.Scan(&o.FileName, &o.OutputPath, &o.Pages, &o.ContentHash, &o.Code, &o.Message); err != nil {
			return nil, err
		}
		run.Outcomes = append(run.Outcomes, o)
	}

	return run, rows.Err()
}

// FindRuns retrieves runs matching the filter, newest first.
func (s *RunService) FindRuns(ctx context.Context, filter docparse.RunFilter) ([]*docparse.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, provider, input_path, output_dir, started_at, finished_at, succeeded, failed FROM runs WHERE 1=1")

	if filter.Provider != nil {
		query.WriteString(" AND provider = ?")
		args = append(args, string(*filter.Provider))
	}

	query.WriteString(" ORDER BY started_at DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*docparse.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*docparse.Run, error) {
	var run docparse.Run
	var provider, startedAt, finishedAt string

	if err := row.Scan(&run.ID, &provider, &run.InputPath, &run.OutputDir,
		&startedAt, &finishedAt, &run.Succeeded, &run.Failed); err != nil {
		return nil, err
	}
	run.Provider = docparse.Provider(provider)

	var err error
	if run.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseTime(finishedAt, "finished_at"); err != nil {
		return nil, err
	}

	return &run, nil
}
