package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Run records one pipeline execution for history queries. The artifacts
// themselves live on the filesystem; the database only tracks who ran what
// and how it ended.
type Run struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Company     string     `json:"company"`
	Source      string     `json:"source,omitempty"`
	State       string     `json:"state"`
	Success     bool       `json:"success"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateRun records the start of a pipeline run.
func (db *DB) CreateRun(ctx context.Context, runID, userID uuid.UUID, company, source string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO runs (id, user_id, company, source, state)
		 VALUES ($1, $2, $3, $4, 'running')`,
		runID, userID, company, source,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records the terminal state of a run.
func (db *DB) FinishRun(ctx context.Context, runID uuid.UUID, state string, success bool) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE runs SET state = $1, success = $2, completed_at = NOW() WHERE id = $3`,
		state, success, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. Returns nil when no run exists.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, company, source, state, success, created_at, completed_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.UserID, &run.Company, &run.Source, &run.State, &run.Success, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// RunFilters holds optional filters for listing runs.
type RunFilters struct {
	UserID  uuid.UUID
	Company string
	Limit   int
}

// ListRuns retrieves recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, user_id, company, source, state, success, created_at, completed_at
		FROM runs WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.UserID != uuid.Nil {
		query += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, filters.UserID)
		argNum++
	}
	if filters.Company != "" {
		query += fmt.Sprintf(" AND company ILIKE $%d", argNum)
		args = append(args, "%"+filters.Company+"%")
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.UserID, &run.Company, &run.Source, &run.State, &run.Success, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
