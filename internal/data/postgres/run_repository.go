package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterdesk/recon-engine/internal/domain/run"
	"github.com/charterdesk/recon-engine/internal/platform/persistence"
)

// RunRepository implements the run.Repository interface for PostgreSQL
type RunRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(logger *slog.Logger, db *persistence.PostgresDB) run.Repository {
	return &RunRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const runColumns = `id, mode, selector, confidence_floor, started_at, completed_at,
		linked, already_linked, ambiguous, unmatched, errored, linked_amount, unmatched_amount`

func scanRun(row pgx.Row) (*run.Run, error) {
	var r run.Run
	err := row.Scan(
		&r.ID,
		&r.Mode,
		&r.Selector,
		&r.ConfidenceFloor,
		&r.StartedAt,
		&r.CompletedAt,
		&r.Linked,
		&r.AlreadyLinked,
		&r.Ambiguous,
		&r.Unmatched,
		&r.Errored,
		&r.LinkedAmount,
		&r.UnmatchedAmount,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create stores a new run row before the sweep starts. Tallies begin at zero
// and are written back by Complete.
func (r *RunRepository) Create(ctx context.Context, rn *run.Run) error {
	query := `
		INSERT INTO recon_runs (id, mode, selector, confidence_floor, started_at,
			linked, already_linked, ambiguous, unmatched, errored, linked_amount, unmatched_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		rn.ID,
		rn.Mode,
		rn.Selector,
		rn.ConfidenceFloor,
		rn.StartedAt,
		rn.Linked,
		rn.AlreadyLinked,
		rn.Ambiguous,
		rn.Unmatched,
		rn.Errored,
		rn.LinkedAmount,
		rn.UnmatchedAmount,
	)
	if err != nil {
		r.logger.Error("Failed to create run", "run_id", rn.ID.String(), "error", err)
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// Complete writes the final tallies and stamps completed_at
func (r *RunRepository) Complete(ctx context.Context, rn *run.Run) error {
	query := `
		UPDATE recon_runs
		SET completed_at = $1, linked = $2, already_linked = $3, ambiguous = $4,
			unmatched = $5, errored = $6, linked_amount = $7, unmatched_amount = $8
		WHERE id = $9
	`

	now := time.Now()
	rn.CompletedAt = &now

	result, err := r.querier.Exec(ctx, query,
		rn.CompletedAt,
		rn.Linked,
		rn.AlreadyLinked,
		rn.Ambiguous,
		rn.Unmatched,
		rn.Errored,
		rn.LinkedAmount,
		rn.UnmatchedAmount,
		rn.ID,
	)
	if err != nil {
		r.logger.Error("Failed to complete run", "run_id", rn.ID.String(), "error", err)
		return fmt.Errorf("failed to complete run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return run.ErrRunNotFound{ID: rn.ID}
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*run.Run, error) {
	query := `SELECT ` + runColumns + ` FROM recon_runs WHERE id = $1`

	rn, err := scanRun(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, run.ErrRunNotFound{ID: id}
		}
		r.logger.Error("Failed to get run", "run_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return rn, nil
}

// List returns runs newest first
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	query := `SELECT ` + runColumns + ` FROM recon_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list runs", "error", err)
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*run.Run
	for rows.Next() {
		rn, err := scanRun(rows)
		if err != nil {
			r.logger.Error("Failed to scan run", "error", err)
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rn)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over runs", "error", err)
		return nil, fmt.Errorf("error iterating over runs: %w", err)
	}

	return runs, nil
}
