package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/domain/charter"
	"github.com/charterdesk/recon-engine/internal/platform/persistence"
)

// CharterRepository implements the charter.Repository interface for PostgreSQL
type CharterRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewCharterRepository creates a new PostgreSQL charter repository
func NewCharterRepository(logger *slog.Logger, db *persistence.PostgresDB) charter.Repository {
	return &CharterRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *CharterRepository) WithTx(tx pgx.Tx) charter.Repository {
	return &CharterRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CharterRepository) GetByRef(ctx context.Context, ref string) (*charter.Charter, error) {
	query := `
		SELECT id, ref, COALESCE(client_name, ''), total_due, paid_amount, balance, event_date, created_at, updated_at
		FROM charters
		WHERE ref = $1
	`

	var c charter.Charter
	err := r.querier.QueryRow(ctx, query, ref).Scan(
		&c.ID,
		&c.Ref,
		&c.ClientName,
		&c.TotalDue,
		&c.PaidAmount,
		&c.Balance,
		&c.EventDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, charter.ErrCharterNotFound{Ref: ref}
		}
		r.logger.Error("Failed to get charter", "ref", ref, "error", err)
		return nil, fmt.Errorf("failed to get charter: %w", err)
	}

	return &c, nil
}

// UpdateDerivedBalances writes paid_amount and balance atomically as a single
// update. Both derived fields always move together.
func (r *CharterRepository) UpdateDerivedBalances(ctx context.Context, ref string, paid, balance decimal.Decimal) error {
	query := `
		UPDATE charters
		SET paid_amount = $1, balance = $2, updated_at = NOW()
		WHERE ref = $3
	`

	result, err := r.querier.Exec(ctx, query, paid, balance, ref)
	if err != nil {
		r.logger.Error("Failed to update derived balances", "ref", ref, "error", err)
		return fmt.Errorf("failed to update derived balances: %w", err)
	}

	if result.RowsAffected() == 0 {
		return charter.ErrCharterNotFound{Ref: ref}
	}

	return nil
}
