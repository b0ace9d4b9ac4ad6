// Package postgres provides PostgreSQL implementations of the domain
// repositories. The engine never creates or deletes ledger entries, payments,
// or charters; those rows belong to upstream ingestion. Only link columns,
// the verified flag, and derived balance fields are written here.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/platform/persistence"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger entry repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const ledgerColumns = `id, account_id, entry_date, amount, description, COALESCE(counterparty_name, ''), payment_id, COALESCE(charter_ref, ''), verified, created_at`

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(
		&e.ID,
		&e.AccountID,
		&e.EntryDate,
		&e.Amount,
		&e.Description,
		&e.CounterpartyName,
		&e.PaymentID,
		&e.CharterRef,
		&e.Verified,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE id = $1
	`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{ID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return e, nil
}

// GetUnlinkedByCharterRef returns entries carrying an extracted charter
// reference but no link yet, within the date range. These drive the
// batched-deposit sweep.
func (r *LedgerRepository) GetUnlinkedByCharterRef(ctx context.Context, from, to time.Time) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE payment_id IS NULL
		  AND charter_ref IS NOT NULL AND charter_ref <> ''
		  AND NOT verified
		  AND entry_date >= $1 AND entry_date <= $2
		ORDER BY entry_date, id
	`

	rows, err := r.querier.Query(ctx, query, from, to)
	if err != nil {
		r.logger.Error("Failed to query unlinked keyed ledger entries", "error", err)
		return nil, fmt.Errorf("failed to query unlinked keyed ledger entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// CountAggregateLinked reports how many keyed entries within the date range
// carry a charter-aggregate link. A verified entry without a payment link is
// exactly the aggregate case; 1:1 links are counted on the payment side.
func (r *LedgerRepository) CountAggregateLinked(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE payment_id IS NULL
		  AND charter_ref IS NOT NULL AND charter_ref <> ''
		  AND verified
		  AND entry_date >= $1 AND entry_date <= $2
	`

	var count int
	if err := r.querier.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		r.logger.Error("Failed to count aggregate-linked ledger entries", "error", err)
		return 0, fmt.Errorf("failed to count aggregate-linked ledger entries: %w", err)
	}

	return count, nil
}

// FindCandidates returns unlinked entries satisfying the filter bounds,
// ordered by entry date then id for deterministic evaluation.
func (r *LedgerRepository) FindCandidates(ctx context.Context, filter ledger.CandidateFilter) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE payment_id IS NULL
		  AND ($1 = '' OR account_id = $1)
		  AND amount >= $2 AND amount <= $3
		  AND entry_date >= $4 AND entry_date <= $5
		  AND ($6 = '' OR charter_ref = $6)
		ORDER BY entry_date, id
	`

	rows, err := r.querier.Query(ctx, query,
		filter.AccountID,
		filter.AmountMin,
		filter.AmountMax,
		filter.DateFrom,
		filter.DateTo,
		filter.CharterRef,
	)
	if err != nil {
		r.logger.Error("Failed to query ledger candidates", "error", err)
		return nil, fmt.Errorf("failed to query ledger candidates: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// SetPaymentLink writes the 1:1 payment link. The WHERE clause re-checks the
// link column so an already-linked row is never overwritten.
func (r *LedgerRepository) SetPaymentLink(ctx context.Context, id uuid.UUID, paymentID uuid.UUID, verified bool) error {
	query := `
		UPDATE ledger_entries
		SET payment_id = $1, verified = $2
		WHERE id = $3 AND (payment_id IS NULL OR payment_id = $1)
	`

	result, err := r.querier.Exec(ctx, query, paymentID, verified, id)
	if err != nil {
		r.logger.Error("Failed to set payment link", "id", id.String(), "payment_id", paymentID.String(), "error", err)
		return fmt.Errorf("failed to set payment link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrAlreadyLinked{ID: id}
	}

	return nil
}

// SetCharterLink writes the charter-aggregate link used for batched deposits
func (r *LedgerRepository) SetCharterLink(ctx context.Context, id uuid.UUID, charterRef string) error {
	query := `
		UPDATE ledger_entries
		SET charter_ref = $1, verified = TRUE
		WHERE id = $2 AND payment_id IS NULL AND NOT verified
	`

	result, err := r.querier.Exec(ctx, query, charterRef, id)
	if err != nil {
		r.logger.Error("Failed to set charter link", "id", id.String(), "charter_ref", charterRef, "error", err)
		return fmt.Errorf("failed to set charter link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrAlreadyLinked{ID: id}
	}

	return nil
}

func collectEntries(rows pgx.Rows) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}
