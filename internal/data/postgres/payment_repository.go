package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/charterdesk/recon-engine/internal/domain/payment"
	"github.com/charterdesk/recon-engine/internal/platform/persistence"
)

// PaymentRepository implements the payment.Repository interface for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *PaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const paymentColumns = `id, COALESCE(charter_ref, ''), amount, payment_date, method, COALESCE(payer_name, ''), COALESCE(processor_ref, ''), ledger_entry_id, created_at`

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID,
		&p.CharterRef,
		&p.Amount,
		&p.PaymentDate,
		&p.Method,
		&p.PayerName,
		&p.ProcessorRef,
		&p.LedgerEntryID,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
	`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{ID: id}
		}
		r.logger.Error("Failed to get payment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// GetUnlinked returns payments without a ledger link matching the selector,
// ordered by payment date then id for deterministic sweeps.
func (r *PaymentRepository) GetUnlinked(ctx context.Context, sel payment.Selector) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE ledger_entry_id IS NULL
		  AND ($1::timestamptz IS NULL OR payment_date >= $1)
		  AND ($2::timestamptz IS NULL OR payment_date <= $2)
		  AND ($3 = '' OR charter_ref LIKE $3)
		ORDER BY payment_date, id
	`

	var from, to interface{}
	if !sel.DateFrom.IsZero() {
		from = sel.DateFrom
	}
	if !sel.DateTo.IsZero() {
		to = sel.DateTo
	}

	rows, err := r.querier.Query(ctx, query, from, to, sel.CharterRefPat)
	if err != nil {
		r.logger.Error("Failed to query unlinked payments", "error", err)
		return nil, fmt.Errorf("failed to query unlinked payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

// CountLinked reports how many payments in the selector population already
// carry a ledger link. The sweep query excludes them, so a re-run tallies
// them from this count instead.
func (r *PaymentRepository) CountLinked(ctx context.Context, sel payment.Selector) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM payments
		WHERE ledger_entry_id IS NOT NULL
		  AND ($1::timestamptz IS NULL OR payment_date >= $1)
		  AND ($2::timestamptz IS NULL OR payment_date <= $2)
		  AND ($3 = '' OR charter_ref LIKE $3)
	`

	var from, to interface{}
	if !sel.DateFrom.IsZero() {
		from = sel.DateFrom
	}
	if !sel.DateTo.IsZero() {
		to = sel.DateTo
	}

	var count int
	if err := r.querier.QueryRow(ctx, query, from, to, sel.CharterRefPat).Scan(&count); err != nil {
		r.logger.Error("Failed to count linked payments", "error", err)
		return 0, fmt.Errorf("failed to count linked payments: %w", err)
	}

	return count, nil
}

// GetLinkedByCharterRef returns every payment currently tied to the charter
// reference. The balance recalculator sums these.
func (r *PaymentRepository) GetLinkedByCharterRef(ctx context.Context, charterRef string) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE charter_ref = $1
		ORDER BY payment_date, id
	`

	rows, err := r.querier.Query(ctx, query, charterRef)
	if err != nil {
		r.logger.Error("Failed to query payments by charter ref", "charter_ref", charterRef, "error", err)
		return nil, fmt.Errorf("failed to query payments by charter ref: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

// FindCandidates returns unlinked payments satisfying the filter bounds
func (r *PaymentRepository) FindCandidates(ctx context.Context, filter payment.CandidateFilter) ([]*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE ledger_entry_id IS NULL
		  AND ($1 = '' OR charter_ref = $1)
		  AND amount >= $2 AND amount <= $3
		  AND payment_date >= $4 AND payment_date <= $5
		ORDER BY payment_date, id
	`

	rows, err := r.querier.Query(ctx, query,
		filter.CharterRef,
		filter.AmountMin,
		filter.AmountMax,
		filter.DateFrom,
		filter.DateTo,
	)
	if err != nil {
		r.logger.Error("Failed to query payment candidates", "error", err)
		return nil, fmt.Errorf("failed to query payment candidates: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

// SetLedgerLink writes the 1:1 ledger link. The WHERE clause re-checks the
// link column so an already-linked row is never overwritten.
func (r *PaymentRepository) SetLedgerLink(ctx context.Context, id uuid.UUID, ledgerEntryID uuid.UUID) error {
	query := `
		UPDATE payments
		SET ledger_entry_id = $1
		WHERE id = $2 AND (ledger_entry_id IS NULL OR ledger_entry_id = $1)
	`

	result, err := r.querier.Exec(ctx, query, ledgerEntryID, id)
	if err != nil {
		r.logger.Error("Failed to set ledger link", "id", id.String(), "ledger_entry_id", ledgerEntryID.String(), "error", err)
		return fmt.Errorf("failed to set ledger link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payment.ErrAlreadyLinked{ID: id}
	}

	return nil
}

func collectPayments(rows pgx.Rows) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}
