package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Selector bounds the population an engine run sweeps. Zero-value fields are
// not applied.
type Selector struct {
	DateFrom      time.Time
	DateTo        time.Time
	CharterRefPat string // SQL LIKE pattern, e.g. "R1%"
}

// CandidateFilter bounds a candidate query against payments.
type CandidateFilter struct {
	CharterRef string
	AmountMin  decimal.Decimal
	AmountMax  decimal.Decimal
	DateFrom   time.Time
	DateTo     time.Time
}

// Repository manages payment persistence. Payments are never created or
// deleted here; only the ledger link column is written.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// GetUnlinked returns payments without a ledger link matching the
	// selector, ordered by payment date then id.
	GetUnlinked(ctx context.Context, sel Selector) ([]*Payment, error)

	// CountLinked reports how many payments in the selector population
	// already carry a ledger link. Linked payments never enter the sweep;
	// the engine tallies them as already-linked skips.
	CountLinked(ctx context.Context, sel Selector) (int, error)

	// GetLinkedByCharterRef returns every payment currently tied to the
	// charter reference, for balance recomputation.
	GetLinkedByCharterRef(ctx context.Context, charterRef string) ([]*Payment, error)

	// FindCandidates returns unlinked payments satisfying the filter bounds.
	FindCandidates(ctx context.Context, filter CandidateFilter) ([]*Payment, error)

	// SetLedgerLink writes the 1:1 ledger link. Returns ErrAlreadyLinked if
	// the payment is linked to a different entry.
	SetLedgerLink(ctx context.Context, id uuid.UUID, ledgerEntryID uuid.UUID) error

	WithTx(tx pgx.Tx) Repository
}

// ErrPaymentNotFound indicates a missing payment
type ErrPaymentNotFound struct {
	ID uuid.UUID
}

func (e ErrPaymentNotFound) Error() string {
	return "payment not found: " + e.ID.String()
}

// Is matches any ErrPaymentNotFound when the target carries a nil ID
func (e ErrPaymentNotFound) Is(target error) bool {
	t, ok := target.(ErrPaymentNotFound)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}

// ErrAlreadyLinked indicates the payment carries a conflicting ledger link
type ErrAlreadyLinked struct {
	ID uuid.UUID
}

func (e ErrAlreadyLinked) Error() string {
	return "payment already linked: " + e.ID.String()
}

// Is matches any ErrAlreadyLinked when the target carries a nil ID
func (e ErrAlreadyLinked) Is(target error) bool {
	t, ok := target.(ErrAlreadyLinked)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}
