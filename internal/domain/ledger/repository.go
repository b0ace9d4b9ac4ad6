package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CandidateFilter bounds a candidate query. Zero-value fields are not applied.
type CandidateFilter struct {
	AccountID  string
	AmountMin  decimal.Decimal
	AmountMax  decimal.Decimal
	DateFrom   time.Time
	DateTo     time.Time
	CharterRef string
}

// Repository manages ledger entry persistence. Entries are never created or
// deleted here; only their link columns and verified flag are written.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetUnlinkedByCharterRef returns entries carrying an extracted charter
	// reference but no link yet, within the given date range.
	GetUnlinkedByCharterRef(ctx context.Context, from, to time.Time) ([]*Entry, error)

	// CountAggregateLinked reports how many keyed entries within the date
	// range carry a charter-aggregate link. Entries linked 1:1 are already
	// represented by their payment in the already-linked tally.
	CountAggregateLinked(ctx context.Context, from, to time.Time) (int, error)

	// FindCandidates returns unlinked entries satisfying the filter bounds,
	// ordered by entry date then id for deterministic evaluation.
	FindCandidates(ctx context.Context, filter CandidateFilter) ([]*Entry, error)

	// SetPaymentLink writes the 1:1 payment link. Returns ErrAlreadyLinked if
	// the entry is linked to a different payment.
	SetPaymentLink(ctx context.Context, id uuid.UUID, paymentID uuid.UUID, verified bool) error

	// SetCharterLink writes the charter-aggregate link used for batched
	// deposits that fund multiple payments under one reference.
	SetCharterLink(ctx context.Context, id uuid.UUID, charterRef string) error

	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates a missing ledger entry
type ErrEntryNotFound struct {
	ID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.ID.String()
}

// Is matches any ErrEntryNotFound when the target carries a nil ID
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}

// ErrAlreadyLinked indicates the entry carries a conflicting link
type ErrAlreadyLinked struct {
	ID uuid.UUID
}

func (e ErrAlreadyLinked) Error() string {
	return "ledger entry already linked: " + e.ID.String()
}

// Is matches any ErrAlreadyLinked when the target carries a nil ID
func (e ErrAlreadyLinked) Is(target error) bool {
	t, ok := target.(ErrAlreadyLinked)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}
