package audit

import (
	"context"

	"github.com/google/uuid"
)

// Filter selects audit rows for the reporting surface. Zero-value fields are
// not applied.
type Filter struct {
	RunID         uuid.UUID
	PaymentID     uuid.UUID
	LedgerEntryID uuid.UUID
	CharterRef    string
	Limit         int
	Offset        int
}

// Repository persists match audit rows. Append-only: there is deliberately no
// update or delete operation.
type Repository interface {
	Append(ctx context.Context, row *MatchAudit) error
	List(ctx context.Context, filter Filter) ([]*MatchAudit, error)
	CountByRunID(ctx context.Context, runID uuid.UUID) (int64, error)
}
