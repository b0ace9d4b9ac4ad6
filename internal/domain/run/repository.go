package run

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists engine run summaries
type Repository interface {
	Create(ctx context.Context, r *Run) error
	Complete(ctx context.Context, r *Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, limit, offset int) ([]*Run, error)
}

// ErrRunNotFound indicates a missing run record
type ErrRunNotFound struct {
	ID uuid.UUID
}

func (e ErrRunNotFound) Error() string {
	return "reconciliation run not found: " + e.ID.String()
}

// Is matches any ErrRunNotFound when the target carries a nil ID
func (e ErrRunNotFound) Is(target error) bool {
	t, ok := target.(ErrRunNotFound)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}
