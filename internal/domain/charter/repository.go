package charter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository manages charter persistence. Only the derived paid_amount and
// balance columns are ever written, and always together.
type Repository interface {
	GetByRef(ctx context.Context, ref string) (*Charter, error)

	// UpdateDerivedBalances writes paid_amount and balance atomically as a
	// single update for the charter reference.
	UpdateDerivedBalances(ctx context.Context, ref string, paid, balance decimal.Decimal) error

	WithTx(tx pgx.Tx) Repository
}

// ErrCharterNotFound indicates a missing charter record
type ErrCharterNotFound struct {
	Ref string
}

func (e ErrCharterNotFound) Error() string {
	return "charter not found: " + e.Ref
}

// Is matches any ErrCharterNotFound when the target carries an empty ref
func (e ErrCharterNotFound) Is(target error) bool {
	t, ok := target.(ErrCharterNotFound)
	if !ok {
		return false
	}
	return t.Ref == "" || e.Ref == t.Ref
}

// ErrInvariantViolation indicates the post-recompute balance check failed.
// It aborts the recompute transaction for that charter only and requires
// manual data correction upstream.
type ErrInvariantViolation struct {
	Ref      string
	TotalDue decimal.Decimal
	Paid     decimal.Decimal
	Balance  decimal.Decimal
}

func (e ErrInvariantViolation) Error() string {
	return fmt.Sprintf("balance invariant violated for charter %s: total_due=%s paid=%s balance=%s",
		e.Ref, e.TotalDue.String(), e.Paid.String(), e.Balance.String())
}

// Is matches any ErrInvariantViolation when the target carries an empty ref
func (e ErrInvariantViolation) Is(target error) bool {
	t, ok := target.(ErrInvariantViolation)
	if !ok {
		return false
	}
	return t.Ref == "" || e.Ref == t.Ref
}
