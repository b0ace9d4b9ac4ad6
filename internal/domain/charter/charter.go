package charter

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charter is the business record a payment settles (a booking/invoice).
// PaidAmount and Balance are derived fields owned by the balance
// recalculator; nothing else writes them after ingestion.
type Charter struct {
	ID         uuid.UUID       `json:"id"`
	Ref        string          `json:"ref,omitempty"` // human-assigned booking reference, may be absent
	ClientName string          `json:"client_name,omitempty"`
	TotalDue   decimal.Decimal `json:"total_due"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Balance    decimal.Decimal `json:"balance"`
	EventDate  time.Time       `json:"event_date"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CheckBalance verifies the running invariant balance == total_due - paid,
// with total_due non-negative. A negative total_due means malformed upstream
// data and fails the check even when the arithmetic is internally consistent.
func (c *Charter) CheckBalance() error {
	expected := c.TotalDue.Sub(c.PaidAmount)
	if c.TotalDue.IsNegative() || !c.Balance.Equal(expected) {
		return ErrInvariantViolation{
			Ref:      c.Ref,
			TotalDue: c.TotalDue,
			Paid:     c.PaidAmount,
			Balance:  c.Balance,
		}
	}
	return nil
}
