package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry represents one bank-statement line. Entries are created by statement
// ingestion and are immutable here except for their link columns and the
// verified flag.
type Entry struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        string          `json:"account_id"`
	EntryDate        time.Time       `json:"entry_date"`
	Amount           decimal.Decimal `json:"amount"` // signed: credits positive, debits negative
	Description      string          `json:"description"`
	CounterpartyName string          `json:"counterparty_name,omitempty"`
	PaymentID        *uuid.UUID      `json:"payment_id,omitempty"`
	CharterRef       string          `json:"charter_ref,omitempty"`
	Verified         bool            `json:"verified"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Linked reports whether the entry already carries a payment link or a
// verified charter link. An extracted charter_ref alone is an ingestion hint,
// not a link, until the verified flag is set.
func (e *Entry) Linked() bool {
	return e.PaymentID != nil || (e.CharterRef != "" && e.Verified)
}
