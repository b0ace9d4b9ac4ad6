package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment represents one recorded money movement on any channel. A payment
// links to at most one ledger entry, and to a charter through its reference.
type Payment struct {
	ID            uuid.UUID       `json:"id"`
	CharterRef    string          `json:"charter_ref,omitempty"` // may be unknown at ingestion
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	Method        string          `json:"method"`
	PayerName     string          `json:"payer_name,omitempty"`
	ProcessorRef  string          `json:"processor_ref,omitempty"` // strong disambiguator when present
	LedgerEntryID *uuid.UUID      `json:"ledger_entry_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Linked reports whether the payment is already tied to a ledger entry
func (p *Payment) Linked() bool {
	return p.LedgerEntryID != nil
}
