package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// MatchAudit is the permanent record of one link decision: which records were
// involved, which strategy graded them, and the distances that justified the
// grade. Rows are append-only and survive preview runs unchanged.
type MatchAudit struct {
	ID            uuid.UUID         `json:"id" bson:"id"`
	RunID         uuid.UUID         `json:"run_id" bson:"run_id"`
	Mode          shared.Mode       `json:"mode" bson:"mode"`
	Strategy      shared.Strategy   `json:"strategy" bson:"strategy"`
	Confidence    shared.Confidence `json:"confidence" bson:"confidence"`
	Outcome       shared.Outcome    `json:"outcome" bson:"outcome"`
	PaymentID     *uuid.UUID        `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	LedgerEntryID *uuid.UUID        `json:"ledger_entry_id,omitempty" bson:"ledger_entry_id,omitempty"`
	CharterRef    string            `json:"charter_ref,omitempty" bson:"charter_ref,omitempty"`
	AmountDelta   string            `json:"amount_delta" bson:"amount_delta"` // decimal string, exact
	DateDeltaDays int               `json:"date_delta_days" bson:"date_delta_days"`
	NameRatio     float64           `json:"name_ratio,omitempty" bson:"name_ratio,omitempty"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
}
