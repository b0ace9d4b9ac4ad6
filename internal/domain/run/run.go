package run

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// Run records one engine invocation and its per-outcome tallies. One row per
// sweep; completed in place when the sweep finishes.
type Run struct {
	ID              uuid.UUID       `json:"id"`
	Mode            shared.Mode     `json:"mode"`
	Selector        string          `json:"selector"` // human-readable population description
	ConfidenceFloor string          `json:"confidence_floor"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Linked          int             `json:"linked"`
	AlreadyLinked   int             `json:"already_linked"`
	Ambiguous       int             `json:"ambiguous"`
	Unmatched       int             `json:"unmatched"`
	Errored         int             `json:"errored"`
	LinkedAmount    decimal.Decimal `json:"linked_amount"`
	UnmatchedAmount decimal.Decimal `json:"unmatched_amount"`
}
