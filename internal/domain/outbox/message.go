package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// LinkEvent is the payload published for every applied link so downstream
// reporting consumers can track reconciliation progress.
type LinkEvent struct {
	RunID         uuid.UUID         `json:"run_id"`
	Strategy      shared.Strategy   `json:"strategy"`
	Confidence    shared.Confidence `json:"confidence"`
	PaymentID     *uuid.UUID        `json:"payment_id,omitempty"`
	LedgerEntryID *uuid.UUID        `json:"ledger_entry_id,omitempty"`
	CharterRef    string            `json:"charter_ref,omitempty"`
	Amount        string            `json:"amount"` // decimal string, exact
	AppliedAt     time.Time         `json:"applied_at"`
}

// Message stores a link event for reliable publishing. Rows are written in
// the same transaction as the link itself and drained after the run.
type Message struct {
	ID            int64               `json:"id"`
	RunID         uuid.UUID           `json:"run_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *LinkEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		RunID:     event.RunID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetLinkEvent extracts the link event from the payload
func (m *Message) GetLinkEvent() (*LinkEvent, error) {
	var event LinkEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
