package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/domain/audit"
	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/domain/outbox"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// TxRunner runs a function inside one database transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Applier writes links. Each application is one transaction covering the
// idempotency re-check, the link columns, and the outbox row; the audit row
// is appended after commit. In preview mode only the audit row is written.
type Applier struct {
	db          TxRunner
	ledgerRepo  ledger.Repository
	paymentRepo payment.Repository
	outboxRepo  outbox.Repository
	auditRepo   audit.Repository
	logger      *slog.Logger
}

// NewApplier creates a link applier
func NewApplier(
	db TxRunner,
	ledgerRepo ledger.Repository,
	paymentRepo payment.Repository,
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) *Applier {
	return &Applier{
		db:          db,
		ledgerRepo:  ledgerRepo,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

// ApplyPaymentLink commits a 1:1 payment-to-entry link. The link columns are
// re-read inside the transaction rather than trusting the sweep's snapshot,
// so a record linked since candidate generation is skipped, not overwritten.
func (a *Applier) ApplyPaymentLink(ctx context.Context, runID uuid.UUID, mode shared.Mode, m *Match) (shared.Outcome, error) {
	outcome := shared.OutcomeLinked

	if mode == shared.ModeApply {
		err := a.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			paymentTx := a.paymentRepo.WithTx(tx)
			ledgerTx := a.ledgerRepo.WithTx(tx)

			current, err := paymentTx.GetByID(ctx, m.Payment.ID)
			if err != nil {
				return fmt.Errorf("idempotency re-check of payment: %w", err)
			}
			if current.Linked() {
				outcome = shared.OutcomeAlreadyLinked
				return nil
			}

			entry, err := ledgerTx.GetByID(ctx, m.Entry.ID)
			if err != nil {
				return fmt.Errorf("idempotency re-check of ledger entry: %w", err)
			}
			if entry.Linked() {
				outcome = shared.OutcomeAlreadyLinked
				return nil
			}

			if err := paymentTx.SetLedgerLink(ctx, m.Payment.ID, m.Entry.ID); err != nil {
				return err
			}
			// Only a key-anchored link verifies the entry; window and name
			// matches link without the verified mark.
			verified := m.Strategy == shared.StrategyExactKey
			if err := ledgerTx.SetPaymentLink(ctx, m.Entry.ID, m.Payment.ID, verified); err != nil {
				return err
			}

			return a.createOutboxMessage(ctx, tx, &outbox.LinkEvent{
				RunID:         runID,
				Strategy:      m.Strategy,
				Confidence:    m.Confidence,
				PaymentID:     &m.Payment.ID,
				LedgerEntryID: &m.Entry.ID,
				CharterRef:    m.Payment.CharterRef,
				Amount:        m.Payment.Amount.String(),
				AppliedAt:     time.Now(),
			})
		})
		if err != nil {
			return "", err
		}
	}

	a.appendAudit(ctx, &audit.MatchAudit{
		ID:            uuid.New(),
		RunID:         runID,
		Mode:          mode,
		Strategy:      m.Strategy,
		Confidence:    m.Confidence,
		Outcome:       outcome,
		PaymentID:     &m.Payment.ID,
		LedgerEntryID: &m.Entry.ID,
		CharterRef:    m.Payment.CharterRef,
		AmountDelta:   m.AmountDelta.String(),
		DateDeltaDays: m.DateDeltaDays,
		NameRatio:     m.NameRatio,
		CreatedAt:     time.Now(),
	})

	return outcome, nil
}

// ApplyCharterAggregate commits a charter-level link for a batched deposit
// that funds several payments under one reference. The entry is never split
// into synthetic 1:1 links.
func (a *Applier) ApplyCharterAggregate(ctx context.Context, runID uuid.UUID, mode shared.Mode, e *ledger.Entry, sum decimal.Decimal) (shared.Outcome, error) {
	outcome := shared.OutcomeLinked

	if mode == shared.ModeApply {
		err := a.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			ledgerTx := a.ledgerRepo.WithTx(tx)

			current, err := ledgerTx.GetByID(ctx, e.ID)
			if err != nil {
				return fmt.Errorf("idempotency re-check of ledger entry: %w", err)
			}
			if current.Linked() {
				outcome = shared.OutcomeAlreadyLinked
				return nil
			}

			if err := ledgerTx.SetCharterLink(ctx, e.ID, e.CharterRef); err != nil {
				return err
			}

			return a.createOutboxMessage(ctx, tx, &outbox.LinkEvent{
				RunID:         runID,
				Strategy:      shared.StrategyBatchAggregate,
				Confidence:    shared.ConfidenceHigh,
				LedgerEntryID: &e.ID,
				CharterRef:    e.CharterRef,
				Amount:        e.Amount.String(),
				AppliedAt:     time.Now(),
			})
		})
		if err != nil {
			return "", err
		}
	}

	a.appendAudit(ctx, &audit.MatchAudit{
		ID:            uuid.New(),
		RunID:         runID,
		Mode:          mode,
		Strategy:      shared.StrategyBatchAggregate,
		Confidence:    shared.ConfidenceHigh,
		Outcome:       outcome,
		LedgerEntryID: &e.ID,
		CharterRef:    e.CharterRef,
		AmountDelta:   e.Amount.Sub(sum).Abs().String(),
		CreatedAt:     time.Now(),
	})

	return outcome, nil
}

func (a *Applier) createOutboxMessage(ctx context.Context, tx pgx.Tx, event *outbox.LinkEvent) error {
	message, err := outbox.NewMessage(event)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	return a.outboxRepo.WithTx(tx).Create(ctx, message)
}

// appendAudit records the decision. The link itself is already durable at
// this point, so an audit store failure is logged rather than failing the
// record; the outbox row still carries the event.
func (a *Applier) appendAudit(ctx context.Context, row *audit.MatchAudit) {
	if err := a.auditRepo.Append(ctx, row); err != nil {
		a.logger.Error("Failed to append match audit",
			"run_id", row.RunID.String(),
			"outcome", string(row.Outcome),
			"error", err,
		)
	}
}
