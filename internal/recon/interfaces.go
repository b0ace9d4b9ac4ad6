package recon

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// CandidateSource produces bounded candidate populations for unmatched records
type CandidateSource interface {
	LedgerCandidates(ctx context.Context, p *payment.Payment) (*LedgerCandidateSet, error)
	PaymentCandidates(ctx context.Context, e *ledger.Entry) ([]*payment.Payment, error)
	CompetingPayments(ctx context.Context, e *ledger.Entry) ([]*payment.Payment, error)
}

// MatchScorer grades and ranks candidates for one source record
type MatchScorer interface {
	Evaluate(p *payment.Payment, set *LedgerCandidateSet) *Evaluation
}

// LinkApplier idempotently writes links and their audit trail
type LinkApplier interface {
	ApplyPaymentLink(ctx context.Context, runID uuid.UUID, mode shared.Mode, m *Match) (shared.Outcome, error)
	ApplyCharterAggregate(ctx context.Context, runID uuid.UUID, mode shared.Mode, e *ledger.Entry, sum decimal.Decimal) (shared.Outcome, error)
}

// BalanceRecalculator refreshes a charter's derived fields from its linked
// payments
type BalanceRecalculator interface {
	Recalculate(ctx context.Context, ref string) error
}
