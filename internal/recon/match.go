// Package recon implements the reconciliation engine: candidate generation,
// confidence-scored matching, idempotent link application, and derived
// balance recomputation over ledger entries, payments, and charters.
package recon

import (
	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// Match is one scored pairing of a payment and a ledger entry. The distance
// metrics are carried through to the audit row so every link stays explainable.
type Match struct {
	Payment       *payment.Payment
	Entry         *ledger.Entry
	Strategy      shared.Strategy
	Confidence    shared.Confidence
	AmountDelta   decimal.Decimal // absolute
	DateDeltaDays int             // absolute
	NameRatio     float64         // 0 when the strategy did not compare names
}

// Evaluation is the scorer's verdict for one source record. Matches are
// ranked best first; Ambiguous means the top tier held multiple candidates
// after disambiguation and nothing may be applied automatically.
type Evaluation struct {
	Matches   []*Match
	Ambiguous bool
}

// Best returns the top-ranked match, or nil when there is none or the
// evaluation is ambiguous.
func (ev *Evaluation) Best() *Match {
	if ev.Ambiguous || len(ev.Matches) == 0 {
		return nil
	}
	return ev.Matches[0]
}
