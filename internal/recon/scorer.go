package recon

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/config"
	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// Scorer grades candidate matches. It is a pure function of its inputs:
// no store access, so repeated evaluation of the same data yields the same
// ranking, and the tier boundaries are testable in isolation.
type Scorer struct {
	cfg *config.MatchingConfig
}

// NewScorer creates a scorer with the configured tolerances
func NewScorer(cfg *config.MatchingConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Evaluate grades the candidate set for one payment. Strategies apply in
// fixed priority order; the first strategy with at least one candidate wins
// and every candidate it produced is graded and ranked.
func (s *Scorer) Evaluate(p *payment.Payment, set *LedgerCandidateSet) *Evaluation {
	var matches []*Match

	switch {
	case len(set.ExactKey) > 0:
		for _, e := range set.ExactKey {
			matches = append(matches, s.gradeExactKey(p, e))
		}
	case len(set.Window) > 0:
		for _, e := range set.Window {
			matches = append(matches, s.gradeAmountDate(p, e))
		}
	default:
		for _, e := range set.Wide {
			if m := s.gradeNameSimilarity(p, e); m != nil {
				matches = append(matches, m)
			}
		}
	}

	if len(matches) == 0 {
		return &Evaluation{}
	}

	rankMatches(matches)
	return s.resolveTies(p, matches)
}

func (s *Scorer) gradeExactKey(p *payment.Payment, e *ledger.Entry) *Match {
	return &Match{
		Payment:       p,
		Entry:         e,
		Strategy:      shared.StrategyExactKey,
		Confidence:    shared.ConfidenceHigh,
		AmountDelta:   p.Amount.Sub(e.Amount).Abs(),
		DateDeltaDays: dateDeltaDays(p.PaymentDate, e.EntryDate),
	}
}

func (s *Scorer) gradeAmountDate(p *payment.Payment, e *ledger.Entry) *Match {
	amountDelta := p.Amount.Sub(e.Amount).Abs()
	dateDelta := dateDeltaDays(p.PaymentDate, e.EntryDate)

	confidence := shared.ConfidenceMedium
	if dateDelta <= s.cfg.HighDateDeltaDays && amountDelta.LessThan(decimal.NewFromFloat(s.cfg.HighAmountDelta)) {
		confidence = shared.ConfidenceHigh
	}

	return &Match{
		Payment:       p,
		Entry:         e,
		Strategy:      shared.StrategyAmountDate,
		Confidence:    confidence,
		AmountDelta:   amountDelta,
		DateDeltaDays: dateDelta,
	}
}

// gradeNameSimilarity returns nil when the normalized-name ratio falls below
// the acceptance floor.
func (s *Scorer) gradeNameSimilarity(p *payment.Payment, e *ledger.Entry) *Match {
	ratio := NameRatio(p.PayerName, e.CounterpartyName)
	if ratio < s.cfg.NameSimilarityMin {
		return nil
	}

	confidence := shared.ConfidenceMedium
	if ratio >= s.cfg.NameSimilarityHigh {
		confidence = shared.ConfidenceHigh
	}

	return &Match{
		Payment:       p,
		Entry:         e,
		Strategy:      shared.StrategyNameSimilarity,
		Confidence:    confidence,
		AmountDelta:   p.Amount.Sub(e.Amount).Abs(),
		DateDeltaDays: dateDeltaDays(p.PaymentDate, e.EntryDate),
		NameRatio:     ratio,
	}
}

// resolveTies inspects the top confidence tier. More than one candidate there
// means the record cannot be applied automatically unless a processor
// reference singles one out, in which case the survivor is promoted to HIGH.
func (s *Scorer) resolveTies(p *payment.Payment, matches []*Match) *Evaluation {
	top := topTier(matches)
	if len(top) == 1 {
		return &Evaluation{Matches: matches}
	}

	if p.ProcessorRef != "" {
		ref := strings.ToLower(p.ProcessorRef)
		var survivors []*Match
		for _, m := range top {
			if strings.Contains(strings.ToLower(m.Entry.Description), ref) {
				survivors = append(survivors, m)
			}
		}
		if len(survivors) == 1 {
			survivors[0].Confidence = shared.ConfidenceHigh
			return &Evaluation{Matches: survivors}
		}
	}

	return &Evaluation{Matches: matches, Ambiguous: true}
}

// topTier returns the leading run of matches sharing the best confidence.
// Assumes matches are already ranked.
func topTier(matches []*Match) []*Match {
	best := matches[0].Confidence
	for i, m := range matches {
		if m.Confidence != best {
			return matches[:i]
		}
	}
	return matches
}

// rankMatches orders best first: confidence, then smallest amount delta, then
// smallest date delta, then entry id as a stable final key.
func rankMatches(matches []*Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Confidence != b.Confidence {
			return a.Confidence.AtLeast(b.Confidence) && !b.Confidence.AtLeast(a.Confidence)
		}
		if !a.AmountDelta.Equal(b.AmountDelta) {
			return a.AmountDelta.LessThan(b.AmountDelta)
		}
		if a.DateDeltaDays != b.DateDeltaDays {
			return a.DateDeltaDays < b.DateDeltaDays
		}
		return a.Entry.ID.String() < b.Entry.ID.String()
	})
}

func dateDeltaDays(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
