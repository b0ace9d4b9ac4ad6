package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/config"
	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
)

// LedgerCandidateSet holds the per-strategy candidate populations for one
// unmatched payment. The scorer consumes the strategies in order, so the
// generator keeps them separate rather than merging into one list.
type LedgerCandidateSet struct {
	ExactKey []*ledger.Entry // charter ref equal, amount equal, wide date window
	Window   []*ledger.Entry // amount within tolerance, generic date window
	Wide     []*ledger.Entry // amount within tolerance, wide window, name-scored
}

// Generator produces bounded candidate populations. An empty result is the
// normal "no match yet" outcome, never an error.
type Generator struct {
	ledgerRepo  ledger.Repository
	paymentRepo payment.Repository
	cfg         *config.MatchingConfig
}

// NewGenerator creates a candidate generator over the two record families
func NewGenerator(ledgerRepo ledger.Repository, paymentRepo payment.Repository, cfg *config.MatchingConfig) *Generator {
	return &Generator{
		ledgerRepo:  ledgerRepo,
		paymentRepo: paymentRepo,
		cfg:         cfg,
	}
}

// amountBounds returns the inclusive [min, max] band around amount for the
// configured relative tolerance.
func (g *Generator) amountBounds(amount decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	tolerance := amount.Abs().Mul(decimal.NewFromFloat(g.cfg.AmountTolerancePct))
	return amount.Sub(tolerance), amount.Add(tolerance)
}

func dateWindow(anchor time.Time, days int) (time.Time, time.Time) {
	return anchor.AddDate(0, 0, -days), anchor.AddDate(0, 0, days)
}

// LedgerCandidates returns the candidate ledger entries for one unmatched
// payment, bucketed by strategy.
func (g *Generator) LedgerCandidates(ctx context.Context, p *payment.Payment) (*LedgerCandidateSet, error) {
	set := &LedgerCandidateSet{}

	if p.CharterRef != "" {
		from, to := dateWindow(p.PaymentDate, g.cfg.KeyDateWindowDays)
		exact, err := g.ledgerRepo.FindCandidates(ctx, ledger.CandidateFilter{
			CharterRef: p.CharterRef,
			AmountMin:  p.Amount,
			AmountMax:  p.Amount,
			DateFrom:   from,
			DateTo:     to,
		})
		if err != nil {
			return nil, fmt.Errorf("exact-key candidate query: %w", err)
		}
		set.ExactKey = exact
		if len(exact) > 0 {
			return set, nil
		}
	}

	amountMin, amountMax := g.amountBounds(p.Amount)

	from, to := dateWindow(p.PaymentDate, g.cfg.DateWindowDays)
	window, err := g.ledgerRepo.FindCandidates(ctx, ledger.CandidateFilter{
		AmountMin: amountMin,
		AmountMax: amountMax,
		DateFrom:  from,
		DateTo:    to,
	})
	if err != nil {
		return nil, fmt.Errorf("amount-date candidate query: %w", err)
	}
	set.Window = window
	if len(window) > 0 {
		return set, nil
	}

	// Name similarity reaches further back in time than the generic window;
	// the scorer filters by counterparty-name ratio.
	wideFrom, wideTo := dateWindow(p.PaymentDate, g.cfg.KeyDateWindowDays)
	wide, err := g.ledgerRepo.FindCandidates(ctx, ledger.CandidateFilter{
		AmountMin: amountMin,
		AmountMax: amountMax,
		DateFrom:  wideFrom,
		DateTo:    wideTo,
	})
	if err != nil {
		return nil, fmt.Errorf("name-similarity candidate query: %w", err)
	}
	set.Wide = wide

	return set, nil
}

// CompetingPayments returns the unlinked payments that would match the entry
// under the generic amount and date windows. More than one competitor for the
// same entry means the pairing is ambiguous from the entry's side even when a
// single payment saw a single candidate.
func (g *Generator) CompetingPayments(ctx context.Context, e *ledger.Entry) ([]*payment.Payment, error) {
	amountMin, amountMax := g.amountBounds(e.Amount)
	from, to := dateWindow(e.EntryDate, g.cfg.DateWindowDays)

	competitors, err := g.paymentRepo.FindCandidates(ctx, payment.CandidateFilter{
		AmountMin: amountMin,
		AmountMax: amountMax,
		DateFrom:  from,
		DateTo:    to,
	})
	if err != nil {
		return nil, fmt.Errorf("competing payment query: %w", err)
	}
	return competitors, nil
}

// PaymentCandidates returns the unlinked payments sharing the entry's charter
// reference within the wide date window. Used by the batched-deposit sweep.
func (g *Generator) PaymentCandidates(ctx context.Context, e *ledger.Entry) ([]*payment.Payment, error) {
	if e.CharterRef == "" {
		return nil, nil
	}

	_, amountMax := g.amountBounds(e.Amount)
	from, to := dateWindow(e.EntryDate, g.cfg.KeyDateWindowDays)

	candidates, err := g.paymentRepo.FindCandidates(ctx, payment.CandidateFilter{
		CharterRef: e.CharterRef,
		AmountMin:  decimal.Zero,
		AmountMax:  amountMax,
		DateFrom:   from,
		DateTo:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("payment candidate query: %w", err)
	}
	return candidates, nil
}
