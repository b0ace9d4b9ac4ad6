package recon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/config"
	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
	"github.com/charterdesk/recon-engine/internal/domain/run"
	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// Params selects the population one engine run sweeps and how aggressively
// matches are applied.
type Params struct {
	Mode          shared.Mode
	DateFrom      time.Time // zero means open
	DateTo        time.Time // zero means open
	CharterRefPat string    // SQL LIKE pattern, empty means all
	ApplyFloor    shared.Confidence
}

func (p *Params) validate() error {
	if !p.Mode.Valid() {
		return fmt.Errorf("invalid mode %q", string(p.Mode))
	}
	if p.ApplyFloor == "" {
		p.ApplyFloor = shared.ConfidenceHigh
	}
	if p.ApplyFloor != shared.ConfidenceHigh && p.ApplyFloor != shared.ConfidenceMedium {
		return fmt.Errorf("apply floor must be HIGH or MEDIUM, got %q", string(p.ApplyFloor))
	}
	if !p.DateFrom.IsZero() && !p.DateTo.IsZero() && p.DateTo.Before(p.DateFrom) {
		return fmt.Errorf("date range end precedes start")
	}
	return nil
}

func (p *Params) selector() string {
	from, to := "*", "*"
	if !p.DateFrom.IsZero() {
		from = p.DateFrom.Format("2006-01-02")
	}
	if !p.DateTo.IsZero() {
		to = p.DateTo.Format("2006-01-02")
	}
	pat := p.CharterRefPat
	if pat == "" {
		pat = "*"
	}
	return fmt.Sprintf("dates=%s..%s refs=%s", from, to, pat)
}

// Engine runs one full sweep over the unmatched population: payments against
// ledger entries first, then keyed ledger entries against payments for
// batched deposits, then one balance recompute per charter touched. The sweep
// is single threaded; a record failure is counted and the run continues.
type Engine struct {
	generator   CandidateSource
	scorer      MatchScorer
	applier     LinkApplier
	recalc      BalanceRecalculator
	paymentRepo payment.Repository
	ledgerRepo  ledger.Repository
	runRepo     run.Repository
	cfg         *config.MatchingConfig
	logger      *slog.Logger
}

// NewEngine wires the engine components together
func NewEngine(
	generator CandidateSource,
	scorer MatchScorer,
	applier LinkApplier,
	recalc BalanceRecalculator,
	paymentRepo payment.Repository,
	ledgerRepo ledger.Repository,
	runRepo run.Repository,
	cfg *config.MatchingConfig,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		generator:   generator,
		scorer:      scorer,
		applier:     applier,
		recalc:      recalc,
		paymentRepo: paymentRepo,
		ledgerRepo:  ledgerRepo,
		runRepo:     runRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run executes one reconciliation sweep and returns the completed run record
func (e *Engine) Run(ctx context.Context, params Params) (*run.Run, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	rn := &run.Run{
		ID:              uuid.New(),
		Mode:            params.Mode,
		Selector:        params.selector(),
		ConfidenceFloor: string(params.ApplyFloor),
		StartedAt:       time.Now(),
		LinkedAmount:    decimal.Zero,
		UnmatchedAmount: decimal.Zero,
	}
	if err := e.runRepo.Create(ctx, rn); err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	e.logger.Info("Reconciliation run started",
		"run_id", rn.ID.String(),
		"mode", string(params.Mode),
		"selector", rn.Selector,
		"floor", string(params.ApplyFloor),
	)

	touched := make(map[string]struct{})

	sel := payment.Selector{
		DateFrom:      params.DateFrom,
		DateTo:        params.DateTo,
		CharterRefPat: params.CharterRefPat,
	}
	payments, err := e.paymentRepo.GetUnlinked(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched payments: %w", err)
	}

	// Records linked by earlier runs never enter the sweep queries; count
	// them so a re-run over settled data still reports them as skips.
	carried, err := e.paymentRepo.CountLinked(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("failed to count previously linked payments: %w", err)
	}
	rn.AlreadyLinked += carried

	for _, p := range payments {
		e.processPayment(ctx, rn, params, p, touched)
	}

	keyedFrom, keyedTo := keyedSweepBounds(params)
	entries, err := e.ledgerRepo.GetUnlinkedByCharterRef(ctx, keyedFrom, keyedTo)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched keyed entries: %w", err)
	}

	// Aggregate-linked entries have no payment counterpart in the count
	// above, so they get their own.
	aggregated, err := e.ledgerRepo.CountAggregateLinked(ctx, keyedFrom, keyedTo)
	if err != nil {
		return nil, fmt.Errorf("failed to count aggregate-linked entries: %w", err)
	}
	rn.AlreadyLinked += aggregated

	for _, entry := range entries {
		e.processKeyedEntry(ctx, rn, params, entry, touched)
	}

	if params.Mode == shared.ModeApply {
		e.recalculateTouched(ctx, rn, touched)
	}

	if err := e.runRepo.Complete(ctx, rn); err != nil {
		return nil, fmt.Errorf("failed to record run completion: %w", err)
	}

	e.logger.Info("Reconciliation run completed",
		"run_id", rn.ID.String(),
		"linked", rn.Linked,
		"already_linked", rn.AlreadyLinked,
		"ambiguous", rn.Ambiguous,
		"unmatched", rn.Unmatched,
		"errored", rn.Errored,
	)

	return rn, nil
}

// processPayment evaluates and, when confident enough, links one payment.
// Failures are tallied, logged, and do not stop the sweep.
func (e *Engine) processPayment(ctx context.Context, rn *run.Run, params Params, p *payment.Payment, touched map[string]struct{}) {
	set, err := e.generator.LedgerCandidates(ctx, p)
	if err != nil {
		rn.Errored++
		e.logger.Error("Candidate generation failed",
			"run_id", rn.ID.String(),
			"payment_id", p.ID.String(),
			"error", err,
		)
		return
	}

	ev := e.scorer.Evaluate(p, set)
	if ev.Ambiguous {
		rn.Ambiguous++
		e.logger.Warn("Ambiguous candidates, manual resolution required",
			"run_id", rn.ID.String(),
			"payment_id", p.ID.String(),
			"candidates", len(ev.Matches),
		)
		return
	}

	best := ev.Best()
	if best == nil || !best.Confidence.AtLeast(params.ApplyFloor) {
		rn.Unmatched++
		rn.UnmatchedAmount = rn.UnmatchedAmount.Add(p.Amount)
		return
	}

	if best.Strategy != shared.StrategyExactKey {
		ambiguous, err := e.contestedEntry(ctx, p, best)
		if err != nil {
			rn.Errored++
			e.logger.Error("Competitor check failed",
				"run_id", rn.ID.String(),
				"payment_id", p.ID.String(),
				"error", err,
			)
			return
		}
		if ambiguous {
			rn.Ambiguous++
			e.logger.Warn("Entry contested by multiple payments, manual resolution required",
				"run_id", rn.ID.String(),
				"payment_id", p.ID.String(),
				"ledger_entry_id", best.Entry.ID.String(),
			)
			return
		}
	}

	outcome, err := e.applier.ApplyPaymentLink(ctx, rn.ID, params.Mode, best)
	if err != nil {
		rn.Errored++
		e.logger.Error("Link application failed",
			"run_id", rn.ID.String(),
			"payment_id", p.ID.String(),
			"ledger_entry_id", best.Entry.ID.String(),
			"strategy", string(best.Strategy),
			"error", err,
		)
		return
	}

	e.tally(rn, outcome, p.Amount)
	if outcome == shared.OutcomeLinked {
		if ref := charterRefOf(p, best.Entry); ref != "" {
			touched[ref] = struct{}{}
		}
	}
}

// processKeyedEntry handles a ledger entry carrying an extracted charter
// reference: a single same-reference payment within tolerance becomes a 1:1
// link, several payments summing within tolerance become a charter-aggregate
// link, anything else stays unmatched.
func (e *Engine) processKeyedEntry(ctx context.Context, rn *run.Run, params Params, entry *ledger.Entry, touched map[string]struct{}) {
	candidates, err := e.generator.PaymentCandidates(ctx, entry)
	if err != nil {
		rn.Errored++
		e.logger.Error("Candidate generation failed",
			"run_id", rn.ID.String(),
			"ledger_entry_id", entry.ID.String(),
			"error", err,
		)
		return
	}

	if len(candidates) == 1 && e.withinAmountTolerance(entry.Amount, candidates[0].Amount) {
		m := &Match{
			Payment:       candidates[0],
			Entry:         entry,
			Strategy:      shared.StrategyExactKey,
			Confidence:    shared.ConfidenceHigh,
			AmountDelta:   entry.Amount.Sub(candidates[0].Amount).Abs(),
			DateDeltaDays: dateDeltaDays(entry.EntryDate, candidates[0].PaymentDate),
		}
		outcome, err := e.applier.ApplyPaymentLink(ctx, rn.ID, params.Mode, m)
		if err != nil {
			rn.Errored++
			e.logger.Error("Link application failed",
				"run_id", rn.ID.String(),
				"ledger_entry_id", entry.ID.String(),
				"payment_id", candidates[0].ID.String(),
				"error", err,
			)
			return
		}
		e.tally(rn, outcome, entry.Amount)
		if outcome == shared.OutcomeLinked {
			touched[entry.CharterRef] = struct{}{}
		}
		return
	}

	if len(candidates) > 1 {
		sum := decimal.Zero
		for _, c := range candidates {
			sum = sum.Add(c.Amount)
		}
		if e.withinAmountTolerance(entry.Amount, sum) {
			outcome, err := e.applier.ApplyCharterAggregate(ctx, rn.ID, params.Mode, entry, sum)
			if err != nil {
				rn.Errored++
				e.logger.Error("Aggregate link application failed",
					"run_id", rn.ID.String(),
					"ledger_entry_id", entry.ID.String(),
					"charter_ref", entry.CharterRef,
					"error", err,
				)
				return
			}
			e.tally(rn, outcome, entry.Amount)
			if outcome == shared.OutcomeLinked {
				touched[entry.CharterRef] = struct{}{}
			}
			return
		}
	}

	rn.Unmatched++
	rn.UnmatchedAmount = rn.UnmatchedAmount.Add(entry.Amount)
}

// contestedEntry reports whether the matched entry is equally claimable by
// another unmatched payment. A processor reference carried by the source
// payment and present in the entry description settles the contest in its
// favor; otherwise the pairing is ambiguous and left for manual review.
func (e *Engine) contestedEntry(ctx context.Context, p *payment.Payment, best *Match) (bool, error) {
	competitors, err := e.generator.CompetingPayments(ctx, best.Entry)
	if err != nil {
		return false, err
	}

	others := 0
	for _, c := range competitors {
		if c.ID != p.ID {
			others++
		}
	}
	if others == 0 {
		return false, nil
	}

	if p.ProcessorRef != "" &&
		strings.Contains(strings.ToLower(best.Entry.Description), strings.ToLower(p.ProcessorRef)) {
		return false, nil
	}
	return true, nil
}

// recalculateTouched runs one balance recompute per distinct charter
// reference, in sorted order for determinism. An invariant violation rolls
// back that charter only; the others still run.
func (e *Engine) recalculateTouched(ctx context.Context, rn *run.Run, touched map[string]struct{}) {
	refs := make([]string, 0, len(touched))
	for ref := range touched {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		if err := e.recalc.Recalculate(ctx, ref); err != nil {
			rn.Errored++
			e.logger.Error("Balance recomputation failed",
				"run_id", rn.ID.String(),
				"charter_ref", ref,
				"error", err,
			)
		}
	}
}

func (e *Engine) tally(rn *run.Run, outcome shared.Outcome, amount decimal.Decimal) {
	switch outcome {
	case shared.OutcomeLinked:
		rn.Linked++
		rn.LinkedAmount = rn.LinkedAmount.Add(amount)
	case shared.OutcomeAlreadyLinked:
		rn.AlreadyLinked++
	}
}

// withinAmountTolerance reports whether candidate is inside the inclusive
// relative band around target.
func (e *Engine) withinAmountTolerance(target, candidate decimal.Decimal) bool {
	tolerance := target.Abs().Mul(decimal.NewFromFloat(e.cfg.AmountTolerancePct))
	return target.Sub(candidate).Abs().LessThanOrEqual(tolerance)
}

// keyedSweepBounds widens open date bounds for the keyed-entry sweep, whose
// store queries require both ends.
func keyedSweepBounds(params Params) (time.Time, time.Time) {
	from := params.DateFrom
	to := params.DateTo
	if from.IsZero() {
		from = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = time.Now().AddDate(1, 0, 0)
	}
	return from, to
}

func charterRefOf(p *payment.Payment, entry *ledger.Entry) string {
	if p.CharterRef != "" {
		return p.CharterRef
	}
	return entry.CharterRef
}
