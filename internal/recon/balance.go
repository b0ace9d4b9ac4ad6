package recon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/charterdesk/recon-engine/internal/domain/charter"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
)

// Recalculator refreshes the derived paid_amount and balance of a charter
// from the full set of payments linked to its reference. Runs once per
// distinct reference touched in a run, each in its own transaction.
type Recalculator struct {
	db          TxRunner
	charterRepo charter.Repository
	paymentRepo payment.Repository
	logger      *slog.Logger
}

// NewRecalculator creates a balance recalculator
func NewRecalculator(db TxRunner, charterRepo charter.Repository, paymentRepo payment.Repository, logger *slog.Logger) *Recalculator {
	return &Recalculator{
		db:          db,
		charterRepo: charterRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// Recalculate recomputes paid_amount and balance for one charter reference
// and asserts the balance invariant before committing. A violation rolls the
// transaction back, leaving the charter in its prior state.
func (r *Recalculator) Recalculate(ctx context.Context, ref string) error {
	return r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		charterTx := r.charterRepo.WithTx(tx)
		paymentTx := r.paymentRepo.WithTx(tx)

		c, err := charterTx.GetByRef(ctx, ref)
		if err != nil {
			return err
		}

		payments, err := paymentTx.GetLinkedByCharterRef(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to load linked payments: %w", err)
		}

		paid := decimal.Zero
		for _, p := range payments {
			paid = paid.Add(p.Amount)
		}
		balance := c.TotalDue.Sub(paid)

		if err := charterTx.UpdateDerivedBalances(ctx, ref, paid, balance); err != nil {
			return err
		}

		recomputed := *c
		recomputed.PaidAmount = paid
		recomputed.Balance = balance
		if err := recomputed.CheckBalance(); err != nil {
			r.logger.Error("Balance invariant violated, rolling back",
				"charter_ref", ref,
				"total_due", c.TotalDue.String(),
				"paid", paid.String(),
				"balance", balance.String(),
			)
			return err
		}

		return nil
	})
}
