package recon

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
)

func TestGenerator_LedgerCandidates_ExactKeyFirst(t *testing.T) {
	ctx := context.Background()
	ledgerRepo := &MockLedgerRepo{}
	paymentRepo := &MockPaymentRepo{}
	gen := NewGenerator(ledgerRepo, paymentRepo, testMatchingConfig())

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &payment.Payment{
		ID:          uuid.New(),
		CharterRef:  "R100",
		Amount:      decimal.NewFromFloat(250.00),
		PaymentDate: date,
	}
	keyed := &ledger.Entry{ID: uuid.New(), Amount: p.Amount, EntryDate: date, CharterRef: "R100"}

	ledgerRepo.On("FindCandidates", ctx, mock.AnythingOfType("ledger.CandidateFilter")).
		Return([]*ledger.Entry{keyed}, nil).Once()

	set, err := gen.LedgerCandidates(ctx, p)
	require.NoError(t, err)
	require.Len(t, set.ExactKey, 1)
	assert.Empty(t, set.Window)

	// Keyed query pins the amount exactly and spans the wide window.
	filter := ledgerRepo.Calls[0].Arguments.Get(1).(ledger.CandidateFilter)
	assert.Equal(t, "R100", filter.CharterRef)
	assert.True(t, filter.AmountMin.Equal(p.Amount))
	assert.True(t, filter.AmountMax.Equal(p.Amount))
	assert.Equal(t, date.AddDate(0, 0, -45), filter.DateFrom)
	assert.Equal(t, date.AddDate(0, 0, 45), filter.DateTo)

	// A keyed hit stops the search; no generic query follows.
	ledgerRepo.AssertNumberOfCalls(t, "FindCandidates", 1)
}

func TestGenerator_LedgerCandidates_WindowBounds(t *testing.T) {
	ctx := context.Background()
	ledgerRepo := &MockLedgerRepo{}
	paymentRepo := &MockPaymentRepo{}
	gen := NewGenerator(ledgerRepo, paymentRepo, testMatchingConfig())

	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p := &payment.Payment{ID: uuid.New(), Amount: decimal.NewFromFloat(100.00), PaymentDate: date}
	e := &ledger.Entry{ID: uuid.New(), Amount: decimal.NewFromFloat(100.00), EntryDate: date}

	ledgerRepo.On("FindCandidates", ctx, mock.AnythingOfType("ledger.CandidateFilter")).
		Return([]*ledger.Entry{e}, nil).Once()

	set, err := gen.LedgerCandidates(ctx, p)
	require.NoError(t, err)
	require.Len(t, set.Window, 1)

	// No charter ref, so the first query is the generic amount-date window
	// with the inclusive five percent band.
	filter := ledgerRepo.Calls[0].Arguments.Get(1).(ledger.CandidateFilter)
	assert.Empty(t, filter.CharterRef)
	assert.True(t, filter.AmountMin.Equal(decimal.NewFromFloat(95.00)))
	assert.True(t, filter.AmountMax.Equal(decimal.NewFromFloat(105.00)))
	assert.Equal(t, date.AddDate(0, 0, -7), filter.DateFrom)
	assert.Equal(t, date.AddDate(0, 0, 7), filter.DateTo)
}

func TestGenerator_LedgerCandidates_FallsThroughToWide(t *testing.T) {
	ctx := context.Background()
	ledgerRepo := &MockLedgerRepo{}
	paymentRepo := &MockPaymentRepo{}
	gen := NewGenerator(ledgerRepo, paymentRepo, testMatchingConfig())

	date := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	p := &payment.Payment{ID: uuid.New(), Amount: decimal.NewFromFloat(100.00), PaymentDate: date}
	far := &ledger.Entry{ID: uuid.New(), Amount: decimal.NewFromFloat(100.00), EntryDate: date.AddDate(0, 0, 20)}

	ledgerRepo.On("FindCandidates", ctx, mock.AnythingOfType("ledger.CandidateFilter")).
		Return([]*ledger.Entry{}, nil).Once()
	ledgerRepo.On("FindCandidates", ctx, mock.AnythingOfType("ledger.CandidateFilter")).
		Return([]*ledger.Entry{far}, nil).Once()

	set, err := gen.LedgerCandidates(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, set.Window)
	require.Len(t, set.Wide, 1)

	wideFilter := ledgerRepo.Calls[1].Arguments.Get(1).(ledger.CandidateFilter)
	assert.Equal(t, date.AddDate(0, 0, -45), wideFilter.DateFrom)
	assert.Equal(t, date.AddDate(0, 0, 45), wideFilter.DateTo)
}

func TestGenerator_PaymentCandidates(t *testing.T) {
	ctx := context.Background()
	ledgerRepo := &MockLedgerRepo{}
	paymentRepo := &MockPaymentRepo{}
	gen := NewGenerator(ledgerRepo, paymentRepo, testMatchingConfig())

	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("unkeyed entry yields nothing", func(t *testing.T) {
		e := &ledger.Entry{ID: uuid.New(), Amount: decimal.NewFromFloat(1500.00), EntryDate: date}
		candidates, err := gen.PaymentCandidates(ctx, e)
		require.NoError(t, err)
		assert.Empty(t, candidates)
		paymentRepo.AssertNotCalled(t, "FindCandidates", mock.Anything, mock.Anything)
	})

	t.Run("keyed entry queries by reference", func(t *testing.T) {
		e := &ledger.Entry{ID: uuid.New(), Amount: decimal.NewFromFloat(1500.00), EntryDate: date, CharterRef: "R300"}
		batch := []*payment.Payment{
			{ID: uuid.New(), CharterRef: "R300", Amount: decimal.NewFromFloat(700.00)},
		}
		paymentRepo.On("FindCandidates", ctx, mock.AnythingOfType("payment.CandidateFilter")).
			Return(batch, nil).Once()

		candidates, err := gen.PaymentCandidates(ctx, e)
		require.NoError(t, err)
		assert.Len(t, candidates, 1)

		filter := paymentRepo.Calls[0].Arguments.Get(1).(payment.CandidateFilter)
		assert.Equal(t, "R300", filter.CharterRef)
		assert.True(t, filter.AmountMin.IsZero())
		assert.True(t, filter.AmountMax.Equal(decimal.NewFromFloat(1575.00)))
	})
}
