package recon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/charterdesk/recon-engine/internal/domain/audit"
	"github.com/charterdesk/recon-engine/internal/domain/charter"
	"github.com/charterdesk/recon-engine/internal/domain/ledger"
	"github.com/charterdesk/recon-engine/internal/domain/outbox"
	"github.com/charterdesk/recon-engine/internal/domain/payment"
	"github.com/charterdesk/recon-engine/internal/domain/run"
	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

// fakeTxRunner executes the transaction function directly with a nil tx; the
// mocked repositories return themselves from WithTx.
type fakeTxRunner struct {
	calls int
	err   error
}

func (f *fakeTxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetUnlinkedByCharterRef(ctx context.Context, from, to time.Time) ([]*ledger.Entry, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountAggregateLinked(ctx context.Context, from, to time.Time) (int, error) {
	args := m.Called(ctx, from, to)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerRepo) FindCandidates(ctx context.Context, filter ledger.CandidateFilter) ([]*ledger.Entry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) SetPaymentLink(ctx context.Context, id uuid.UUID, paymentID uuid.UUID, verified bool) error {
	args := m.Called(ctx, id, paymentID, verified)
	return args.Error(0)
}

func (m *MockLedgerRepo) SetCharterLink(ctx context.Context, id uuid.UUID, charterRef string) error {
	args := m.Called(ctx, id, charterRef)
	return args.Error(0)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetUnlinked(ctx context.Context, sel payment.Selector) ([]*payment.Payment, error) {
	args := m.Called(ctx, sel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) CountLinked(ctx context.Context, sel payment.Selector) (int, error) {
	args := m.Called(ctx, sel)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentRepo) GetLinkedByCharterRef(ctx context.Context, charterRef string) ([]*payment.Payment, error) {
	args := m.Called(ctx, charterRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) FindCandidates(ctx context.Context, filter payment.CandidateFilter) ([]*payment.Payment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepo) SetLedgerLink(ctx context.Context, id uuid.UUID, ledgerEntryID uuid.UUID) error {
	args := m.Called(ctx, id, ledgerEntryID)
	return args.Error(0)
}

func (m *MockPaymentRepo) WithTx(tx pgx.Tx) payment.Repository {
	return m
}

type MockCharterRepo struct {
	mock.Mock
}

func (m *MockCharterRepo) GetByRef(ctx context.Context, ref string) (*charter.Charter, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*charter.Charter), args.Error(1)
}

func (m *MockCharterRepo) UpdateDerivedBalances(ctx context.Context, ref string, paid, balance decimal.Decimal) error {
	args := m.Called(ctx, ref, paid, balance)
	return args.Error(0)
}

func (m *MockCharterRepo) WithTx(tx pgx.Tx) charter.Repository {
	return m
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) Append(ctx context.Context, row *audit.MatchAudit) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func (m *MockAuditRepo) List(ctx context.Context, filter audit.Filter) ([]*audit.MatchAudit, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.MatchAudit), args.Error(1)
}

func (m *MockAuditRepo) CountByRunID(ctx context.Context, runID uuid.UUID) (int64, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(int64), args.Error(1)
}

type MockRunRepo struct {
	mock.Mock
}

func (m *MockRunRepo) Create(ctx context.Context, r *run.Run) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRunRepo) Complete(ctx context.Context, r *run.Run) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*run.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*run.Run), args.Error(1)
}

func (m *MockRunRepo) List(ctx context.Context, limit, offset int) ([]*run.Run, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*run.Run), args.Error(1)
}
