package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charterdesk/recon-engine/internal/domain/charter"
)

func TestCharterRepository_GetByRef(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CharterRepository{querier: mock, logger: logger}
	now := time.Now()

	expected := &charter.Charter{
		ID:         uuid.New(),
		Ref:        "CH-2026-0042",
		ClientName: "Acme Events LLC",
		TotalDue:   decimal.NewFromFloat(5000.00),
		PaidAmount: decimal.NewFromFloat(1250.00),
		Balance:    decimal.NewFromFloat(3750.00),
		EventDate:  now.AddDate(0, 2, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	query := `SELECT .+ FROM charters\s+WHERE ref = \$1`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "ref", "client_name", "total_due", "paid_amount", "balance", "event_date", "created_at", "updated_at"}).
			AddRow(expected.ID, expected.Ref, expected.ClientName, expected.TotalDue, expected.PaidAmount,
				expected.Balance, expected.EventDate, expected.CreatedAt, expected.UpdatedAt)
		mock.ExpectQuery(query).WithArgs("CH-2026-0042").WillReturnRows(rows)

		c, err := repo.GetByRef(ctx, "CH-2026-0042")
		assert.NoError(t, err)
		assert.Equal(t, expected, c)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("CH-9999-0000").WillReturnError(pgx.ErrNoRows)

		c, err := repo.GetByRef(ctx, "CH-9999-0000")
		assert.Error(t, err)
		assert.Nil(t, c)
		var notFound charter.ErrCharterNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, "CH-9999-0000", notFound.Ref)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCharterRepository_UpdateDerivedBalances(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CharterRepository{querier: mock, logger: logger}
	paid := decimal.NewFromFloat(1250.00)
	balance := decimal.NewFromFloat(3750.00)

	query := `UPDATE charters\s+SET paid_amount = \$1, balance = \$2, updated_at = NOW\(\)\s+WHERE ref = \$3`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(paid, balance, "CH-2026-0042").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateDerivedBalances(ctx, "CH-2026-0042", paid, balance)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(paid, balance, "CH-9999-0000").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateDerivedBalances(ctx, "CH-9999-0000", paid, balance)
		assert.ErrorIs(t, err, charter.ErrCharterNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(paid, balance, "CH-2026-0042").
			WillReturnError(expectedErr)

		err := repo.UpdateDerivedBalances(ctx, "CH-2026-0042", paid, balance)
		assert.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
